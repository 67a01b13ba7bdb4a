package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIntRanges(t *testing.T) {
	t.Parallel()

	ranges, err := NewIntRanges[uint16]("200/204/401-403")
	assert.NoError(t, err)
	assert.Equal(t, 3, len(ranges))
	assert.True(t, ranges.Check(200))
	assert.True(t, ranges.Check(204))
	assert.True(t, ranges.Check(402))
	assert.False(t, ranges.Check(201))
	assert.False(t, ranges.Check(404))

	_, err = NewIntRanges[uint16]("200-")
	assert.Error(t, err)

	_, err = NewIntRanges[uint16]("1-2-3")
	assert.Error(t, err)

	_, err = NewIntRanges[uint16]("abc")
	assert.Error(t, err)
}

func TestNewUnsignedRanges(t *testing.T) {
	t.Parallel()

	ranges, err := NewUnsignedRanges[uint16]("200/302")
	assert.NoError(t, err)
	assert.True(t, ranges.Check(200))
	assert.True(t, ranges.Check(302))
	assert.False(t, ranges.Check(500))

	_, err = NewUnsignedRanges[uint16]("-1")
	assert.Error(t, err)

	// reversed bounds are normalized, not rejected
	reversed, err := NewUnsignedRanges[uint16]("400-200")
	assert.NoError(t, err)
	assert.True(t, reversed.Check(300))
}

func TestIntRangesEmpty(t *testing.T) {
	t.Parallel()

	ranges, err := NewUnsignedRanges[uint16]("")
	assert.NoError(t, err)
	assert.Nil(t, ranges)

	// an empty set matches everything
	assert.True(t, ranges.Check(200))
	assert.True(t, ranges.Check(500))
	assert.Equal(t, "*", ranges.String())
}

func TestRangeContains(t *testing.T) {
	t.Parallel()

	r := NewRange(1, 10)
	assert.True(t, r.Contains(1))
	assert.True(t, r.Contains(10))
	assert.False(t, r.Contains(0))
	assert.False(t, r.Contains(11))
}
