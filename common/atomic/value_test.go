package atomic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedValue(t *testing.T) {
	v := NewTypedValue("1")
	assert.Equal(t, "1", v.Load())

	v.Store("2")
	assert.Equal(t, "2", v.Load())

	old := v.Swap("3")
	assert.Equal(t, "2", old)
	assert.Equal(t, "3", v.Load())
}

func TestTypedValueZero(t *testing.T) {
	var v TypedValue[string]
	assert.Equal(t, "", v.Load())

	_, ok := v.LoadOk()
	assert.False(t, ok)

	v.Store("x")
	got, ok := v.LoadOk()
	assert.True(t, ok)
	assert.Equal(t, "x", got)
}

func TestTypedValueCompareAndSwap(t *testing.T) {
	var v TypedValue[int]
	assert.True(t, v.CompareAndSwap(0, 10))
	assert.Equal(t, 10, v.Load())
	assert.False(t, v.CompareAndSwap(0, 20))
	assert.True(t, v.CompareAndSwap(10, 20))
	assert.Equal(t, 20, v.Load())
}

func TestBool(t *testing.T) {
	b := NewBool(true)
	assert.True(t, b.Load())

	b.Store(false)
	assert.False(t, b.Load())

	buf, err := b.MarshalJSON()
	assert.NoError(t, err)
	assert.Equal(t, "false", string(buf))

	assert.NoError(t, b.UnmarshalJSON([]byte("true")))
	assert.True(t, b.Load())
}
