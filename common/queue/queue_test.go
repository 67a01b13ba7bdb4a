package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueuePut(t *testing.T) {
	q := New[int](2)
	q.Put(1, 2, 3)

	assert.Equal(t, int64(3), q.Len())
}

func TestQueuePop(t *testing.T) {
	q := New[int](0)
	q.Put(1, 2)

	assert.Equal(t, 1, q.Pop())
	assert.Equal(t, 2, q.Pop())
	assert.Equal(t, 0, q.Pop())
	assert.Equal(t, int64(0), q.Len())
}

func TestQueueLast(t *testing.T) {
	q := New[int](0)
	assert.Equal(t, 0, q.Last())

	q.Put(1, 2)
	assert.Equal(t, 2, q.Last())
}

func TestQueueCopy(t *testing.T) {
	q := New[int](0)
	q.Put(1, 2)

	items := q.Copy()
	assert.Equal(t, []int{1, 2}, items)

	items[0] = 99
	assert.Equal(t, 1, q.Pop())
}
