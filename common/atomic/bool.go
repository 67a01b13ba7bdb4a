package atomic

import (
	"strconv"
	"sync/atomic"
)

type Bool struct {
	atomic.Bool
}

func NewBool(val bool) (b *Bool) {
	b = &Bool{}
	b.Store(val)
	return
}

func (b *Bool) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatBool(b.Load())), nil
}

func (b *Bool) UnmarshalJSON(data []byte) error {
	val, err := strconv.ParseBool(string(data))
	if err != nil {
		return err
	}
	b.Store(val)
	return nil
}
