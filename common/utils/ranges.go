package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

type Range[T constraints.Ordered] struct {
	start T
	end   T
}

var errReverseRange = errors.New("start must be less than or equal to end")

func NewRange[T constraints.Ordered](start, end T) Range[T] {
	if start > end {
		return Range[T]{
			start: end,
			end:   start,
		}
	}

	return Range[T]{
		start: start,
		end:   end,
	}
}

func (r Range[T]) Contains(t T) bool {
	return t >= r.start && t <= r.end
}

func (r Range[T]) Start() T {
	return r.start
}

func (r Range[T]) End() T {
	return r.end
}

type IntRanges[T constraints.Integer] []Range[T]

var errIntRanges = errors.New("intRanges error")

func NewIntRanges[T constraints.Integer](expected string) (IntRanges[T], error) {
	// example: 200 or 200/302 or 200-400 or 200/204/401-429/501-503
	expected = strings.TrimSpace(expected)
	if len(expected) == 0 || expected == "*" {
		return nil, nil
	}

	list := strings.Split(expected, "/")
	if len(list) > 28 {
		return nil, fmt.Errorf("%w, too many ranges to use, maximum support 28 ranges", errIntRanges)
	}

	return NewIntRangesFromList[T](list)
}

func NewIntRangesFromList[T constraints.Integer](list []string) (IntRanges[T], error) {
	var ranges IntRanges[T]
	for _, s := range list {
		if s == "" {
			continue
		}

		status := strings.Split(s, "-")
		statusLen := len(status)
		if statusLen > 2 {
			return nil, errIntRanges
		}

		start, err := strconv.ParseInt(strings.Trim(status[0], "[ ]"), 10, 64)
		if err != nil {
			return nil, errIntRanges
		}

		switch statusLen {
		case 1:
			ranges = append(ranges, NewRange(T(start), T(start)))
		case 2:
			end, err := strconv.ParseInt(strings.Trim(status[1], "[ ]"), 10, 64)
			if err != nil {
				return nil, errIntRanges
			}

			ranges = append(ranges, NewRange(T(start), T(end)))
		}
	}

	return ranges, nil
}

// NewUnsignedRanges parses a list like NewIntRanges but rejects negative
// numbers.
func NewUnsignedRanges[T constraints.Unsigned](expected string) (IntRanges[T], error) {
	expected = strings.TrimSpace(expected)
	if len(expected) == 0 || expected == "*" {
		return nil, nil
	}

	var ranges IntRanges[T]
	for _, s := range strings.Split(expected, "/") {
		if s == "" {
			continue
		}

		status := strings.Split(s, "-")
		if len(status) > 2 {
			return nil, errIntRanges
		}

		start, err := strconv.ParseUint(strings.Trim(status[0], "[ ]"), 10, 64)
		if err != nil {
			return nil, errIntRanges
		}

		end := start
		if len(status) == 2 {
			end, err = strconv.ParseUint(strings.Trim(status[1], "[ ]"), 10, 64)
			if err != nil {
				return nil, errIntRanges
			}
		}

		ranges = append(ranges, NewRange(T(start), T(end)))
	}

	return ranges, nil
}

func (ranges IntRanges[T]) Check(status T) bool {
	if len(ranges) == 0 {
		return true
	}

	for _, segment := range ranges {
		if segment.Contains(status) {
			return true
		}
	}

	return false
}

func (ranges IntRanges[T]) String() string {
	if len(ranges) == 0 {
		return "*"
	}

	terms := make([]string, 0, len(ranges))
	for _, r := range ranges {
		if r.start == r.end {
			terms = append(terms, strconv.FormatInt(int64(r.start), 10))
		} else {
			terms = append(terms, fmt.Sprintf("%d-%d", int64(r.start), int64(r.end)))
		}
	}
	return strings.Join(terms, "/")
}

// Merge combines overlapping and adjacent ranges, in place.
func (ranges IntRanges[T]) Merge() IntRanges[T] {
	if len(ranges) == 0 {
		return ranges
	}

	merged := IntRanges[T]{ranges[0]}
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.start > last.end && r.start != last.end+1 {
			merged = append(merged, r)
			continue
		}
		if r.end > last.end {
			last.end = r.end
		}
	}
	return merged
}
