package groups

import (
	"errors"
	"fmt"
)

// ErrIndexOutOfRange is matched by every *IndexError.
var ErrIndexOutOfRange = errors.New("index out of range")

// IndexError reports a group or item index that does not fit the partition
// shape at the time of the mutation. The mutation is not applied.
type IndexError struct {
	Op    string
	Field string
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%s: %s %d out of range [0,%d)", e.Op, e.Field, e.Index, e.Len)
}

// Is lets errors.Is match ErrIndexOutOfRange.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

func checkIndex(op, field string, index, length int) error {
	if index < 0 || index >= length {
		return &IndexError{Op: op, Field: field, Index: index, Len: length}
	}
	return nil
}
