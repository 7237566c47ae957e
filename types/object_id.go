// object_id.go defines ObjectID, the identity of GPU allocations and pixel memory regions.

// Package types provides common types used throughout the vidframe project.
package types

import (
	"fmt"
	"reflect"

	"go.uber.org/atomic"
)

// ObjectID is a unique identifier for an object. Zero means "no object".
type ObjectID uint64

var lastObjectID atomic.Uint64

// NewObjectID returns a process-unique, never-zero ObjectID.
func NewObjectID() ObjectID {
	return ObjectID(lastObjectID.Inc())
}

func (id ObjectID) String() string {
	return fmt.Sprintf("#%d", uint64(id))
}

type GetObjectIDer interface {
	GetObjectID() ObjectID
}

type Pointer[T any] interface {
	*T
}

// GetObjectIDByPointer derives an ObjectID from the address of obj.
func GetObjectIDByPointer[P Pointer[T], T any](obj P) ObjectID {
	if obj == nil {
		return ObjectID(0)
	}
	v := reflect.ValueOf(obj)
	if v.IsNil() {
		return ObjectID(0)
	}
	ptr := uintptr(v.UnsafePointer())
	if uintptr(uint64(ptr)) != ptr {
		panic("pointer value does not fit into uint64")
	}
	return ObjectID(uint64(ptr))
}
