package arena

import "unsafe"

// AllocateSlice reserves room for count trivially-initializable values of T
// in the arena and returns it as a typed slice backed by arena memory. It
// is the Go analogue of the templated Arena::allocate<T> in the source this
// module generalizes.
func AllocateSlice[T any](a *Arena, count int) []T {
	var zero T
	size := unsafe.Sizeof(zero)
	align := unsafe.Alignof(zero)
	if count == 0 {
		return nil
	}
	raw := a.Allocate(size*uintptr(count), align)
	return unsafe.Slice((*T)(unsafe.Pointer(&raw[0])), count)
}
