// package common contains common types that are used throughout the preview engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// Rect is an axis-aligned rectangle in physical pixels, used for viewport bounds and draw clipping.
type Rect struct {
	// X and Y are the top-left corner of the rectangle.
	X, Y float32
	// Width and Height are the extents of the rectangle.
	Width, Height float32
}

// Empty reports whether the rectangle covers no pixels.
//
// Returns:
//   - bool: true if either extent is zero or negative
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Intersect returns the part of r that lies inside o. Disjoint rectangles yield an empty Rect
// positioned at the clamped corner.
//
// Parameters:
//   - o: the rectangle to clip against
//
// Returns:
//   - Rect: the overlap of r and o
func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.Width, o.X+o.Width), min(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x0, Y: y0, Width: max(x1-x0, 0), Height: max(y1-y0, 0)}
}

// Versioned pairs a value with a monotonically increasing version counter.
// A consumer that remembers the last version it observed can detect change with a single integer comparison.
type Versioned[T any] struct {
	// Data is the current value.
	Data T
	// Version is the number of semantic changes applied so far. Zero means the initial value.
	Version uint64
}

// NewVersioned wraps an initial value at version 0. The first Bump yields version 1.
//
// Parameters:
//   - data: the initial value
//
// Returns:
//   - Versioned[T]: the wrapped value
func NewVersioned[T any](data T) Versioned[T] {
	return Versioned[T]{Data: data}
}

// Bump replaces the data and advances the version by exactly one.
//
// Parameters:
//   - data: the new value
//
// Returns:
//   - uint64: the new version
func (v *Versioned[T]) Bump(data T) uint64 {
	v.Data = data
	v.Version++
	return v.Version
}

// NewerThan reports whether this value has changed since the given observed version.
func (v Versioned[T]) NewerThan(seen uint64) bool {
	return v.Version > seen
}

// Releasable is any GPU object handle that owns driver memory and must be released explicitly.
type Releasable interface {
	Release()
}
