// Package collection holds generic slice helpers.
package collection

// Map transforms each element of s with fn. A nil s yields an empty,
// non-nil slice so JSON renders it as [].
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}
