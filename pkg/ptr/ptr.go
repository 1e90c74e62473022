// Package ptr has helpers for optional fields on wire types.
package ptr

// Ptr returns a pointer to the given value.
func Ptr[T any](v T) *T {
	return &v
}

// NonEmpty returns a pointer to s, or nil when s is empty so the field is
// left out of the encoded payload.
func NonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
