package broadcast

import "reflect"

// EqualFunc compares two projected values for change suppression.
type EqualFunc[T any] func(a, b T) bool

// Comparable compares comparable values with ==.
func Comparable[T comparable](a, b T) bool {
	return a == b
}

// DeepEqual compares values with reflect.DeepEqual. It is the default for
// subscriptions that do not supply an EqualFunc.
func DeepEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}
