package pointer

import "time"

// To returns a pointer to a copy of value
func To[T any](value T) *T {
	return &value
}

// Copy returns a pointer to a copy of the pointed to value, or nil
func Copy[T any](value *T) *T {
	if value == nil {
		return nil
	}
	return To(*value)
}

// IfValid returns a pointer to the value if it's valid, otherwise nil
func IfValid[T any](valid bool, value T) *T {
	if valid {
		return &value
	}
	return nil
}

// ValueOrDefault dereferences value, or returns defaultValue when nil
func ValueOrDefault[T any](value *T, defaultValue T) T {
	if value != nil {
		return *value
	}
	return defaultValue
}

// String returns a pointer to the provided string value
func String(value string) *string {
	return &value
}

// Uint64 returns a pointer to the provided uint64 value
func Uint64(value uint64) *uint64 {
	return &value
}

// Time returns a pointer to the provided time value
func Time(value time.Time) *time.Time {
	return &value
}
