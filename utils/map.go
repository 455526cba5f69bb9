package utils

func MapValues[K comparable, T any](m map[K]T) []T {
	values := make([]T, 0, len(m))
	for _, value := range m {
		values = append(values, value)
	}
	return values
}

func MapKeys[K comparable, T any](m map[K]T) []K {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	return keys
}
