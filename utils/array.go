package utils

import "math/rand/v2"

func ForEach[T any](array []T, f func(T, int)) {
	for idx, v := range array {
		f(v, idx)
	}
}

func RandomElement[T any](array []T) T {
	length := len(array)
	if length == 0 {
		panic("Array is empty")
	}
	return array[rand.IntN(length)]
}
