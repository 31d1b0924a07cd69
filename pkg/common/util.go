package common

import (
	"os"
)

func IsDevelopment() bool {
	return os.Getenv(EnvKeyGoEnv) == "development"
}

func IsProduction() bool {
	return os.Getenv(EnvKeyGoEnv) == "production"
}

func Mapper[T any, R any](items []T, mapFn func(T) R) []R {
	mapped := make([]R, len(items))
	for i := range len(items) {
		mapped[i] = mapFn(items[i])
	}
	return mapped
}

func Reducer[T any, R any](items []T, reduceFn func(R, T) R, initAcc R) R {
	finalAcc := initAcc
	for i := range len(items) {
		finalAcc = reduceFn(finalAcc, items[i])
	}
	return finalAcc
}

func Filter[T any](items []T, keep func(T) bool) []T {
	kept := make([]T, 0, len(items))
	for i := range len(items) {
		if keep(items[i]) {
			kept = append(kept, items[i])
		}
	}
	return kept
}

// SetOf builds a membership set from a slice of comparable values.
func SetOf[T comparable](items []T) map[T]struct{} {
	return Reducer(items, func(m map[T]struct{}, item T) map[T]struct{} {
		m[item] = struct{}{}
		return m
	}, make(map[T]struct{}, len(items)))
}
