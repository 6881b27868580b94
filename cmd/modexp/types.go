package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/samcharles93/modexp/internal/numeric"
)

var elementTypes = []string{"uint8", "int8", "uint16", "int16", "uint32", "int32", "uint64", "int64"}

func typeNames() string {
	return strings.Join(elementTypes, ", ")
}

func unknownType(name string) error {
	return fmt.Errorf("unknown element type %q (expected %s)", name, typeNames())
}

// parseValue parses s as a T, rejecting values T cannot hold.
func parseValue[T numeric.Number](s string) (T, error) {
	bits := numeric.Size[T]() * 8
	s = strings.TrimSpace(s)
	if numeric.Signed[T]() {
		v, err := strconv.ParseInt(s, 0, bits)
		if err != nil {
			return 0, fmt.Errorf("parse %s value %q: %w", numeric.GoType[T](), s, err)
		}
		return T(v), nil
	}
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("parse %s value %q: %w", numeric.GoType[T](), s, err)
	}
	return T(v), nil
}

// problem is a parsed modular exponentiation input.
type problem[T numeric.Number] struct {
	x []T
	n T
	q T
}

// exponent returns n for the CPU reference.
func (p problem[T]) exponent() uint64 {
	return uint64(p.n)
}

// Defaults from the original benchmark. Types too narrow to hold them use
// their maximum value instead.
const (
	defaultExponent = 400000
	defaultModulus  = 2022
)

// maxValue is the largest value of T.
func maxValue[T numeric.Number]() uint64 {
	bits := numeric.Size[T]() * 8
	if numeric.Signed[T]() {
		return 1<<(bits-1) - 1
	}
	return 1<<bits - 1
}

// defaultValue returns def, capped at the maximum of T.
func defaultValue[T numeric.Number](def uint64) T {
	return T(min(def, maxValue[T]()))
}

// valueOrDefault parses s, or returns the capped default when s is empty.
func valueOrDefault[T numeric.Number](s string, def uint64) (T, error) {
	if strings.TrimSpace(s) == "" {
		return defaultValue[T](def), nil
	}
	return parseValue[T](s)
}

const (
	inputSequence = "sequence"
	inputRandom   = "random"
)

func newProblem[T numeric.Number](elements int64, exponent, modulus, input string, seed uint64) (problem[T], error) {
	var p problem[T]
	if elements < 1 {
		return p, fmt.Errorf("elements must be at least 1, got %d", elements)
	}
	n, err := valueOrDefault[T](exponent, defaultExponent)
	if err != nil {
		return p, fmt.Errorf("exponent: %w", err)
	}
	if n < 0 {
		return p, fmt.Errorf("exponent must be non-negative, got %s", exponent)
	}
	q, err := valueOrDefault[T](modulus, defaultModulus)
	if err != nil {
		return p, fmt.Errorf("modulus: %w", err)
	}
	if q == 0 && n > 0 {
		return p, fmt.Errorf("modulus must be non-zero")
	}

	x := make([]T, elements)
	switch input {
	case inputSequence, "":
		for i := range x {
			x[i] = T(i)
		}
	case inputRandom:
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		for i := range x {
			x[i] = T(rng.Uint64())
		}
	default:
		return p, fmt.Errorf("unknown input %q (expected %s or %s)", input, inputSequence, inputRandom)
	}
	return problem[T]{x: x, n: n, q: q}, nil
}

// firstMismatch returns the first index where a and b differ, or -1.
func firstMismatch[T comparable](a, b []T) int {
	for i := range min(len(a), len(b)) {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return min(len(a), len(b))
	}
	return -1
}
