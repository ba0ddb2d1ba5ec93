package aligner

import "golang.org/x/exp/constraints"

func gcd[T constraints.Integer](a, b T) T {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcm[T constraints.Integer](a, b T) T {
	return a / gcd(a, b) * b
}
