// Package setalg implements boolean combination over sorted, unique ID
// arrays. Every evaluator variant combines results this way rather than
// through hash sets, per spec §9: it keeps intersect/union linear-time and
// makes the outcome independent of concurrent call order.
package setalg

import "cmp"

// Intersect returns the sorted intersection of a and b, both assumed
// sorted and unique.
func Intersect[T cmp.Ordered](a, b []T) []T {
	out := make([]T, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// Union returns the sorted union of a and b, both assumed sorted and unique.
func Union[T cmp.Ordered](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// IntersectAll folds Intersect across sets. An empty slice of sets yields nil.
func IntersectAll[T cmp.Ordered](sets [][]T) []T {
	if len(sets) == 0 {
		return nil
	}
	acc := sets[0]
	for _, s := range sets[1:] {
		acc = Intersect(acc, s)
	}
	return acc
}

// UnionAll folds Union across sets.
func UnionAll[T cmp.Ordered](sets [][]T) []T {
	var acc []T
	for _, s := range sets {
		acc = Union(acc, s)
	}
	return acc
}

// Complement returns the sorted complement of set within the universe
// [0, n), where set is sorted and unique and T is an unsigned ID type.
func Complement[T ~uint32](set []T, n int) []T {
	out := make([]T, 0, n-len(set))
	next := 0
	for _, v := range set {
		for next < int(v) {
			out = append(out, T(next))
			next++
		}
		next = int(v) + 1
	}
	for next < n {
		out = append(out, T(next))
		next++
	}
	return out
}

// Contains reports whether sorted, unique set holds v.
func Contains[T cmp.Ordered](set []T, v T) bool {
	lo, hi := 0, len(set)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case set[mid] < v:
			lo = mid + 1
		case set[mid] > v:
			hi = mid
		default:
			return true
		}
	}
	return false
}
