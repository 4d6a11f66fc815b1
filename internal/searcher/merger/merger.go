// Package merger implements set operations over ascending, duplicate-free
// document id slices. Every function runs in a single linear pass and
// returns a new slice; inputs are never modified.
package merger

// Intersect returns the ids present in both a and b.
func Intersect(a, b []int) []int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]int, 0, n)
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

// Union returns the ids present in a or b.
func Union(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
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
	return append(out, b[j:]...)
}

// Difference returns the ids of a that are not in b.
func Difference(a, b []int) []int {
	out := make([]int, 0, len(a))
	i, j := 0, 0
	for i < len(a) {
		if j >= len(b) || a[i] < b[j] {
			out = append(out, a[i])
			i++
			continue
		}
		if a[i] > b[j] {
			j++
			continue
		}
		i++
		j++
	}
	return out
}

// Complement returns every id of universe that is not in a.
func Complement(universe, a []int) []int {
	return Difference(universe, a)
}

// IsSorted reports whether ids is strictly ascending.
func IsSorted(ids []int) bool {
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			return false
		}
	}
	return true
}
