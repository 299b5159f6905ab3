package value

import "math"

// KeepArray returns exactly min(k, n) elements of arr, where n counts the
// non-NaN elements: the greatest ones when highest is set, else the
// smallest. Kept elements stay in their original order and NaN elements
// are dropped. Which of several elements equal to the boundary value are
// kept is unspecified.
func KeepArray(arr Array, k int, highest bool) Array {
	candidates := make([]int, 0, len(arr))
	for i, v := range arr {
		if f, ok := v.(Float); ok && math.IsNaN(float64(f)) {
			continue
		}
		candidates = append(candidates, i)
	}
	if k <= 0 {
		return Array{}
	}
	if k >= len(candidates) {
		out := make(Array, len(candidates))
		for j, i := range candidates {
			out[j] = arr[i]
		}
		return out
	}

	pos := k - 1
	if highest {
		pos = len(candidates) - k
	}
	order := append([]int(nil), candidates...)
	pivot := arr[selectNth(order, pos, func(i, j int) int { return Compare(arr[i], arr[j]) })]

	kept := make([]bool, len(arr))
	n := 0
	mark := func(accept func(c int) bool) {
		for _, i := range candidates {
			if n == k {
				return
			}
			if kept[i] || !accept(Compare(arr[i], pivot)) {
				continue
			}
			kept[i] = true
			n++
		}
	}
	if highest {
		mark(func(c int) bool { return c > 0 })
	} else {
		mark(func(c int) bool { return c < 0 })
	}
	mark(func(c int) bool { return c == 0 })
	mark(func(int) bool { return true })

	out := make(Array, 0, k)
	for _, i := range candidates {
		if kept[i] {
			out = append(out, arr[i])
		}
	}
	return out
}

// selectNth reorders idx so that idx[n] holds the n-th smallest element under
// compare and returns it. It partitions three ways, so it terminates for any
// compare that reports an element equal to itself.
func selectNth(idx []int, n int, compare func(a, b int) int) int {
	lo, hi := 0, len(idx)-1
	for lo < hi {
		p := idx[lo+(hi-lo)/2]
		lt, i, gt := lo, lo, hi
		for i <= gt {
			switch c := compare(idx[i], p); {
			case c < 0:
				idx[lt], idx[i] = idx[i], idx[lt]
				lt++
				i++
			case c > 0:
				idx[i], idx[gt] = idx[gt], idx[i]
				gt--
			default:
				i++
			}
		}
		switch {
		case n < lt:
			hi = lt - 1
		case n > gt:
			lo = gt + 1
		default:
			return idx[n]
		}
	}
	return idx[n]
}
