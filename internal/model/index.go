package model

// at returns items[i]. Negative indices address from the end.
func at[T any](items []T, i int) (T, bool) {
	var zero T
	if i < 0 {
		i += len(items)
	}
	if i < 0 || i >= len(items) {
		return zero, false
	}
	return items[i], true
}

// slice returns a copy of items[a:b]. Negative bounds address from the end
// and are clamped to the sequence. An empty or reversed range yields an
// empty, non-nil slice.
func slice[T any](items []T, a, b int) []T {
	n := len(items)
	a = clampBound(a, n)
	b = clampBound(b, n)
	if a >= b {
		return []T{}
	}
	out := make([]T, b-a)
	copy(out, items[a:b])
	return out
}

func clampBound(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}
