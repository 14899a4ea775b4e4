package cmp

func SliceEq[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for nth, va := range a {
		if va != b[nth] {
			return false
		}
	}
	return true
}

func SliceEqWith[T any, U any](a []T, b []U, pred func(a T, b U) bool) bool {
	if len(a) != len(b) {
		return false
	}
	for nth := range a {
		if !pred(a[nth], b[nth]) {
			return false
		}
	}
	return true
}

// SliceContentEq checks a and b have the same elements, ignoring order.
func SliceContentEq[T comparable](a, b []T) bool {
	return SliceContentEqWith(a, b, func(x, y T) bool { return x == y })
}

// SliceContentEqWith checks elements of a and b can be paired one-to-one by pred.
func SliceContentEqWith[S, T any](a []S, b []T, pred func(S, T) bool) bool {
	if len(a) != len(b) {
		return false
	}

	used := make([]bool, len(b))
	for _, va := range a {
		found := false
		for nth, vb := range b {
			if used[nth] || !pred(va, vb) {
				continue
			}
			used[nth] = true
			found = true
			break
		}
		if !found {
			return false
		}
	}
	return true
}
