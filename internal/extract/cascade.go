package extract

// FirstSuccess evaluates strategies in order and returns the first result whose
// ok flag is true. Later strategies are never called.
func FirstSuccess[T any](strategies ...func() (T, bool)) (T, bool) {
	for _, try := range strategies {
		if v, ok := try(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// FirstOf applies fn to each item in order and returns the first success.
func FirstOf[S, T any](items []S, fn func(S) (T, bool)) (T, bool) {
	for _, item := range items {
		if v, ok := fn(item); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
