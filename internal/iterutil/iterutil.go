// Package iterutil provides helpers over iter.Seq2 sequences that carry an
// error alongside each element.
//
// Sequences are pull-based and single-consumer. Nothing here buffers beyond
// what Collect is asked to materialize.
package iterutil

import "iter"

// Window yields at most limit elements of seq after discarding the first
// skip. A negative skip is treated as zero; a limit of zero yields nothing.
//
// An error from seq is yielded even while skipping and ends the window.
// Iteration of seq stops as soon as the window is full.
func Window[T any](seq iter.Seq2[T, error], skip, limit int) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		if limit <= 0 {
			return
		}
		skipped, taken := 0, 0
		for v, err := range seq {
			if err != nil {
				yield(v, err)
				return
			}
			if skipped < skip {
				skipped++
				continue
			}
			if !yield(v, nil) {
				return
			}
			taken++
			if taken >= limit {
				return
			}
		}
	}
}

// Paginate applies an optional window. A nil limit returns seq unchanged,
// ignoring skip; a nil skip means zero.
func Paginate[T any](seq iter.Seq2[T, error], skip, limit *int) iter.Seq2[T, error] {
	if limit == nil {
		return seq
	}
	s := 0
	if skip != nil {
		s = *skip
	}
	return Window(seq, s, *limit)
}

// Map transforms each element with fn. An error from fn is yielded in place
// of the element and iteration continues.
func Map[T, U any](seq iter.Seq2[T, error], fn func(T) (U, error)) iter.Seq2[U, error] {
	return func(yield func(U, error) bool) {
		for v, err := range seq {
			var out U
			if err == nil {
				out, err = fn(v)
			}
			if !yield(out, err) {
				return
			}
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FromSlice returns a sequence over items with no errors.
func FromSlice[T any](items []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, v := range items {
			if !yield(v, nil) {
				return
			}
		}
	}
}
