package eventkit

import "iter"

// All consumes seq until a handler returns false or an error.
// It is true when every handler returned true, including when there are none.
func All(seq iter.Seq2[bool, error]) (bool, error) {
	for ok, err := range seq {
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// Any consumes seq until a handler returns true or an error.
// It is false when there are no handlers.
func Any(seq iter.Seq2[bool, error]) (bool, error) {
	for ok, err := range seq {
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Collect gathers every result of seq, stopping at the first error.
func Collect[R any](seq iter.Seq2[R, error]) ([]R, error) {
	var out []R
	for r, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, r)
	}
	return out, nil
}
