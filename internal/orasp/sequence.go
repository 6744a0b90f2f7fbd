package orasp

import "fmt"

// ValidateSequence checks that seq lists distinct operation ids in [0,n).
// A room sequence may cover any subset of the operations.
func ValidateSequence(seq []int, n int) error {
	if len(seq) > n {
		return fmt.Errorf("sequence length must be <= %d (got %d)", n, len(seq))
	}
	seen := make([]bool, n)
	for i, v := range seq {
		if v < 0 || v >= n {
			return fmt.Errorf("seq[%d]=%d out of range [0,%d)", i, v, n)
		}
		if seen[v] {
			return fmt.Errorf("duplicate operation id %d in sequence", v)
		}
		seen[v] = true
	}
	return nil
}
