package orasp

import "fmt"

// Evaluator measures room sequences of an instance.
type Evaluator struct {
	inst *Instance
}

func NewEvaluator(inst *Instance) (*Evaluator, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{inst: inst}, nil
}

// SequenceTime is the busy time of one room processing seq back to back:
// every operation's TT plus the setup between consecutive operations.
func (e *Evaluator) SequenceTime(seq []int) (int, error) {
	if e == nil || e.inst == nil {
		return 0, fmt.Errorf("nil evaluator")
	}
	if err := ValidateSequence(seq, e.inst.Operations); err != nil {
		return 0, err
	}

	total := 0
	for i, o := range seq {
		total += e.inst.TT[o]
		if i > 0 {
			total += e.inst.TD(seq[i-1], o)
		}
	}
	return total, nil
}

func (e *Evaluator) MustSequenceTime(seq []int) int {
	t, err := e.SequenceTime(seq)
	if err != nil {
		panic(err)
	}
	return t
}

// Fits reports whether seq can run in room s within the horizon: every
// operation is compatible with s and the busy time stays <= Tmax.
func (e *Evaluator) Fits(seq []int, s int) (bool, error) {
	if s < 0 || s >= e.inst.Rooms {
		return false, fmt.Errorf("room %d out of range [0,%d)", s, e.inst.Rooms)
	}
	t, err := e.SequenceTime(seq)
	if err != nil {
		return false, err
	}
	for _, o := range seq {
		if !e.inst.A(o, s) {
			return false, nil
		}
	}
	return t <= e.inst.Tmax, nil
}
