package orasp

import (
	"errors"
	"fmt"
)

// Repairs counts the entries forced to true by the repair passes.
type Repairs struct {
	Rooms      int `json:"rooms" yaml:"rooms"`
	Operations int `json:"operations" yaml:"operations"`
	Surgeons   int `json:"surgeons" yaml:"surgeons"`
}

// Instance is one generated ORASP problem. Matrices are stored row-major.
type Instance struct {
	ID   string `json:"id" yaml:"id"`
	Seed int64  `json:"seed" yaml:"seed"`

	Operations int `json:"operations" yaml:"operations"`
	Surgeons   int `json:"surgeons" yaml:"surgeons"`
	Rooms      int `json:"rooms" yaml:"rooms"`
	Types      int `json:"types" yaml:"types"`

	OpType []int `json:"op_type" yaml:"op_type"`
	TP     []int `json:"tp" yaml:"tp"`
	TC     []int `json:"tc" yaml:"tc"`
	TN     []int `json:"tn" yaml:"tn"`
	TT     []int `json:"tt" yaml:"tt"`

	// Compat length must be Operations*Rooms.
	Compat []bool `json:"compat" yaml:"compat"`
	// Capable length must be Surgeons*Operations.
	Capable []bool `json:"capable" yaml:"capable"`

	Start []int `json:"start" yaml:"start"`
	End   []int `json:"end" yaml:"end"`

	// TypeSetup length must be Types*Types.
	TypeSetup []int `json:"type_setup" yaml:"type_setup"`
	// Setup length must be Operations*Operations.
	Setup []int `json:"setup" yaml:"setup"`

	Tmax int `json:"tmax" yaml:"tmax"`
	BigM int `json:"big_m" yaml:"big_m"`

	Repairs Repairs `json:"repairs" yaml:"repairs"`
}

// A reports whether operation o may be performed in room s.
func (inst *Instance) A(o, s int) bool { return inst.Compat[o*inst.Rooms+s] }

// X reports whether surgeon c can perform operation o.
func (inst *Instance) X(c, o int) bool { return inst.Capable[c*inst.Operations+o] }

// TD is the setup time between o1 and a directly following o2.
func (inst *Instance) TD(o1, o2 int) int { return inst.Setup[o1*inst.Operations+o2] }

func (inst *Instance) TypeCost(t1, t2 int) int { return inst.TypeSetup[t1*inst.Types+t2] }

func (inst *Instance) CompatibleRooms(o int) []int {
	var out []int
	for s := 0; s < inst.Rooms; s++ {
		if inst.A(o, s) {
			out = append(out, s)
		}
	}
	return out
}

func (inst *Instance) CapableOperations(c int) []int {
	var out []int
	for o := 0; o < inst.Operations; o++ {
		if inst.X(c, o) {
			out = append(out, o)
		}
	}
	return out
}

func (inst *Instance) CapableSurgeons(o int) []int {
	var out []int
	for c := 0; c < inst.Surgeons; c++ {
		if inst.X(c, o) {
			out = append(out, c)
		}
	}
	return out
}

// TypeOneHot returns T[o][t] = 1 iff operation o has type t.
func (inst *Instance) TypeOneHot() [][]int {
	out := make([][]int, inst.Operations)
	for o := range out {
		out[o] = make([]int, inst.Types)
		out[o][inst.OpType[o]] = 1
	}
	return out
}

func (inst *Instance) TotalTime() int {
	sum := 0
	for _, v := range inst.TT {
		sum += v
	}
	return sum
}

// SetupBound is the sum over operations of their largest outgoing setup
// time. No room sequence can accumulate more setup than this.
func (inst *Instance) SetupBound() int {
	sum := 0
	for o1 := 0; o1 < inst.Operations; o1++ {
		best := 0
		for o2 := 0; o2 < inst.Operations; o2++ {
			if v := inst.TD(o1, o2); v > best {
				best = v
			}
		}
		sum += best
	}
	return sum
}

// Validate checks every structural invariant of the instance.
func (inst *Instance) Validate() error {
	if inst == nil {
		return errors.New("instance is nil")
	}
	if err := inst.validateShape(); err != nil {
		return err
	}
	if err := inst.validateDurations(); err != nil {
		return err
	}
	if err := inst.validateCoverage(); err != nil {
		return err
	}
	if err := inst.validateSetup(); err != nil {
		return err
	}
	if err := inst.validateWindows(); err != nil {
		return err
	}
	if bound := inst.TotalTime() + inst.SetupBound(); inst.BigM <= bound {
		return violationf("big-m", "M must exceed total time plus setup bound %d (got %d)", bound, inst.BigM)
	}
	return nil
}

func (inst *Instance) validateShape() error {
	if inst.Operations <= 0 {
		return violationf("shape", "operations must be > 0 (got %d)", inst.Operations)
	}
	if inst.Surgeons <= 0 {
		return violationf("shape", "surgeons must be > 0 (got %d)", inst.Surgeons)
	}
	if inst.Rooms <= 0 {
		return violationf("shape", "rooms must be > 0 (got %d)", inst.Rooms)
	}
	if inst.Types <= 0 {
		return violationf("shape", "types must be > 0 (got %d)", inst.Types)
	}
	lengths := []struct {
		name      string
		got, want int
	}{
		{"op_type", len(inst.OpType), inst.Operations},
		{"tp", len(inst.TP), inst.Operations},
		{"tc", len(inst.TC), inst.Operations},
		{"tn", len(inst.TN), inst.Operations},
		{"tt", len(inst.TT), inst.Operations},
		{"compat", len(inst.Compat), inst.Operations * inst.Rooms},
		{"capable", len(inst.Capable), inst.Surgeons * inst.Operations},
		{"start", len(inst.Start), inst.Surgeons},
		{"end", len(inst.End), inst.Surgeons},
		{"type_setup", len(inst.TypeSetup), inst.Types * inst.Types},
		{"setup", len(inst.Setup), inst.Operations * inst.Operations},
	}
	for _, l := range lengths {
		if l.got != l.want {
			return violationf("shape", "%s length must be %d (got %d)", l.name, l.want, l.got)
		}
	}
	for o, t := range inst.OpType {
		if t < 0 || t >= inst.Types {
			return violationf("shape", "op_type[%d]=%d out of range [0,%d)", o, t, inst.Types)
		}
	}
	return nil
}

func (inst *Instance) validateDurations() error {
	for o := 0; o < inst.Operations; o++ {
		if inst.TP[o] <= 0 || inst.TC[o] <= 0 || inst.TN[o] <= 0 {
			return violationf("durations", "operation %d has non-positive duration (tp=%d tc=%d tn=%d)", o, inst.TP[o], inst.TC[o], inst.TN[o])
		}
		if sum := inst.TP[o] + inst.TC[o] + inst.TN[o]; inst.TT[o] != sum {
			return violationf("durations", "tt[%d] must be tp+tc+tn=%d (got %d)", o, sum, inst.TT[o])
		}
		if inst.TT[o] > inst.Tmax {
			return violationf("horizon", "tt[%d]=%d exceeds tmax %d", o, inst.TT[o], inst.Tmax)
		}
	}
	return nil
}

func (inst *Instance) validateCoverage() error {
	for o := 0; o < inst.Operations; o++ {
		if len(inst.CompatibleRooms(o)) == 0 {
			return violationf("room-coverage", "operation %d has no compatible room", o)
		}
		if len(inst.CapableSurgeons(o)) == 0 {
			return violationf("surgeon-coverage", "operation %d has no capable surgeon", o)
		}
	}
	for c := 0; c < inst.Surgeons; c++ {
		if len(inst.CapableOperations(c)) == 0 {
			return violationf("dead-surgeon", "surgeon %d has no assignable operation", c)
		}
	}
	return nil
}

func (inst *Instance) validateSetup() error {
	for i, v := range inst.TypeSetup {
		if v < 0 {
			return violationf("setup", "type_setup[%d] must be >= 0 (got %d)", i, v)
		}
	}
	for o1 := 0; o1 < inst.Operations; o1++ {
		for o2 := 0; o2 < inst.Operations; o2++ {
			got := inst.TD(o1, o2)
			want := inst.TypeCost(inst.OpType[o1], inst.OpType[o2])
			if o1 == o2 {
				want = 0
			}
			if got != want {
				return violationf("setup", "td[%d][%d] must be %d (got %d)", o1, o2, want, got)
			}
		}
	}
	return nil
}

func (inst *Instance) validateWindows() error {
	if inst.BigM <= inst.Tmax {
		return violationf("big-m", "M must exceed tmax %d (got %d)", inst.Tmax, inst.BigM)
	}
	for c := 0; c < inst.Surgeons; c++ {
		f, g := inst.Start[c], inst.End[c]
		if f < 0 || g <= f || g > inst.Tmax {
			return violationf("windows", "surgeon %d window [%d,%d] must satisfy 0 <= F < G <= %d", c, f, g, inst.Tmax)
		}
		for _, o := range inst.CapableOperations(c) {
			if inst.TT[o] > g-f {
				return violationf("windows", "surgeon %d window %d too short for operation %d (tt=%d)", c, g-f, o, inst.TT[o])
			}
		}
	}
	return nil
}

func consistencyError(err error) error {
	var v *violation
	if errors.As(err, &v) {
		return &InternalConsistencyError{Invariant: v.invariant, Err: err}
	}
	return &InternalConsistencyError{Invariant: "unknown", Err: fmt.Errorf("validate: %w", err)}
}
