package orasp

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/google/uuid"
)

// Request bundles the cardinalities, seed and difficulty params of one
// generation. A nil Seed draws a fresh one, recorded in Instance.Seed.
type Request struct {
	Operations int    `json:"operations" yaml:"operations"`
	Surgeons   int    `json:"surgeons" yaml:"surgeons"`
	Rooms      int    `json:"rooms" yaml:"rooms"`
	Seed       *int64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	Params     Params `json:"params" yaml:"params"`
}

// Seeded is a helper for filling Request.Seed.
func Seeded(seed int64) *int64 { return &seed }

func validateSizes(ops, surgeons, rooms int) error {
	for _, f := range []struct {
		field string
		n     int
	}{
		{"operations", ops},
		{"surgeons", surgeons},
		{"rooms", rooms},
	} {
		if f.n <= 0 || f.n > MaxEntities {
			return invalidf(f.field, "must be in [1,%d] (got %d)", MaxEntities, f.n)
		}
	}
	return nil
}

func (r Request) Validate() error {
	if err := validateSizes(r.Operations, r.Surgeons, r.Rooms); err != nil {
		return err
	}
	return r.Params.Validate()
}

// Generate produces one validated instance for req.
func Generate(req Request) (*Instance, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var seed int64
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		var err error
		if seed, err = freshSeed(); err != nil {
			return nil, fmt.Errorf("draw seed: %w", err)
		}
	}

	g, err := NewGenerator(req.Params, rand.New(rand.NewSource(seed)))
	if err != nil {
		return nil, err
	}
	inst, err := g.Generate(req.Operations, req.Surgeons, req.Rooms)
	if err != nil {
		return nil, err
	}
	inst.Seed = seed
	inst.ID = InstanceID(req.Operations, req.Surgeons, req.Rooms, seed, req.Params)
	return inst, nil
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("orasp.instance"))

// InstanceID derives a stable UUIDv5 from everything that determines an
// instance, so equal requests always carry equal IDs.
func InstanceID(ops, surgeons, rooms int, seed int64, p Params) string {
	key, _ := json.Marshal(struct {
		O, C, S int
		Seed    int64
		Params  Params
	}{ops, surgeons, rooms, seed, p})
	return uuid.NewSHA1(idNamespace, key).String()
}

func freshSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b[:]) &^ (1 << 63)), nil
}

// Generator samples instances from Params using an explicitly owned RNG.
// It is not safe for concurrent use; give every goroutine its own.
type Generator struct {
	Params Params
	Rng    *rand.Rand
}

func NewGenerator(p Params, rng *rand.Rand) (*Generator, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("random number generator is nil")
	}
	return &Generator{Params: p, Rng: rng}, nil
}

func (g *Generator) Generate(ops, surgeons, rooms int) (*Instance, error) {
	if err := validateSizes(ops, surgeons, rooms); err != nil {
		return nil, err
	}
	if err := g.Params.Validate(); err != nil {
		return nil, err
	}

	inst := &Instance{
		Operations: ops,
		Surgeons:   surgeons,
		Rooms:      rooms,
		Types:      g.Params.OperationTypes,
		OpType:     make([]int, ops),
		TP:         make([]int, ops),
		TC:         make([]int, ops),
		TN:         make([]int, ops),
		TT:         make([]int, ops),
		Compat:     make([]bool, ops*rooms),
		Capable:    make([]bool, surgeons*ops),
		Start:      make([]int, surgeons),
		End:        make([]int, surgeons),
		TypeSetup:  make([]int, g.Params.OperationTypes*g.Params.OperationTypes),
		Setup:      make([]int, ops*ops),
	}

	if g.Params.TypeMode == TypeUniform {
		for o := range inst.OpType {
			inst.OpType[o] = g.Rng.Intn(inst.Types)
		}
	}
	g.sampleDurations(inst)
	g.buildCompat(inst)
	g.buildCapability(inst)
	if g.Params.TypeMode == TypeSpecialty {
		g.assignSpecialties(inst)
	}
	g.buildSetup(inst)
	inst.Tmax = g.horizon(inst)
	g.buildWindows(inst)
	inst.BigM = g.bigM(inst)

	return checked(inst)
}

// checked is the final validation pass: any broken invariant is a
// generator defect and no partial instance is returned.
func checked(inst *Instance) (*Instance, error) {
	if err := inst.Validate(); err != nil {
		return nil, consistencyError(err)
	}
	return inst, nil
}

func (g *Generator) intIn(r Range) int {
	return r.Min + g.Rng.Intn(r.Max-r.Min+1)
}

func (g *Generator) surgeryTime() int {
	p := g.Params
	if p.SurgeryDist == DistUniform {
		return g.intIn(p.SurgeryTime)
	}
	v := math.Exp(p.SurgeryMu+p.SurgerySigma*g.Rng.NormFloat64()) + 1
	if v >= float64(p.SurgeryTime.Max) {
		return p.SurgeryTime.Max
	}
	return max(int(v), p.SurgeryTime.Min)
}

func (g *Generator) sampleDurations(inst *Instance) {
	for o := 0; o < inst.Operations; o++ {
		inst.TP[o] = g.intIn(g.Params.PrepTime)
		inst.TC[o] = g.surgeryTime()
		inst.TN[o] = g.intIn(g.Params.CleanTime)
		inst.TT[o] = inst.TP[o] + inst.TC[o] + inst.TN[o]
	}
}

// buildCompat samples A and then forces one room for every empty row.
func (g *Generator) buildCompat(inst *Instance) {
	for o := 0; o < inst.Operations; o++ {
		row := inst.Compat[o*inst.Rooms : (o+1)*inst.Rooms]
		covered := false
		for s := range row {
			row[s] = g.Params.AllRoomsAvailable || g.Rng.Float64() < g.Params.CompatibilityDensity
			covered = covered || row[s]
		}
		if !covered {
			row[g.Rng.Intn(inst.Rooms)] = true
			inst.Repairs.Rooms++
		}
	}
}

// buildCapability samples X, repairs operations first and surgeons second.
// Repairs only add entries, so the second pass cannot undo the first.
func (g *Generator) buildCapability(inst *Instance) {
	switch g.Params.CapabilityMode {
	case CapabilityRoundRobin:
		for o := 0; o < inst.Operations; o++ {
			inst.Capable[(o%inst.Surgeons)*inst.Operations+o] = true
		}
	default:
		for i := range inst.Capable {
			inst.Capable[i] = g.Rng.Float64() < g.Params.CapabilityDensity
		}
	}

	for o := 0; o < inst.Operations; o++ {
		if len(inst.CapableSurgeons(o)) == 0 {
			c := g.Rng.Intn(inst.Surgeons)
			inst.Capable[c*inst.Operations+o] = true
			inst.Repairs.Operations++
		}
	}
	for c := 0; c < inst.Surgeons; c++ {
		if len(inst.CapableOperations(c)) == 0 {
			o := g.Rng.Intn(inst.Operations)
			inst.Capable[c*inst.Operations+o] = true
			inst.Repairs.Surgeons++
		}
	}
}

func (g *Generator) assignSpecialties(inst *Instance) {
	specialty := make([]int, inst.Surgeons)
	for c := range specialty {
		specialty[c] = g.Rng.Intn(inst.Types)
	}
	for o := 0; o < inst.Operations; o++ {
		inst.OpType[o] = specialty[inst.CapableSurgeons(o)[0]]
	}
}

func (g *Generator) buildSetup(inst *Instance) {
	p := g.Params
	k := inst.Types
	if p.SetupTimes {
		for t1 := 0; t1 < k; t1++ {
			for t2 := 0; t2 < k; t2++ {
				switch {
				case t1 == t2:
					inst.TypeSetup[t1*k+t2] = p.SameTypeSetup
				case p.SymmetricSetup && t2 < t1:
					inst.TypeSetup[t1*k+t2] = inst.TypeSetup[t2*k+t1]
				default:
					raw := g.Rng.Intn(p.MaxSetupTime + 1)
					inst.TypeSetup[t1*k+t2] = int(math.Round(float64(raw) * p.SetupScale))
				}
			}
		}
	}
	for o1 := 0; o1 < inst.Operations; o1++ {
		for o2 := 0; o2 < inst.Operations; o2++ {
			if o1 == o2 {
				continue
			}
			inst.Setup[o1*inst.Operations+o2] = inst.TypeCost(inst.OpType[o1], inst.OpType[o2])
		}
	}
}

// horizon returns the Tmax override, or the per-room share of the total
// workload (durations plus the cheapest outgoing setup of every
// operation) inflated by HorizonSlack.
func (g *Generator) horizon(inst *Instance) int {
	if g.Params.Horizon > 0 {
		return g.Params.Horizon
	}
	longest := 0
	for _, v := range inst.TT {
		longest = max(longest, v)
	}

	load := inst.TotalTime()
	for o1 := 0; o1 < inst.Operations; o1++ {
		cheapest := -1
		for o2 := 0; o2 < inst.Operations; o2++ {
			if o1 != o2 && (cheapest < 0 || inst.TD(o1, o2) < cheapest) {
				cheapest = inst.TD(o1, o2)
			}
		}
		if cheapest > 0 {
			load += cheapest
		}
	}
	perRoom := math.Ceil(float64(load) / float64(inst.Rooms))
	return max(longest, int(math.Ceil(perRoom*g.Params.HorizonSlack)))
}

// buildWindows sizes every surgeon window to cover a random subset of the
// surgeon's capable operations (never shorter than the longest one),
// inflated by WindowSlack and placed uniformly inside [0, Tmax].
func (g *Generator) buildWindows(inst *Instance) {
	p := g.Params
	for c := 0; c < inst.Surgeons; c++ {
		if p.WindowMode == WindowFullDay {
			inst.Start[c], inst.End[c] = 0, inst.Tmax
			continue
		}

		ops := inst.CapableOperations(c)
		subset, longest, picked := 0, 0, false
		for _, o := range ops {
			longest = max(longest, inst.TT[o])
			if g.Rng.Float64() < p.WindowSubsetRate {
				subset += inst.TT[o]
				picked = true
			}
		}
		if !picked {
			subset += inst.TT[ops[g.Rng.Intn(len(ops))]]
		}

		need := int(math.Ceil(float64(max(subset, longest)) * p.WindowSlack))
		length := min(need, inst.Tmax)
		start := 0
		if free := inst.Tmax - length; free > 0 {
			start = g.Rng.Intn(free + 1)
		}
		inst.Start[c], inst.End[c] = start, start+length
	}
}

// bigM exceeds every cumulative time a schedule of this instance can reach.
func (g *Generator) bigM(inst *Instance) int {
	m := inst.TotalTime() + inst.SetupBound() + 1
	m = max(m, inst.Tmax+1)
	for _, v := range inst.End {
		m = max(m, v+1)
	}
	return max(m, g.Params.BigMFloor)
}
