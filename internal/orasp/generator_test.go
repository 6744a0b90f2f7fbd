package orasp_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orasp/internal/orasp"
)

func generate(t *testing.T, ops, surgeons, rooms int, seed int64, p orasp.Params) *orasp.Instance {
	t.Helper()
	inst, err := orasp.Generate(orasp.Request{
		Operations: ops,
		Surgeons:   surgeons,
		Rooms:      rooms,
		Seed:       orasp.Seeded(seed),
		Params:     p,
	})
	require.NoError(t, err)
	require.NotNil(t, inst)
	return inst
}

func TestGenerateScaleExample(t *testing.T) {
	inst := generate(t, 10, 3, 2, 42, orasp.DefaultParams())

	assert.Equal(t, 10, inst.Operations)
	assert.Equal(t, 3, inst.Surgeons)
	assert.Equal(t, 2, inst.Rooms)
	assert.Len(t, inst.Compat, 10*2)
	assert.Len(t, inst.Capable, 3*10)
	assert.Len(t, inst.Setup, 10*10)
	assert.Equal(t, int64(42), inst.Seed)
	require.NoError(t, inst.Validate())

	again := generate(t, 10, 3, 2, 42, orasp.DefaultParams())
	assert.Equal(t, inst, again)

	other := generate(t, 10, 3, 2, 43, orasp.DefaultParams())
	require.NoError(t, other.Validate())
	assert.NotEqual(t, inst.ID, other.ID)
	assert.NotEqual(t, inst.TT, other.TT)
}

func TestGenerateSingleEntityForcedByRepair(t *testing.T) {
	p := orasp.DefaultParams()
	p.CompatibilityDensity = 0
	p.CapabilityDensity = 0

	inst := generate(t, 1, 1, 1, 7, p)

	assert.True(t, inst.A(0, 0))
	assert.True(t, inst.X(0, 0))
	assert.Equal(t, orasp.Repairs{Rooms: 1, Operations: 1, Surgeons: 0}, inst.Repairs)
	assert.Equal(t, 0, inst.TD(0, 0))
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	mutate := func(f func(p *orasp.Params)) orasp.Params {
		p := orasp.DefaultParams()
		f(&p)
		return p
	}

	testCases := []struct {
		name   string
		ops    int
		surg   int
		rooms  int
		params orasp.Params
		field  string
	}{
		{"zero operations", 0, 3, 2, orasp.DefaultParams(), "operations"},
		{"negative surgeons", 10, -1, 2, orasp.DefaultParams(), "surgeons"},
		{"zero rooms", 10, 3, 0, orasp.DefaultParams(), "rooms"},
		{"empty prep range", 10, 3, 2, mutate(func(p *orasp.Params) { p.PrepTime = orasp.Range{Min: 10, Max: 5} }), "prep_time"},
		{"non-positive clean time", 10, 3, 2, mutate(func(p *orasp.Params) { p.CleanTime.Min = 0 }), "clean_time"},
		{"density above one", 10, 3, 2, mutate(func(p *orasp.Params) { p.CompatibilityDensity = 1.5 }), "compatibility_density"},
		{"negative capability density", 10, 3, 2, mutate(func(p *orasp.Params) { p.CapabilityDensity = -0.1 }), "capability_density"},
		{"no operation types", 10, 3, 2, mutate(func(p *orasp.Params) { p.OperationTypes = 0 }), "operation_types"},
		{"negative setup scale", 10, 3, 2, mutate(func(p *orasp.Params) { p.SetupScale = -1 }), "setup_scale"},
		{"horizon too short", 10, 3, 2, mutate(func(p *orasp.Params) { p.Horizon = 10 }), "horizon"},
		{"window slack below one", 10, 3, 2, mutate(func(p *orasp.Params) { p.WindowSlack = 0.5 }), "window_slack"},
		{"unknown distribution", 10, 3, 2, mutate(func(p *orasp.Params) { p.SurgeryDist = "normal" }), "surgery_dist"},
		{"unknown type mode", 10, 3, 2, mutate(func(p *orasp.Params) { p.TypeMode = "weighted" }), "type_mode"},

		{"too many operations", orasp.MaxEntities + 1, 3, 2, orasp.DefaultParams(), "operations"},
		{"too many surgeons", 10, math.MaxInt, 2, orasp.DefaultParams(), "surgeons"},
		{"too many rooms", 10, 3, math.MaxInt, orasp.DefaultParams(), "rooms"},
		{"prep max overflow", 5, 2, 2, mutate(func(p *orasp.Params) { p.PrepTime.Max = math.MaxInt }), "prep_time"},
		{"surgery max overflow", 5, 2, 2, mutate(func(p *orasp.Params) { p.SurgeryTime.Max = math.MaxInt }), "surgery_time"},
		{"clean max above bound", 5, 2, 2, mutate(func(p *orasp.Params) { p.CleanTime.Max = orasp.MaxDuration + 1 }), "clean_time"},
		{"infinite surgery mu", 5, 2, 2, mutate(func(p *orasp.Params) { p.SurgeryMu = math.Inf(1) }), "surgery_mu"},
		{"nan surgery sigma", 5, 2, 2, mutate(func(p *orasp.Params) { p.SurgerySigma = math.NaN() }), "surgery_sigma"},
		{"nan density", 5, 2, 2, mutate(func(p *orasp.Params) { p.CompatibilityDensity = math.NaN() }), "compatibility_density"},
		{"max setup time overflow", 5, 2, 2, mutate(func(p *orasp.Params) { p.MaxSetupTime = math.MaxInt }), "max_setup_time"},
		{"huge setup scale", 5, 2, 2, mutate(func(p *orasp.Params) { p.SetupScale = 1e300 }), "setup_scale"},
		{"scaled setup above bound", 5, 2, 2, mutate(func(p *orasp.Params) {
			p.MaxSetupTime = orasp.MaxDuration
			p.SetupScale = 1.5
		}), "setup_scale"},
		{"infinite setup scale", 5, 2, 2, mutate(func(p *orasp.Params) { p.SetupScale = math.Inf(1) }), "setup_scale"},
		{"same type setup overflow", 5, 2, 2, mutate(func(p *orasp.Params) { p.SameTypeSetup = math.MaxInt }), "same_type_setup"},
		{"horizon overflow", 5, 2, 2, mutate(func(p *orasp.Params) { p.Horizon = math.MaxInt }), "horizon"},
		{"huge horizon slack", 5, 2, 2, mutate(func(p *orasp.Params) { p.HorizonSlack = 1e300 }), "horizon_slack"},
		{"nan horizon slack", 5, 2, 2, mutate(func(p *orasp.Params) { p.HorizonSlack = math.NaN() }), "horizon_slack"},
		{"huge window slack", 5, 2, 2, mutate(func(p *orasp.Params) { p.WindowSlack = 1e300 }), "window_slack"},
		{"nan subset rate", 5, 2, 2, mutate(func(p *orasp.Params) { p.WindowSubsetRate = math.NaN() }), "window_subset_rate"},
		{"big m floor overflow", 5, 2, 2, mutate(func(p *orasp.Params) { p.BigMFloor = math.MaxInt }), "big_m_floor"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			inst, err := orasp.Generate(orasp.Request{
				Operations: tc.ops,
				Surgeons:   tc.surg,
				Rooms:      tc.rooms,
				Seed:       orasp.Seeded(1),
				Params:     tc.params,
			})
			require.Error(t, err)
			assert.Nil(t, inst)
			assert.True(t, errors.Is(err, orasp.ErrInvalidParameter))
			assert.False(t, errors.Is(err, orasp.ErrInternalConsistency))

			var perr *orasp.InvalidParameterError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tc.field, perr.Field)
		})
	}
}

// Every knob at its accepted upper bound must still yield a valid instance.
func TestGenerateAtParameterBounds(t *testing.T) {
	p := orasp.DefaultParams()
	p.PrepTime = orasp.Range{Min: 1, Max: orasp.MaxDuration}
	p.SurgeryTime = orasp.Range{Min: 1, Max: orasp.MaxDuration}
	p.CleanTime = orasp.Range{Min: 1, Max: orasp.MaxDuration}
	p.MaxSetupTime = orasp.MaxDuration
	p.SetupScale = 1
	p.SameTypeSetup = orasp.MaxDuration
	p.HorizonSlack = orasp.MaxSlack
	p.WindowSlack = orasp.MaxSlack
	p.BigMFloor = orasp.MaxHorizon

	for _, dist := range []orasp.Distribution{orasp.DistUniform, orasp.DistLognormal} {
		p.SurgeryDist = dist
		p.SurgeryMu = 700
		for seed := int64(0); seed < 5; seed++ {
			inst, err := orasp.Generate(orasp.Request{Operations: 20, Surgeons: 4, Rooms: 3, Seed: orasp.Seeded(seed), Params: p})
			require.NoError(t, err, "%s seed %d", dist, seed)
			assert.False(t, errors.Is(err, orasp.ErrInternalConsistency))
			require.NoError(t, inst.Validate())
			assert.GreaterOrEqual(t, inst.BigM, orasp.MaxHorizon)
		}
	}

	h := orasp.DefaultParams()
	h.Horizon = orasp.MaxHorizon
	inst, err := orasp.Generate(orasp.Request{Operations: 5, Surgeons: 2, Rooms: 2, Seed: orasp.Seeded(1), Params: h})
	require.NoError(t, err)
	assert.Equal(t, orasp.MaxHorizon, inst.Tmax)
}

func paramVariants() map[string]orasp.Params {
	base := orasp.DefaultParams()
	variants := map[string]orasp.Params{"defaults": base}

	sparse := base
	sparse.CompatibilityDensity = 0.05
	sparse.CapabilityDensity = 0.01
	variants["sparse"] = sparse

	zero := base
	zero.CompatibilityDensity = 0
	zero.CapabilityDensity = 0
	variants["zero density"] = zero

	legacy := base
	legacy.CapabilityMode = orasp.CapabilityRoundRobin
	legacy.TypeMode = orasp.TypeSpecialty
	legacy.WindowMode = orasp.WindowFullDay
	legacy.BigMFloor = 999999
	variants["legacy"] = legacy

	uniform := base
	uniform.SurgeryDist = orasp.DistUniform
	uniform.SymmetricSetup = true
	uniform.SameTypeSetup = 3
	uniform.SetupScale = 2.5
	variants["uniform symmetric"] = uniform

	noSetup := base
	noSetup.SetupTimes = false
	noSetup.AllRoomsAvailable = true
	variants["no setup"] = noSetup

	horizon := base
	horizon.Horizon = 600
	horizon.WindowSlack = 3
	variants["fixed horizon"] = horizon

	return variants
}

func TestGenerateInvariantsHoldAcrossSeeds(t *testing.T) {
	sizes := [][3]int{{1, 1, 1}, {5, 8, 1}, {10, 3, 2}, {25, 4, 6}, {40, 10, 3}}

	for name, p := range paramVariants() {
		t.Run(name, func(t *testing.T) {
			for _, sz := range sizes {
				for seed := int64(0); seed < 20; seed++ {
					inst := generate(t, sz[0], sz[1], sz[2], seed, p)
					require.NoError(t, inst.Validate())

					for o := 0; o < inst.Operations; o++ {
						assert.NotEmpty(t, inst.CompatibleRooms(o), "operation %d has no room", o)
						assert.NotEmpty(t, inst.CapableSurgeons(o), "operation %d has no surgeon", o)
						assert.Equal(t, inst.TP[o]+inst.TC[o]+inst.TN[o], inst.TT[o])
						assert.Positive(t, inst.TP[o])
						assert.Positive(t, inst.TC[o])
						assert.Positive(t, inst.TN[o])
					}
					for c := 0; c < inst.Surgeons; c++ {
						assert.NotEmpty(t, inst.CapableOperations(c), "surgeon %d is dead", c)
					}
				}
			}
		})
	}
}

func TestBigMExceedsEverySequence(t *testing.T) {
	inst := generate(t, 30, 5, 3, 99, orasp.DefaultParams())
	eval, err := orasp.NewEvaluator(inst)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 200; i++ {
		seq := rng.Perm(inst.Operations)
		assert.Less(t, eval.MustSequenceTime(seq), inst.BigM)
	}
	assert.Greater(t, inst.BigM, inst.TotalTime()+inst.SetupBound())
	assert.Greater(t, inst.BigM, inst.Tmax)
}

func TestGenerateWithoutSeedRecordsReplayableSeed(t *testing.T) {
	p := orasp.DefaultParams()
	inst, err := orasp.Generate(orasp.Request{Operations: 12, Surgeons: 3, Rooms: 2, Params: p})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, inst.Seed, int64(0))

	replay := generate(t, 12, 3, 2, inst.Seed, p)
	assert.Equal(t, inst, replay)
}

func TestGenerateDisabledSetupTimesAreZero(t *testing.T) {
	p := orasp.DefaultParams()
	p.SetupTimes = false
	inst := generate(t, 15, 4, 4, 3, p)

	for _, v := range inst.Setup {
		assert.Zero(t, v)
	}
	for _, v := range inst.TypeSetup {
		assert.Zero(t, v)
	}
}

func TestGenerateSymmetricTypeTable(t *testing.T) {
	p := orasp.DefaultParams()
	p.SymmetricSetup = true
	p.OperationTypes = 6
	inst := generate(t, 20, 4, 3, 11, p)

	for t1 := 0; t1 < inst.Types; t1++ {
		for t2 := 0; t2 < inst.Types; t2++ {
			assert.Equal(t, inst.TypeCost(t1, t2), inst.TypeCost(t2, t1))
		}
	}
	for o1 := 0; o1 < inst.Operations; o1++ {
		for o2 := 0; o2 < inst.Operations; o2++ {
			assert.Equal(t, inst.TD(o1, o2), inst.TD(o2, o1))
		}
	}
}

func TestGenerateRoundRobinRepairsIdleSurgeons(t *testing.T) {
	p := orasp.DefaultParams()
	p.CapabilityMode = orasp.CapabilityRoundRobin
	inst := generate(t, 3, 5, 2, 1, p)

	for o := 0; o < 3; o++ {
		assert.True(t, inst.X(o, o))
	}
	assert.Equal(t, 0, inst.Repairs.Operations)
	assert.Equal(t, 2, inst.Repairs.Surgeons)
}

func TestGenerateSpecialtyTypesFollowFirstSurgeon(t *testing.T) {
	p := orasp.DefaultParams()
	p.TypeMode = orasp.TypeSpecialty
	p.OperationTypes = 3
	inst := generate(t, 30, 4, 3, 21, p)

	byFirst := map[int]int{}
	for o := 0; o < inst.Operations; o++ {
		first := inst.CapableSurgeons(o)[0]
		if typ, ok := byFirst[first]; ok {
			assert.Equal(t, typ, inst.OpType[o], "operation %d", o)
			continue
		}
		byFirst[first] = inst.OpType[o]
	}
}

func TestGenerateHorizonOverride(t *testing.T) {
	p := orasp.DefaultParams()
	p.Horizon = p.MaxTotalTime()
	inst := generate(t, 10, 3, 2, 8, p)

	assert.Equal(t, p.MaxTotalTime(), inst.Tmax)
	for c := 0; c < inst.Surgeons; c++ {
		assert.GreaterOrEqual(t, inst.Start[c], 0)
		assert.LessOrEqual(t, inst.End[c], inst.Tmax)
	}
}

func TestGenerateBigMFloor(t *testing.T) {
	p := orasp.DefaultParams()
	p.BigMFloor = 999999
	inst := generate(t, 10, 3, 2, 8, p)
	assert.Equal(t, 999999, inst.BigM)
}

func TestInstanceIDIsStable(t *testing.T) {
	p := orasp.DefaultParams()
	a := orasp.InstanceID(10, 3, 2, 42, p)
	assert.Equal(t, a, orasp.InstanceID(10, 3, 2, 42, p))
	assert.NotEqual(t, a, orasp.InstanceID(10, 3, 2, 43, p))

	p.SetupScale = 2
	assert.NotEqual(t, a, orasp.InstanceID(10, 3, 2, 42, p))
}

func TestNewGeneratorRequiresRng(t *testing.T) {
	_, err := orasp.NewGenerator(orasp.DefaultParams(), nil)
	require.Error(t, err)

	g, err := orasp.NewGenerator(orasp.DefaultParams(), rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	inst, err := g.Generate(4, 2, 2)
	require.NoError(t, err)
	assert.Empty(t, inst.ID)
}
