package stats_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orasp/internal/orasp"
	"orasp/internal/stats"
)

func TestCalcIntStats(t *testing.T) {
	s := stats.CalcIntStats([]int{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 8, s.N)
	assert.Equal(t, 2, s.Min)
	assert.Equal(t, 9, s.Max)
	assert.InDelta(t, 5.0, s.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(32.0/7.0), s.Std, 1e-9)

	assert.Equal(t, stats.IntStats{}, stats.CalcIntStats(nil))
	single := stats.CalcIntStats([]int{3})
	assert.Zero(t, single.Std)
}

func TestCalcFloatStats(t *testing.T) {
	s := stats.CalcFloatStats([]float64{0.5, 1.5})
	assert.InDelta(t, 1.0, s.Mean, 1e-9)
	assert.InDelta(t, 0.5, s.Min, 1e-9)
	assert.InDelta(t, 1.5, s.Max, 1e-9)
	assert.InDelta(t, math.Sqrt(0.5), s.Std, 1e-9)

	assert.Equal(t, stats.FloatStats{}, stats.CalcFloatStats(nil))
	neg := stats.CalcFloatStats([]float64{-2.5})
	assert.Equal(t, stats.FloatStats{N: 1, Min: -2.5, Max: -2.5, Mean: -2.5}, neg)
}

func TestDensity(t *testing.T) {
	assert.Zero(t, stats.Density(nil))
	assert.InDelta(t, 0.25, stats.Density([]bool{true, false, false, false}), 1e-9)
}

func TestSummarize(t *testing.T) {
	p := orasp.DefaultParams()
	p.WindowMode = orasp.WindowFullDay
	inst, err := orasp.Generate(orasp.Request{Operations: 10, Surgeons: 3, Rooms: 2, Seed: orasp.Seeded(42), Params: p})
	require.NoError(t, err)

	s := stats.Summarize(inst)
	assert.Equal(t, 10, s.TotalTime.N)
	assert.Equal(t, 90, s.Setup.N)
	assert.InDelta(t, 1.0, s.WindowShare, 1e-9)
	assert.Greater(t, s.CompatDensity, 0.0)
	assert.LessOrEqual(t, s.CompatDensity, 1.0)
	assert.Greater(t, s.Load, 0.0)
	assert.LessOrEqual(t, s.Load, 1.0)
}
