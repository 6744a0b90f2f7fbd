package stats

import "math"

// Stats summarises a sample; Std is the sample standard deviation.
type Stats[T int | float64] struct {
	N    int
	Min  T
	Max  T
	Mean float64
	Std  float64
}

type (
	IntStats   = Stats[int]
	FloatStats = Stats[float64]
)

func CalcIntStats(values []int) IntStats { return calc(values) }

func CalcFloatStats(values []float64) FloatStats { return calc(values) }

func calc[T int | float64](values []T) Stats[T] {
	s := Stats[T]{N: len(values)}
	if s.N == 0 {
		return s
	}

	s.Min, s.Max = values[0], values[0]
	sum := 0.0
	for _, v := range values {
		s.Min = min(s.Min, v)
		s.Max = max(s.Max, v)
		sum += float64(v)
	}
	s.Mean = sum / float64(s.N)

	if s.N >= 2 {
		variance := 0.0
		for _, v := range values {
			d := float64(v) - s.Mean
			variance += d * d
		}
		s.Std = math.Sqrt(variance / float64(s.N-1))
	}
	return s
}

// Density is the share of true values, 0 for an empty slice.
func Density(values []bool) float64 {
	if len(values) == 0 {
		return 0
	}
	n := 0
	for _, v := range values {
		if v {
			n++
		}
	}
	return float64(n) / float64(len(values))
}
