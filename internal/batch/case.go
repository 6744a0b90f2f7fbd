package batch

import (
	"fmt"
	"strconv"
	"strings"
)

// Case is one instance size; InstanceSeed is the seed of its first
// instance, the i-th instance uses InstanceSeed+i.
type Case struct {
	Operations   int
	Surgeons     int
	Rooms        int
	InstanceSeed int64
}

func (c Case) String() string {
	return fmt.Sprintf("%dx%dx%d", c.Operations, c.Surgeons, c.Rooms)
}

// ParseCases reads sizes like "15x4x4,30x6x5" (operations x surgeons x
// rooms) and derives a distinct seed for every case.
func ParseCases(s string, baseSeed int64) ([]Case, error) {
	parts := SplitCSV(s)
	if len(parts) == 0 {
		return nil, fmt.Errorf("no sizes given, example: 15x4x4")
	}
	cases := make([]Case, 0, len(parts))
	seen := map[string]bool{}

	for i, p := range parts {
		fields := strings.Split(strings.ToLower(p), "x")
		if len(fields) != 3 {
			return nil, fmt.Errorf("size %q is malformed, example: 15x4x4", p)
		}
		var dims [3]int
		for j, f := range fields {
			v, err := strconv.Atoi(strings.TrimSpace(f))
			if err != nil {
				return nil, fmt.Errorf("size %q: %w", p, err)
			}
			if v <= 0 {
				return nil, fmt.Errorf("size %q: operations, surgeons and rooms must be > 0", p)
			}
			dims[j] = v
		}
		c := Case{Operations: dims[0], Surgeons: dims[1], Rooms: dims[2]}
		if seen[c.String()] {
			return nil, fmt.Errorf("size %q listed twice", p)
		}
		seen[c.String()] = true

		c.InstanceSeed = baseSeed + int64(i)*10_000 + int64(c.Operations)*100 + int64(c.Surgeons)*10 + int64(c.Rooms)
		cases = append(cases, c)
	}
	return cases, nil
}

func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
