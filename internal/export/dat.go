package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"orasp/internal/orasp"
)

func intList(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func intMatrix(rows [][]int) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = intList(r)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func boolRows(values []bool, cols int) [][]int {
	rows := make([][]int, len(values)/cols)
	for r := range rows {
		rows[r] = make([]int, cols)
		for c := 0; c < cols; c++ {
			if values[r*cols+c] {
				rows[r][c] = 1
			}
		}
	}
	return rows
}

func intRows(values []int, cols int) [][]int {
	rows := make([][]int, len(values)/cols)
	for r := range rows {
		rows[r] = values[r*cols : (r+1)*cols]
	}
	return rows
}

func indexSet(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func writeDat(w io.Writer, inst *orasp.Instance) error {
	bw := bufio.NewWriter(w)
	line := func(name, value string) {
		fmt.Fprintf(bw, "%s = %s; \n", name, value)
	}

	fmt.Fprintf(bw, "// id=%s seed=%d\n", inst.ID, inst.Seed)
	bw.WriteString("\n")
	line("O", intList(indexSet(inst.Operations)))
	line("C", intList(indexSet(inst.Surgeons)))
	line("S", intList(indexSet(inst.Rooms)))
	bw.WriteString("\n")
	line("A", intMatrix(boolRows(inst.Compat, inst.Rooms)))
	line("X", intMatrix(boolRows(inst.Capable, inst.Operations)))
	line("F", intList(inst.Start))
	line("G", intList(inst.End))
	line("TP", intList(inst.TP))
	line("TC", intList(inst.TC))
	line("TN", intList(inst.TN))
	line("TT", intList(inst.TT))
	line("T", intMatrix(inst.TypeOneHot()))
	line("TD", intMatrix(intRows(inst.Setup, inst.Operations)))
	line("Tmax", strconv.Itoa(inst.Tmax))
	line("M", strconv.Itoa(inst.BigM))
	bw.WriteString("\n")
	return bw.Flush()
}

func datField[T any](values map[string]json.RawMessage, name string) (T, error) {
	var out T
	raw, ok := values[name]
	if !ok {
		return out, fmt.Errorf("dat: missing %s", name)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("dat: parse %s: %w", name, err)
	}
	return out, nil
}

func flatten(name string, rows [][]int, cols int) ([]int, error) {
	out := make([]int, 0, len(rows)*cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("dat: %s row %d has %d columns (want %d)", name, i, len(r), cols)
		}
		out = append(out, r...)
	}
	return out, nil
}

func flattenBool(name string, rows [][]int, cols int) ([]bool, error) {
	flat, err := flatten(name, rows, cols)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(flat))
	for i, v := range flat {
		out[i] = v != 0
	}
	return out, nil
}

func parseHeader(line string, inst *orasp.Instance) {
	for _, kv := range strings.Fields(strings.TrimPrefix(line, "//")) {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch k {
		case "id":
			inst.ID = v
		case "seed":
			if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
				inst.Seed = seed
			}
		}
	}
}

// readDat parses the dat layout back into an Instance. The type setup
// table is rebuilt from TD, so pairs of unused types read back as zero.
func readDat(r io.Reader) (*orasp.Instance, error) {
	inst := &orasp.Instance{}
	var body strings.Builder
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(text, "//") {
			parseHeader(text, inst)
			continue
		}
		body.WriteString(text)
		body.WriteString("\n")
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("dat: read: %w", err)
	}

	values := map[string]json.RawMessage{}
	for _, stmt := range strings.Split(body.String(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		name, value, ok := strings.Cut(stmt, "=")
		if !ok {
			return nil, fmt.Errorf("dat: malformed statement %q", stmt)
		}
		values[strings.TrimSpace(name)] = json.RawMessage(strings.TrimSpace(value))
	}

	ops, err := datField[[]int](values, "O")
	if err != nil {
		return nil, err
	}
	surgeons, err := datField[[]int](values, "C")
	if err != nil {
		return nil, err
	}
	rooms, err := datField[[]int](values, "S")
	if err != nil {
		return nil, err
	}
	inst.Operations, inst.Surgeons, inst.Rooms = len(ops), len(surgeons), len(rooms)

	for _, f := range []struct {
		name string
		dst  *[]int
	}{
		{"F", &inst.Start}, {"G", &inst.End},
		{"TP", &inst.TP}, {"TC", &inst.TC}, {"TN", &inst.TN}, {"TT", &inst.TT},
	} {
		if *f.dst, err = datField[[]int](values, f.name); err != nil {
			return nil, err
		}
	}
	if inst.Tmax, err = datField[int](values, "Tmax"); err != nil {
		return nil, err
	}
	if inst.BigM, err = datField[int](values, "M"); err != nil {
		return nil, err
	}

	a, err := datField[[][]int](values, "A")
	if err != nil {
		return nil, err
	}
	if inst.Compat, err = flattenBool("A", a, inst.Rooms); err != nil {
		return nil, err
	}
	x, err := datField[[][]int](values, "X")
	if err != nil {
		return nil, err
	}
	if inst.Capable, err = flattenBool("X", x, inst.Operations); err != nil {
		return nil, err
	}
	td, err := datField[[][]int](values, "TD")
	if err != nil {
		return nil, err
	}
	if inst.Setup, err = flatten("TD", td, inst.Operations); err != nil {
		return nil, err
	}

	oneHot, err := datField[[][]int](values, "T")
	if err != nil {
		return nil, err
	}
	if len(oneHot) > 0 {
		inst.Types = len(oneHot[0])
	}
	inst.OpType = make([]int, len(oneHot))
	for o, row := range oneHot {
		if len(row) != inst.Types {
			return nil, fmt.Errorf("dat: T row %d has %d columns (want %d)", o, len(row), inst.Types)
		}
		for t, v := range row {
			if v != 0 {
				inst.OpType[o] = t
			}
		}
	}

	inst.TypeSetup = make([]int, inst.Types*inst.Types)
	if len(inst.Setup) == inst.Operations*inst.Operations && len(inst.OpType) == inst.Operations {
		for o1 := 0; o1 < inst.Operations; o1++ {
			for o2 := 0; o2 < inst.Operations; o2++ {
				if o1 != o2 {
					inst.TypeSetup[inst.OpType[o1]*inst.Types+inst.OpType[o2]] = inst.TD(o1, o2)
				}
			}
		}
	}
	return inst, nil
}
