package export

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"orasp/internal/orasp"
)

// Format is an on-disk instance encoding.
type Format string

const (
	// FormatDat is the OPL data layout consumed by the CPLEX models.
	FormatDat  Format = "dat"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatDat, FormatJSON, FormatYAML:
		return f, nil
	case "txt":
		return FormatDat, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want dat, json or yaml)", s)
	}
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
}

func (f Format) Ext() string { return string(f) }

func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

// FileName follows the o{O}_c{C}_s{S}[_ST]_instance_{i} naming of the
// benchmark sets; _ST marks instances generated with setup times.
func FileName(inst *orasp.Instance, index int, setupTimes bool, f Format) string {
	suffix := ""
	if setupTimes {
		suffix = "_ST"
	}
	return fmt.Sprintf("o%d_c%d_s%d%s_instance_%d.%s", inst.Operations, inst.Surgeons, inst.Rooms, suffix, index, f.Ext())
}

func Encode(w io.Writer, inst *orasp.Instance, f Format) error {
	switch f {
	case FormatDat:
		return writeDat(w, inst)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(inst)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(inst); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

func Marshal(inst *orasp.Instance, f Format) ([]byte, error) {
	var b strings.Builder
	if err := Encode(&b, inst, f); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

func Decode(r io.Reader, f Format) (*orasp.Instance, error) {
	var inst orasp.Instance
	switch f {
	case FormatDat:
		return readDat(r)
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&inst); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&inst); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown format %q", f)
	}
	return &inst, nil
}
