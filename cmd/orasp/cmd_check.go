package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"orasp/internal/batch"
	"orasp/internal/export"
	"orasp/internal/orasp"
	"orasp/internal/stats"
)

var (
	checkSequence string
	checkRoom     int
)

var checkCmd = &cobra.Command{
	Use:   "check FILE",
	Short: "Validate an instance file",
	Long: `Decodes an instance (format inferred from the extension) and checks every
structural invariant. With --sequence the busy time of that room sequence is
reported, and with --room also whether it fits that room within Tmax.

Examples:
  orasp check o10_c3_s2_ST_instance_0.dat
  orasp check inst.json --sequence 3,0,7 --room 1`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkSequence, "sequence", "", "Comma separated operation ids processed back to back in one room")
	checkCmd.Flags().IntVar(&checkRoom, "room", -1, "Room the sequence runs in")
}

func runCheck(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	path := args[0]
	format, err := export.FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	inst, err := export.Decode(f, format)
	if err != nil {
		return err
	}
	eval, err := orasp.NewEvaluator(inst)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	s := stats.Summarize(inst)
	fmt.Fprintf(out, "%s: ok id=%s seed=%d O=%d C=%d S=%d Tmax=%d M=%d load=%.3f\n",
		path, inst.ID, inst.Seed, inst.Operations, inst.Surgeons, inst.Rooms, inst.Tmax, inst.BigM, s.Load)

	if checkSequence == "" {
		return nil
	}
	seq, err := parseSequence(checkSequence)
	if err != nil {
		return err
	}
	busy, err := eval.SequenceTime(seq)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "sequence %v: busy=%d\n", seq, busy)

	if cmd.Flags().Changed("room") {
		fits, err := eval.Fits(seq, checkRoom)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "room %d: fits=%t\n", checkRoom, fits)
	}
	return nil
}

func parseSequence(s string) ([]int, error) {
	parts := batch.SplitCSV(s)
	seq := make([]int, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("sequence: %q is not an operation id", p)
		}
		seq[i] = v
	}
	return seq, nil
}
