package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"orasp/internal/catalog"
	"orasp/internal/export"
	"orasp/internal/orasp"
	"orasp/internal/stats"
	"orasp/internal/storage"
	"orasp/internal/telemetry"
)

// ManifestKey is the object key of the CSV written after every run.
const ManifestKey = "manifest.csv"

// Cataloger persists one row per generated instance.
type Cataloger interface {
	Save(ctx context.Context, rec catalog.Record) error
}

type Record struct {
	Case  string
	Index int
	ID    string
	Key   string
	Seed  int64

	Operations int
	Surgeons   int
	Rooms      int
	Tmax       int
	BigM       int

	TotalTimeMean  float64
	TotalTimeStd   float64
	SetupMean      float64
	CompatDensity  float64
	CapableDensity float64
	Load           float64
	Repairs        int

	DurationMs float64
}

type Runner struct {
	Count   int
	Workers int
	Params  orasp.Params
	Format  export.Format

	Store   storage.ObjectStore
	Catalog Cataloger // optional
	Metrics *telemetry.Metrics
	Logger  zerolog.Logger
}

func (r Runner) validate() error {
	if r.Count <= 0 {
		return fmt.Errorf("count must be > 0 (got %d)", r.Count)
	}
	if r.Store == nil {
		return fmt.Errorf("no object store configured")
	}
	if _, err := export.ParseFormat(string(r.Format)); err != nil {
		return err
	}
	return r.Params.Validate()
}

type job struct {
	c     Case
	index int
	slot  int
}

type result struct {
	rec Record
	cat catalog.Record
}

// Run generates Count instances per case. Instances are independent, so up
// to Workers of them are generated concurrently; records come back in case
// order and the manifest is stored last.
func (r Runner) Run(ctx context.Context, cases []Case) ([]Record, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	workers := max(r.Workers, 1)

	jobs := make([]job, 0, len(cases)*r.Count)
	for _, c := range cases {
		for i := 0; i < r.Count; i++ {
			jobs = append(jobs, job{c: c, index: i, slot: len(jobs)})
		}
	}
	results := make([]result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, j := range jobs {
		g.Go(func() error {
			res, err := r.runOne(gctx, j)
			if err != nil {
				return fmt.Errorf("case %s instance %d: %w", j.c, j.index, err)
			}
			results[j.slot] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	records := make([]Record, len(results))
	for i, res := range results {
		records[i] = res.rec
		if r.Catalog != nil {
			if err := r.Catalog.Save(ctx, res.cat); err != nil {
				return nil, err
			}
		}
	}

	var manifest bytes.Buffer
	if err := WriteCSV(&manifest, records); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	if err := r.Store.Put(ctx, ManifestKey, manifest.Bytes()); err != nil {
		return nil, fmt.Errorf("store manifest: %w", err)
	}
	r.Logger.Info().Int("instances", len(records)).Int("cases", len(cases)).Msg("batch complete")
	return records, nil
}

func (r Runner) runOne(ctx context.Context, j job) (result, error) {
	if err := ctx.Err(); err != nil {
		return result{}, err
	}

	start := time.Now()
	inst, err := orasp.Generate(orasp.Request{
		Operations: j.c.Operations,
		Surgeons:   j.c.Surgeons,
		Rooms:      j.c.Rooms,
		Seed:       orasp.Seeded(j.c.InstanceSeed + int64(j.index)),
		Params:     r.Params,
	})
	dur := time.Since(start)
	r.Metrics.Observe(inst, err, dur)
	if err != nil {
		return result{}, err
	}

	key := export.FileName(inst, j.index, r.Params.SetupTimes, r.Format)
	data, err := export.Marshal(inst, r.Format)
	if err != nil {
		return result{}, fmt.Errorf("encode: %w", err)
	}
	if err := r.Store.Put(ctx, key, data); err != nil {
		return result{}, err
	}

	s := stats.Summarize(inst)
	r.Logger.Debug().
		Str("case", j.c.String()).
		Int("index", j.index).
		Int64("seed", inst.Seed).
		Str("key", key).
		Int("tmax", inst.Tmax).
		Float64("load", s.Load).
		Msg("instance generated")

	return result{
		rec: Record{
			Case:           j.c.String(),
			Index:          j.index,
			ID:             inst.ID,
			Key:            key,
			Seed:           inst.Seed,
			Operations:     inst.Operations,
			Surgeons:       inst.Surgeons,
			Rooms:          inst.Rooms,
			Tmax:           inst.Tmax,
			BigM:           inst.BigM,
			TotalTimeMean:  s.TotalTime.Mean,
			TotalTimeStd:   s.TotalTime.Std,
			SetupMean:      s.Setup.Mean,
			CompatDensity:  s.CompatDensity,
			CapableDensity: s.CapableDensity,
			Load:           s.Load,
			Repairs:        s.Repairs,
			DurationMs:     float64(dur.Microseconds()) / 1000.0,
		},
		cat: catalog.NewRecord(inst, r.Params, key, string(r.Format)),
	}, nil
}

func WriteCSV(out io.Writer, records []Record) error {
	w := csv.NewWriter(out)

	header := []string{
		"case", "index", "id", "key", "seed",
		"operations", "surgeons", "rooms", "tmax", "big_m",
		"tt_mean", "tt_std", "setup_mean", "compat_density", "capable_density", "load", "repairs",
		"duration_ms",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			r.Case,
			itoa(r.Index),
			r.ID,
			r.Key,
			fmt.Sprint(r.Seed),

			itoa(r.Operations),
			itoa(r.Surgeons),
			itoa(r.Rooms),
			itoa(r.Tmax),
			itoa(r.BigM),

			ftoa(r.TotalTimeMean),
			ftoa(r.TotalTimeStd),
			ftoa(r.SetupMean),
			ftoa(r.CompatDensity),
			ftoa(r.CapableDensity),
			ftoa(r.Load),
			itoa(r.Repairs),

			ftoa(r.DurationMs),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
