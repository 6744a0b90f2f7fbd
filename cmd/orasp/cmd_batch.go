package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"orasp/internal/batch"
	"orasp/internal/catalog"
	"orasp/internal/config"
	"orasp/internal/export"
	"orasp/internal/stats"
	"orasp/internal/storage"
	"orasp/internal/telemetry"
)

var (
	batchSizes           string
	batchCount           int
	batchSeed            int64
	batchOutDir          string
	batchFormat          string
	batchWorkers         int
	batchCatalog         string
	batchS3Bucket        string
	batchS3Prefix        string
	batchS3Region        string
	batchS3Endpoint      string
	batchMetricsTextfile string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Generate a benchmark set of instances",
	Long: `Generates --count instances for every size in --sizes. Every size gets its
own seed derived from --seed, and instance i of a size uses that seed plus i,
so a set can be regenerated exactly.

Files are named o{O}_c{C}_s{S}[_ST]_instance_{i}.{ext} and a manifest.csv
is written next to them.

Examples:
  orasp batch --sizes 15x4x4,30x6x5 --count 10 --seed 1000 --out-dir instances
  orasp batch --sizes 60x8x6 --catalog instances.db --s3-bucket bench`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	f := batchCmd.Flags()
	f.StringVar(&batchSizes, "sizes", "", "Comma separated OxCxS sizes, e.g. 15x4x4,30x6x5")
	f.IntVar(&batchCount, "count", 0, "Instances per size")
	f.Int64Var(&batchSeed, "seed", 0, "Base seed")
	f.StringVar(&batchOutDir, "out-dir", "", "Output directory")
	f.StringVar(&batchFormat, "format", "", "Output format: dat, json or yaml")
	f.IntVar(&batchWorkers, "workers", 0, "Concurrent generations")
	f.StringVar(&batchCatalog, "catalog", "", "SQLite catalog file")
	f.StringVar(&batchS3Bucket, "s3-bucket", "", "Also upload to this S3 bucket")
	f.StringVar(&batchS3Prefix, "s3-prefix", "", "Key prefix inside the bucket")
	f.StringVar(&batchS3Region, "s3-region", "", "S3 region")
	f.StringVar(&batchS3Endpoint, "s3-endpoint", "", "S3 compatible endpoint URL")
	f.StringVar(&batchMetricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")
}

// applyBatchFlags lets explicitly set flags override the loaded config.
func applyBatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("sizes") {
		cfg.Sizes = batchSizes
	}
	if f.Changed("count") {
		cfg.Count = batchCount
	}
	if f.Changed("seed") {
		cfg.Seed = batchSeed
	}
	if f.Changed("out-dir") {
		cfg.OutputDir = batchOutDir
	}
	if f.Changed("format") {
		cfg.Format = batchFormat
	}
	if f.Changed("workers") {
		cfg.Workers = batchWorkers
	}
	if f.Changed("catalog") {
		cfg.CatalogDSN = batchCatalog
	}
	if f.Changed("s3-bucket") {
		cfg.S3.Bucket = batchS3Bucket
	}
	if f.Changed("s3-prefix") {
		cfg.S3.Prefix = batchS3Prefix
	}
	if f.Changed("s3-region") {
		cfg.S3.Region = batchS3Region
	}
	if f.Changed("s3-endpoint") {
		cfg.S3.Endpoint = batchS3Endpoint
	}
	if f.Changed("metrics-textfile") {
		cfg.MetricsTextfile = batchMetricsTextfile
	}
}

func runBatch(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	applyBatchFlags(cmd)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid batch flags: %w", err)
	}

	cases, err := batch.ParseCases(cfg.Sizes, cfg.Seed)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildStore(ctx)
	if err != nil {
		return err
	}

	metrics := telemetry.NewMetrics()
	runner := batch.Runner{
		Count:   cfg.Count,
		Workers: cfg.Workers,
		Params:  cfg.Params,
		Format:  format,
		Store:   store,
		Metrics: metrics,
		Logger:  logger,
	}

	if cfg.CatalogDSN != "" {
		cat, err := catalog.Open(cfg.CatalogDSN, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := cat.Close(); err != nil {
				logger.Error().Err(err).Msg("close catalog")
			}
		}()
		runner.Catalog = cat
	}

	logger.Info().
		Str("sizes", cfg.Sizes).
		Int("count", cfg.Count).
		Int64("seed", cfg.Seed).
		Str("out_dir", cfg.OutputDir).
		Int("workers", cfg.Workers).
		Msg("batch starting")

	records, err := runner.Run(ctx, cases)
	if err != nil {
		return err
	}

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}

	printSummary(cmd.OutOrStdout(), cases, records)
	return nil
}

func buildStore(ctx context.Context) (storage.ObjectStore, error) {
	dir := storage.NewDirStore(cfg.OutputDir)
	if cfg.S3.Bucket == "" {
		return dir, nil
	}
	s3Store, err := storage.NewS3Store(ctx, storage.S3Config{
		Bucket:          cfg.S3.Bucket,
		Prefix:          cfg.S3.Prefix,
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		UsePathStyle:    cfg.S3.UsePathStyle,
	})
	if err != nil {
		return nil, err
	}
	return storage.MultiStore{dir, s3Store}, nil
}

func printSummary(w io.Writer, cases []batch.Case, records []batch.Record) {
	fmt.Fprintf(w, "%-12s %6s %10s %10s %10s %8s\n", "case", "n", "tt_mean", "load", "tmax", "repairs")
	for _, c := range cases {
		var tt, load []float64
		var tmax []int
		repairs := 0
		for _, r := range records {
			if r.Case != c.String() {
				continue
			}
			tt = append(tt, r.TotalTimeMean)
			load = append(load, r.Load)
			tmax = append(tmax, r.Tmax)
			repairs += r.Repairs
		}
		fmt.Fprintf(w, "%-12s %6d %10.1f %10.3f %10.1f %8d\n",
			c.String(), len(tt),
			stats.CalcFloatStats(tt).Mean,
			stats.CalcFloatStats(load).Mean,
			stats.CalcIntStats(tmax).Mean,
			repairs)
	}
}
