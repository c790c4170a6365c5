package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/bootstrap"
	"github.com/kailas-cloud/semsearch/internal/config"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/source"
	"github.com/kailas-cloud/semsearch/internal/usecase/ingest"
	"github.com/kailas-cloud/semsearch/internal/version"
)

type options struct {
	file      string
	textField string
	batchSize int
	config    string
	recreate  bool
	logLevel  string
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "semsearch-ingest",
		Short: "Load JSON, JSONL, CSV or Parquet records into the search collection",
		Long: `semsearch-ingest reads records from one or more files, encodes the text
field densely and lexically, and writes them to the configured collection in
batches. Every field of a record is stored as payload.

Examples:
  semsearch-ingest --file data/products.json
  semsearch-ingest --file 'data/**/*.jsonl' --text-field description --batch-size 64
  semsearch-ingest --file catalog.parquet --config prod --recreate`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := run(cmd.Context(), &opts)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "", "input file or glob pattern (supports **)")
	f.StringVar(&opts.textField, "text-field", "", "record field holding the text to encode (default from config)")
	f.IntVar(&opts.batchSize, "batch-size", 0, "records per batch (default from config)")
	f.StringVarP(&opts.config, "config", "c", "", "environment name or path to a YAML config (default $ENV or local)")
	f.BoolVar(&opts.recreate, "recreate", false, "drop the collection before loading")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (default warn)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func loadConfig(name string) (config.Config, error) {
	switch {
	case name == "":
		return config.Load(config.GetEnv())
	case strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml"):
		return config.LoadFile(name)
	default:
		return config.Load(name)
	}
}

func run(ctx context.Context, opts *options) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts.config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewCLILogger(opts.logLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	textField := opts.textField
	if textField == "" {
		textField = cfg.Ingest.TextField
	}

	fmt.Printf("Loading %s...\n", opts.file)
	records, err := source.Load(opts.file, textField)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}
	fmt.Printf("Loaded %d records\n", len(records))
	if len(records) == 0 {
		return nil
	}

	app, err := bootstrap.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("build components: %w", err)
	}
	defer app.Close()

	if err := app.WaitForStore(ctx); err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	if err := app.Warmup(ctx); err != nil {
		return err //nolint:wrapcheck // already wrapped
	}

	if opts.recreate {
		fmt.Printf("Dropping collection %s...\n", cfg.Collection.Name)
		if err := app.Gateway.DropCollection(ctx, cfg.Collection.Name); err != nil {
			return fmt.Errorf("drop collection: %w", err)
		}
	}

	pipeline, err := app.IngestPipeline(textField, opts.batchSize)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	defer pipeline.Release()

	bar := newProgressBar(len(records))
	start := time.Now()
	n, err := pipeline.Ingest(ctx, records, func(p ingest.Progress) {
		_ = bar.Set(p.Ingested)
	})
	_ = bar.Finish()
	if err != nil {
		var pe *ingest.PartialError
		if errors.As(err, &pe) {
			fmt.Printf("Ingested %d of %d records before failure\n", pe.Ingested, len(records))
		}
		return fmt.Errorf("ingest: %w", err)
	}

	logger.Info("Ingest finished",
		zap.Int("count", n),
		zap.Duration("duration", time.Since(start)),
	)
	fmt.Printf("Ingested %d records in %s\n", n, time.Since(start).Round(time.Millisecond))

	schema, err := app.Ensure(ctx)
	if err != nil {
		return err //nolint:wrapcheck // already wrapped
	}
	total, err := app.Gateway.Count(ctx, schema)
	if err != nil {
		return fmt.Errorf("count collection: %w", err)
	}
	fmt.Printf("Collection %s now holds %d points\n", schema.Name(), total)
	return nil
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)
}
