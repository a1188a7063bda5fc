package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lexideck/internal/cards"
	"lexideck/internal/config"
	"lexideck/internal/events"
	"lexideck/internal/governor"
	"lexideck/internal/langcode"
	"lexideck/internal/logging"
	"lexideck/internal/mediacache"
	"lexideck/internal/metrics"
	"lexideck/internal/pipeline"
	"lexideck/internal/services"
	"lexideck/internal/services/imagegen"
	"lexideck/internal/services/tts"
	"lexideck/internal/vocab"
)

type buildOptions struct {
	out         string
	bundleDir   string
	shuffle     bool
	metricsBind string
	noProgress  bool
	jsonOutput  bool
}

func newBuildCommand(ctx *commandContext) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build [vocabulary.csv]",
		Short: "Fetch media for every vocabulary row and write the card manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if cmd.Flags().Changed("shuffle") {
				cfg.Deck.Shuffle = opts.shuffle
			}
			if cmd.Flags().Changed("metrics-bind") {
				cfg.Metrics.Bind = opts.metricsBind
			}
			input := cfg.Paths.InputFile
			if len(args) == 1 {
				input = args[0]
			}
			if input, err = config.ExpandPath(strings.TrimSpace(input)); err != nil {
				return err
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			b := &builder{
				cfg:    cfg,
				opts:   opts,
				logger: logging.NewComponentLogger(logger, "build"),
				base:   logger,
				cmd:    cmd,
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
			}
			return b.run(signalCtx, input)
		},
	}

	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "Manifest path (default: <output_dir>/<deck name>.json)")
	cmd.Flags().StringVar(&opts.bundleDir, "bundle-dir", "", "Copy referenced media into this directory")
	cmd.Flags().BoolVar(&opts.shuffle, "shuffle", false, "Shuffle card order (overrides deck.shuffle)")
	cmd.Flags().StringVar(&opts.metricsBind, "metrics-bind", "", "Serve Prometheus metrics on this address during the build")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the run summary as JSON")
	return cmd
}

type builder struct {
	cfg    *config.Config
	opts   buildOptions
	logger *slog.Logger
	base   *slog.Logger
	cmd    *cobra.Command
	out    io.Writer
	errOut io.Writer
}

func (b *builder) run(ctx context.Context, input string) error {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)

	records, err := vocab.Load(input, vocab.OptionsFromConfig(b.cfg))
	if err != nil {
		return err
	}
	logging.WithContext(ctx, b.logger).Info("vocabulary loaded",
		logging.String("input", input),
		logging.Int("records", len(records)),
	)

	cache, err := mediacache.Open(ctx, b.cfg.Paths.MediaDir,
		mediacache.WithRevision(b.cfg.Deck.MediaRevision),
		mediacache.WithLogger(b.base),
	)
	if err != nil {
		return err
	}
	defer cache.Close()

	unlock, err := cache.LockShared()
	if err != nil {
		if errors.Is(err, mediacache.ErrLocked) {
			return fmt.Errorf("media cache %s is being cleared or pruned: %w", cache.Dir(), err)
		}
		return err
	}
	defer unlock()

	m := metrics.New()
	server, err := metrics.Start(ctx, b.cfg.Metrics.Bind, m, b.base)
	if err != nil {
		return err
	}
	defer server.Stop()
	if server != nil {
		b.logger.Info("metrics endpoint listening", logging.String("addr", server.Addr()))
	}

	gov, err := governor.New(b.cfg.Pipeline.MaxConcurrency, b.cfg.Pipeline.ThrottleDecay,
		governor.WithLogger(b.base),
		governor.WithObserver(m.ObserveGovernor),
	)
	if err != nil {
		return err
	}

	sinks := []events.Sink{events.LogSink(b.base)}
	if !b.opts.noProgress && !b.opts.jsonOutput && interactive(b.errOut) {
		sinks = append(sinks, newProgressSink(b.errOut))
	}
	reporter := events.NewReporter(events.Multi(sinks...), events.WithLogger(b.base))

	speech := tts.NewClient(tts.ConfigFrom(b.cfg))
	router := pipeline.Router{
		pipeline.KindWordAudio:     speech,
		pipeline.KindSentenceAudio: speech,
	}
	if b.cfg.Image.Enabled {
		router[pipeline.KindImage] = imagegen.NewClient(imagegen.ConfigFrom(b.cfg))
	}

	opts := pipeline.OptionsFromConfig(b.cfg)
	opts.Cache = cache
	opts.Fetcher = router
	opts.Governor = gov
	opts.Reporter = reporter
	opts.Observer = m
	opts.Logger = b.base
	driver, err := pipeline.NewDriver(opts)
	if err != nil {
		reporter.Close()
		return err
	}

	outcomes, runErr := driver.Run(ctx, records)
	reporter.Close()
	if stats := reporter.Stats(); stats.Dropped > 0 {
		b.logger.Warn("progress events dropped", logging.Uint64("dropped", stats.Dropped))
	}

	summary := pipeline.Summarize(outcomes)
	if runErr != nil {
		renderSummary(b.errOut, summary, gov.Snapshot())
		return runErr
	}

	deck, err := cards.Build(records, outcomes, b.cfg.Deck.Language)
	if err != nil {
		return err
	}
	manifest := cards.NewManifest(b.cfg.Deck.Name, b.cfg.Deck.Language, cache.Dir(), deck, summary)
	manifest.RunID = runID
	path := strings.TrimSpace(b.opts.out)
	if path == "" {
		path = cards.DefaultManifestPath(b.cfg.Paths.OutputDir, b.cfg.Deck.Name)
	} else if path, err = config.ExpandPath(path); err != nil {
		return err
	}
	if err := cards.WriteManifest(path, manifest); err != nil {
		return err
	}

	var bundled cards.BundleResult
	if dir := strings.TrimSpace(b.opts.bundleDir); dir != "" {
		if dir, err = config.ExpandPath(dir); err != nil {
			return err
		}
		if bundled, err = cards.Bundle(dir, cache.Dir(), deck.Media); err != nil {
			return err
		}
	}

	if b.opts.jsonOutput {
		return writeJSON(b.cmd, buildReport{
			RunID:    runID,
			Manifest: path,
			Notes:    len(deck.Notes),
			Skipped:  deck.Skipped,
			Bundle:   bundled,
			Summary:  summary,
			Governor: gov.Snapshot(),
		})
	}
	fmt.Fprintf(b.out, "Deck: %s (%s)\n", b.cfg.Deck.Name, langcode.DisplayName(b.cfg.Deck.Language))
	renderSummary(b.out, summary, gov.Snapshot())
	fmt.Fprintf(b.out, "Wrote %d cards to %s\n", len(deck.Notes), path)
	if len(deck.Skipped) > 0 {
		fmt.Fprintf(b.out, "Skipped %d cards without word audio\n", len(deck.Skipped))
	}
	if bundled.Copied+bundled.Skipped > 0 {
		fmt.Fprintf(b.out, "Bundled media: %d copied, %d already present\n", bundled.Copied, bundled.Skipped)
	}
	return nil
}

type buildReport struct {
	RunID    string             `json:"run_id"`
	Manifest string             `json:"manifest"`
	Notes    int                `json:"notes"`
	Skipped  []string           `json:"skipped,omitempty"`
	Bundle   cards.BundleResult `json:"bundle"`
	Summary  pipeline.Summary   `json:"summary"`
	Governor governor.State     `json:"governor"`
}
