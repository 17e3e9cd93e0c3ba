// Command keyenv drives Playfair key-table reconstruction episodes: it serves
// them to an external learner over HTTP or plays batches with a built-in selector.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	httpadapter "svw.info/playfair/internal/adapters/http"
	"svw.info/playfair/internal/config"
	"svw.info/playfair/internal/corpus"
	"svw.info/playfair/internal/generator"
	"svw.info/playfair/internal/hint"
	"svw.info/playfair/internal/infrastructure/storage"
	"svw.info/playfair/internal/ports"
	"svw.info/playfair/internal/runner"
	"svw.info/playfair/internal/usecase"
)

var (
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "keyenv",
	Short:         "Playfair key-table reconstruction environment",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		logger, err = buildLogger(cfg.Logging)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func buildLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(lc.Level))
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}

func openStorage(sc config.StorageConfig) (ports.Storage, func(), error) {
	switch strings.ToLower(sc.Kind) {
	case "fs", "":
		if err := os.MkdirAll(sc.Path, 0o755); err != nil {
			return nil, nil, err
		}
		return storage.NewFS(sc.Path), func() {}, nil
	case "sqlite":
		db, err := storage.NewSQLite(sc.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	case "none":
		return nil, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage kind %q", sc.Kind)
	}
}

func streamSource(ec config.EpisodeConfig, seed uint64) ports.StreamSource {
	if ec.Corpus != "" {
		return corpus.NewFile(ec.Corpus, ec.StreamLength, seed)
	}
	return generator.NewRandomStreams(seed, ec.StreamLength)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ---- serve ----

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve episodes over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		st, closeStore, err := openStorage(cfg.Storage)
		if err != nil {
			return err
		}
		defer closeStore()

		reg := prometheus.NewRegistry()
		metrics := runner.NewMetrics(reg)
		r := runner.New(cfg.Runner.Workers, cfg.Episode.Rewards, logger, metrics)
		uc := usecase.NewService(streamSource(cfg.Episode, cfg.Runner.Seed), r, st, logger)
		h := httpadapter.New(uc, logger, cfg.Episode.Rewards, cfg.Episode.StreamLength, reg)

		mux := http.NewServeMux()
		h.Register(mux)
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           httpadapter.RequestLogger(logger, mux),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signalContext()
		defer stop()
		go func() {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdown)
		}()

		logger.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("storage", cfg.Storage.Kind))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

// ---- run ----

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Play a batch of episodes with a built-in selector",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		if flags.Changed("episodes") {
			cfg.Runner.Episodes, _ = flags.GetInt("episodes")
		}
		if flags.Changed("workers") {
			cfg.Runner.Workers, _ = flags.GetInt("workers")
		}
		if flags.Changed("selector") {
			cfg.Runner.Selector, _ = flags.GetString("selector")
		}
		if flags.Changed("seed") {
			cfg.Runner.Seed, _ = flags.GetUint64("seed")
		}
		if flags.Changed("corpus") {
			cfg.Episode.Corpus, _ = flags.GetString("corpus")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		sel, err := hint.Factory(cfg.Runner.Selector)
		if err != nil {
			return err
		}
		st, closeStore, err := openStorage(cfg.Storage)
		if err != nil {
			return err
		}
		defer closeStore()

		r := runner.New(cfg.Runner.Workers, cfg.Episode.Rewards, logger, runner.NewMetrics(prometheus.NewRegistry()))
		uc := usecase.NewService(streamSource(cfg.Episode, cfg.Runner.Seed), r, st, logger)

		ctx, stop := signalContext()
		defer stop()
		_, sum, err := uc.RunBatch(ctx, cfg.Runner.Episodes, sel, cfg.Runner.Seed)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "episodes:       %d\n", sum.Episodes)
		fmt.Fprintf(out, "successes:      %d\n", sum.Successes)
		fmt.Fprintf(out, "reward:         %.1f ± %.1f\n", sum.MeanReward, sum.StdReward)
		fmt.Fprintf(out, "steps:          %.1f\n", sum.MeanSteps)
		fmt.Fprintf(out, "placed:         %.1f\n", sum.MeanPlaced)
		fmt.Fprintf(out, "agreement:      %.1f\n", sum.MeanAgreement)
		fmt.Fprintf(out, "duration:       %s\n", sum.Duration.Round(time.Millisecond))
		return nil
	},
}

// ---- keygen ----

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Print a random Playfair key table",
	RunE: func(cmd *cobra.Command, args []string) error {
		seed, _ := cmd.Flags().GetUint64("seed")
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		key := generator.GenerateKey(rand.New(rand.NewPCG(seed, 0)))
		fmt.Fprintln(cmd.OutOrStdout(), key.String())
		fmt.Fprintln(cmd.OutOrStdout(), key.Snapshot().String())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug|info|warn|error (overrides config)")

	serveCmd.Flags().String("addr", "", "listen address (overrides config)")

	runCmd.Flags().Int("episodes", 0, "number of episodes")
	runCmd.Flags().Int("workers", 0, "parallel workers")
	runCmd.Flags().String("selector", "", "oracle|uniform")
	runCmd.Flags().Uint64("seed", 0, "batch seed")
	runCmd.Flags().String("corpus", "", "text file to draw plaintext from")

	keygenCmd.Flags().Uint64("seed", 0, "seed (0 = time based)")

	rootCmd.AddCommand(serveCmd, runCmd, keygenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
