package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"stratum-hq/reliq/pkg/config"
	"stratum-hq/reliq/pkg/extract"
	"stratum-hq/reliq/pkg/optimize"
)

var watchFlags struct {
	program string
	output  string
}

var watchCmd = &cobra.Command{
	Use:   "watch <source-path>",
	Short: "Re-extract rules whenever the source changes",
	Long: `Watch a legacy source file or directory and re-run extraction after every
change, writing the fresh rule file each time. Runs until interrupted.

Examples:
  reliq watch legacy/acct.cbl --program ACCT --output rules.json
  reliq watch legacy/ --output rules.json`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.program, "program", "p", "", "program name used in rule ids (default: changed file base name)")
	watchCmd.Flags().StringVarP(&watchFlags.output, "output", "o", "rules.json", "rule file to rewrite on every change")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)

	sw, err := extract.NewSourceWatcher(&extract.WatcherConfig{
		Path:             args[0],
		DebounceInterval: cfg.Extract.DebounceInterval,
		Extensions:       cfg.Extract.Extensions,
	}, logger)
	if err != nil {
		return err
	}
	defer sw.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Optimizer.Schedule != "" {
		sched := optimize.NewScheduler(logger)
		if err := scheduleOptimization(ctx, sched, cfg, logger); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	extractor := extract.NewExtractor(logger)
	return sw.Watch(ctx, func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read source %q: %w", path, err)
		}

		program := watchFlags.program
		if program == "" {
			base := filepath.Base(path)
			program = strings.TrimSuffix(base, filepath.Ext(base))
		}

		rules := extractor.ExtractRules(string(data), program)
		out, err := json.MarshalIndent(rules, "", "  ")
		if err != nil {
			return fmt.Errorf("encode rules: %w", err)
		}
		if err := os.WriteFile(watchFlags.output, out, 0o644); err != nil {
			return fmt.Errorf("write %q: %w", watchFlags.output, err)
		}

		logger.Info("rules refreshed", "source", path, "rules", len(rules), "output", watchFlags.output)
		return nil
	})
}

// scheduleOptimization registers a periodic pass that rewrites the watched
// rule file through a structural simplify pass. Freshly extracted rules
// carry no execution statistics, so the stat-driven advisors do not apply
// here.
func scheduleOptimization(ctx context.Context, sched *optimize.Scheduler, cfg *config.Config, logger *slog.Logger) error {
	_, err := sched.Schedule(cfg.Optimizer.Schedule, func() {
		rules, err := readRuleFile(watchFlags.output)
		if err != nil {
			logger.Warn("scheduled optimization skipped", "error", err)
			return
		}
		opt := optimize.New(optimize.StructuralAdvisor{},
			optimize.WithLogger(logger),
			optimize.WithSampleSize(len(rules)),
		)
		optimized := opt.OptimizeRules(ctx, rules, nil)
		out, err := json.MarshalIndent(optimized, "", "  ")
		if err != nil {
			logger.Error("encode optimized rules", "error", err)
			return
		}
		if err := os.WriteFile(watchFlags.output, out, 0o644); err != nil {
			logger.Error("write optimized rules", "error", err)
			return
		}
		logger.Info("scheduled optimization complete", "rules", len(optimized), "output", watchFlags.output)
	})
	return err
}
