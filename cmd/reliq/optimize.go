package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"stratum-hq/reliq/pkg/config"
	"stratum-hq/reliq/pkg/engine"
	"stratum-hq/reliq/pkg/engine/storage"
	"stratum-hq/reliq/pkg/optimize"
)

var optimizeFlags struct {
	rulesFile string
	statsFile string
	output    string
	learn     bool
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Optimize a rule set using execution statistics",
	Long: `Analyze rule performance, consult the advice oracle, and apply every
valid recommendation (merge, reorder, simplify, remove, cache).

The stats file holds the JSON statistics map produced by a run; with no
stats every rule counts as unused. Without an oracle URL in the config the
built-in heuristic advisor is used. With --learn, stored execution traces
are mined for common paths and bottlenecks first.

Examples:
  reliq optimize --rules rules.json --stats stats.json --output optimized.json
  reliq optimize --rules rules.json --stats stats.json --learn -c reliq.yaml`,
	RunE: runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVar(&optimizeFlags.rulesFile, "rules", "", "rule file (JSON, required)")
	optimizeCmd.Flags().StringVar(&optimizeFlags.statsFile, "stats", "", "execution statistics file (JSON)")
	optimizeCmd.Flags().StringVarP(&optimizeFlags.output, "output", "o", "", "write optimized rules to this file instead of stdout")
	optimizeCmd.Flags().BoolVar(&optimizeFlags.learn, "learn", false, "mine stored execution traces for common paths and bottlenecks")
	optimizeCmd.MarkFlagRequired("rules")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)

	rules, err := readRuleFile(optimizeFlags.rulesFile)
	if err != nil {
		return err
	}

	stats := make(map[string]engine.Stats)
	if optimizeFlags.statsFile != "" {
		if err := readJSONFile(optimizeFlags.statsFile, &stats); err != nil {
			return err
		}
	}

	var advisor optimize.Advisor
	if cfg.Optimizer.OracleURL != "" {
		advisor = optimize.NewHTTPAdvisor(optimize.HTTPAdvisorConfig{
			URL:     cfg.Optimizer.OracleURL,
			Timeout: cfg.Optimizer.OracleTimeout,
		})
	}

	opt := optimize.New(advisor,
		optimize.WithLogger(logger),
		optimize.WithSampleSize(cfg.Optimizer.SampleSize),
	)
	ctx := context.Background()

	if optimizeFlags.learn {
		if err := mineStoredTraces(ctx, cfg, opt, logger); err != nil {
			return err
		}
	}

	optimized := opt.OptimizeRules(ctx, rules, stats)

	out, err := json.MarshalIndent(optimized, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	if optimizeFlags.output == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(optimizeFlags.output, out, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", optimizeFlags.output, err)
	}
	fmt.Printf("optimized %d rules to %d, written to %s\n", len(rules), len(optimized), optimizeFlags.output)
	return nil
}

// mineStoredTraces reads recent traces from the configured trace store and
// reports common execution paths and bottlenecks.
func mineStoredTraces(ctx context.Context, cfg *config.Config, opt *optimize.Optimizer, logger *slog.Logger) error {
	store, err := openTraceStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.Query(ctx, &storage.Query{Limit: 500})
	if err != nil {
		return fmt.Errorf("query traces: %w", err)
	}
	traces := make([][]engine.TraceEvent, 0, len(recs))
	for _, rec := range recs {
		if len(rec.Trace) > 0 {
			traces = append(traces, rec.Trace)
		}
	}
	report, recommendations := opt.LearnFromExecution(ctx, traces)
	logger.Info("mined execution traces",
		"traces", report.TotalTraces,
		"common_paths", len(report.CommonPaths),
		"bottlenecks", len(report.Bottlenecks),
		"recommendations", len(recommendations))
	for _, rec := range recommendations {
		logger.Info("learned recommendation", "type", rec.Type, "rules", rec.RuleIDs, "reason", rec.Reason)
	}
	return nil
}
