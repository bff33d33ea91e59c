package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"stratum-hq/reliq/pkg/config"
	"stratum-hq/reliq/pkg/engine"
	"stratum-hq/reliq/pkg/engine/storage"
	"stratum-hq/reliq/pkg/rule"
)

var runFlags struct {
	rulesFile     string
	dataFile      string
	parallel      bool
	stopOnMatch   bool
	metricsListen string
	statsOutput   string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute rules against data records",
	Long: `Register a rule file, then execute every rule against each data record.

The data file holds a JSON array of records; each record becomes its own
execution context. Execution traces are persisted to the configured trace
store, and a per-record result summary is written to stdout.

Examples:
  reliq run --rules rules.json --data records.json
  reliq run --rules rules.json --data records.json --parallel
  reliq run --rules rules.json --data records.json --stop-on-first-match`,
	RunE: runRules,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.rulesFile, "rules", "", "rule file (JSON, required)")
	runCmd.Flags().StringVar(&runFlags.dataFile, "data", "", "data records file (JSON array, required)")
	runCmd.Flags().BoolVar(&runFlags.parallel, "parallel", false, "execute rules in parallel per record")
	runCmd.Flags().BoolVar(&runFlags.stopOnMatch, "stop-on-first-match", false, "halt each record after the first matching rule")
	runCmd.Flags().StringVar(&runFlags.metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address (e.g. :9090)")
	runCmd.Flags().StringVar(&runFlags.statsOutput, "stats-output", "", "write per-rule execution statistics to this file (feed to reliq optimize)")
	runCmd.MarkFlagRequired("rules")
	runCmd.MarkFlagRequired("data")
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)

	rules, err := readRuleFile(runFlags.rulesFile)
	if err != nil {
		return err
	}
	var records []map[string]any
	if err := readJSONFile(runFlags.dataFile, &records); err != nil {
		return err
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if cfg.Engine.MetricsEnabled {
		opts = append(opts, engine.WithMetrics(engine.NewMetrics(cfg.Engine.MetricsNamespace, nil)))
	}
	eng := engine.New(opts...)
	if err := eng.RegisterRules(rules); err != nil {
		return fmt.Errorf("register rules: %w", err)
	}

	store, err := openTraceStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if runFlags.metricsListen != "" && cfg.Engine.MetricsEnabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(runFlags.metricsListen, mux); err != nil {
				logger.Error("metrics server stopped", "error", err)
			}
		}()
	}

	order := rule.OrderSequential
	if runFlags.parallel {
		order = rule.OrderParallel
	}
	ids := make([]string, 0, len(rules))
	for i := range rules {
		ids = append(ids, rules[i].ID)
	}
	set := &rule.RuleSet{
		ID:               "run",
		Name:             "run",
		RuleIDs:          ids,
		Order:            order,
		StopOnFirstMatch: runFlags.stopOnMatch,
	}
	if err := eng.CreateRuleSet(set); err != nil {
		return fmt.Errorf("create rule set: %w", err)
	}

	ctx := context.Background()
	type recordResult struct {
		Record  map[string]any   `json:"record"`
		Data    map[string]any   `json:"data_after"`
		Results []*engine.Result `json:"results"`
		Stopped bool             `json:"stopped,omitempty"`
	}
	var summary []recordResult

	for _, record := range records {
		ec := engine.NewExecutionContext(record)
		sr, err := eng.ExecuteRuleSet(ctx, set.ID, ec)
		if err != nil {
			return fmt.Errorf("execute rule set: %w", err)
		}

		if err := store.Save(ctx, storage.RecordSetResult(sr, ec.Trace())); err != nil {
			logger.Warn("trace not persisted", "error", err)
		}
		summary = append(summary, recordResult{
			Record:  record,
			Data:    ec.Data,
			Results: sr.Results,
			Stopped: sr.Stopped,
		})
	}

	if runFlags.statsOutput != "" {
		stats, err := json.MarshalIndent(eng.StatsSnapshot(), "", "  ")
		if err != nil {
			return fmt.Errorf("encode statistics: %w", err)
		}
		if err := os.WriteFile(runFlags.statsOutput, stats, 0o644); err != nil {
			return fmt.Errorf("write %q: %w", runFlags.statsOutput, err)
		}
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func readRuleFile(path string) ([]rule.Rule, error) {
	var rules []rule.Rule
	if err := readJSONFile(path, &rules); err != nil {
		return nil, err
	}
	for i := range rules {
		if err := rules[i].Validate(); err != nil {
			return nil, fmt.Errorf("rule %q: %w", rules[i].ID, err)
		}
	}
	return rules, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %q: %w", path, err)
	}
	return nil
}

func openTraceStore(cfg *config.Config) (storage.Store, error) {
	if cfg.Storage.Backend != "sqlite" {
		return storage.NewMemoryStore(), nil
	}
	return storage.NewSQLiteStore(&storage.SQLiteConfig{
		Path:         cfg.Storage.SQLite.Path,
		MaxOpenConns: cfg.Storage.SQLite.MaxOpenConns,
		MaxIdleConns: cfg.Storage.SQLite.MaxIdleConns,
		WALMode:      cfg.Storage.SQLite.WALMode,
		BusyTimeout:  cfg.Storage.SQLite.BusyTimeout,
	})
}
