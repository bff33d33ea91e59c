package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"stratum-hq/reliq/pkg/extract"
)

var extractFlags struct {
	program string
	output  string
}

var extractCmd = &cobra.Command{
	Use:   "extract <source-file>",
	Short: "Extract rules from legacy source",
	Long: `Scan a legacy source file and extract every recognizable business rule.

The extracted rules are written as JSON, to stdout or to --output.

Examples:
  reliq extract legacy/acct.cbl --program ACCT
  reliq extract legacy/acct.cbl --program ACCT --output rules.json`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractFlags.program, "program", "p", "", "program name used in rule ids (default: source file base name)")
	extractCmd.Flags().StringVarP(&extractFlags.output, "output", "o", "", "write rules to this file instead of stdout")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)

	sourcePath := args[0]
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read source %q: %w", sourcePath, err)
	}

	program := extractFlags.program
	if program == "" {
		base := filepath.Base(sourcePath)
		program = strings.TrimSuffix(base, filepath.Ext(base))
	}

	rules := extract.NewExtractor(logger).ExtractRules(string(data), program)

	out, err := json.MarshalIndent(rules, "", "  ")
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}

	if extractFlags.output == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(extractFlags.output, out, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", extractFlags.output, err)
	}
	fmt.Printf("extracted %d rules to %s\n", len(rules), extractFlags.output)
	return nil
}
