// Reliq extracts business rules from procedural legacy source, executes
// them with full decision tracing, and improves them using observed
// execution behavior.
//
// Usage:
//
//	# Extract rules from a COBOL source file
//	reliq extract legacy/acct.cbl --program ACCT --output rules.json
//
//	# Execute extracted rules against data records
//	reliq run --rules rules.json --data records.json
//
//	# Optimize a rule set using collected statistics
//	reliq optimize --rules rules.json --stats stats.json --output optimized.json
//
//	# Re-extract automatically when the source changes
//	reliq watch legacy/ --program ACCT --output rules.json
//
//	# Show version information
//	reliq version
package main

func main() {
	Execute()
}
