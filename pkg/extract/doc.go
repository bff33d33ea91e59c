// Package extract mines business rules out of procedural legacy source.
//
// The extractor is a best-effort lexical scan, not a parser: it walks the
// source line by line and pattern-matches the handful of statement shapes
// that carry business logic (IF blocks, EVALUATE selectors, COMPUTE
// statements, validation checks). Everything it does not recognize is
// silently skipped. The output is an ordered list of rule.Rule values ready
// for engine registration.
//
// A SourceWatcher can re-run extraction whenever the watched source files
// change, with debouncing to absorb editor save storms.
package extract
