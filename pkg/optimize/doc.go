// Package optimize improves a rule set using observed execution behavior.
//
// The optimizer consumes rules plus the statistics the engine accumulated
// for them, analyzes hit rates and timing, and consults an external advice
// oracle for recommendations. The oracle is untrusted: every recommendation
// is validated against the actual rule list before any transform runs, and
// a malformed or empty response leaves the input unchanged.
//
// Five transforms are supported: merge, reorder, simplify, remove, and
// cache. Pattern mining over execution traces surfaces common rule paths
// and timing bottlenecks for the same oracle.
package optimize
