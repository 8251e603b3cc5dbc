// Package attribution explains the change in ROAS between two equal-length
// consecutive periods as a sum of named causal buckets: decision impact,
// market forces (CPC/CVR/AOV drift), scale effect, portfolio effect, and a
// solved-for unexplained residual.
//
// The engine is a pure function of the two period aggregates plus an external
// decision-impact estimate; it holds no state and is safe for concurrent use.
package attribution
