// Package analysis implements the root-cause analysis models that examine a
// standardized drive-test dataset. Every model is a pure function of the
// immutable dataset and its configuration, which makes the whole set safe to
// fan out concurrently: the models share no state and never mutate records.
//
// Eight categories are covered: coverage, interference, handover performance,
// throughput, call drops, cell overload, parameter mismatch and QoS. Each
// model reports independently; overlapping claims over the same stretch of
// road are grouped later by the report aggregator, never suppressed here.
package analysis
