// Package pnrerr defines the error kinds surfaced by the placement and
// routing engines.
package pnrerr

import "fmt"

// FabricParseError indicates malformed XML or inconsistent tile geometry.
type FabricParseError struct {
	Detail string
	Err    error
}

func (e *FabricParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fabric parse error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("fabric parse error: %s", e.Detail)
}

func (e *FabricParseError) Unwrap() error { return e.Err }

// DesignParseError is propagated unchanged from the external design loader.
type DesignParseError struct {
	Detail string
	Err    error
}

func (e *DesignParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("design parse error: %s: %v", e.Detail, e.Err)
	}
	return fmt.Sprintf("design parse error: %s", e.Detail)
}

func (e *DesignParseError) Unwrap() error { return e.Err }

// Unplaceable indicates both strict and relaxed placement were UNSAT.
type Unplaceable struct {
	Reason string
}

func (e *Unplaceable) Error() string {
	return fmt.Sprintf("placement unsatisfiable: %s", e.Reason)
}

// Unroutable indicates routing was UNSAT under the configured distance bound.
type Unroutable struct {
	Reason string
}

func (e *Unroutable) Error() string {
	return fmt.Sprintf("routing unsatisfiable: %s", e.Reason)
}

// IllegalRouting indicates the model read discovered two drivers for a
// single sink. This is a fatal solver/encoding bug, not a recoverable
// condition.
type IllegalRouting struct {
	Track   string
	DriverA string
	DriverB string
}

func (e *IllegalRouting) Error() string {
	return fmt.Sprintf("illegal routing: track %q driven by both %q and %q",
		e.Track, e.DriverA, e.DriverB)
}

// SolverError wraps a failure reported by the theory-solver backend.
type SolverError struct {
	Err error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solver error: %v", e.Err)
}

func (e *SolverError) Unwrap() error { return e.Err }

// SolverTimeout indicates the solver's wall-clock budget was exceeded.
type SolverTimeout struct {
	BudgetMS int64
}

func (e *SolverTimeout) Error() string {
	return fmt.Sprintf("solver timeout after %dms", e.BudgetMS)
}
