// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package sweep defines the eligibility rule for cleaning up disposable
// domains and the outcome vocabulary of a sweep pass.
package sweep

import (
	"fmt"

	"github.com/hostd/dispsweep/core/domain"
)

// Outcome records what a sweep pass did with one domain.
type Outcome string

const (
	// OutcomeRemoved means the domain was removed, or was found to be
	// gone already.
	OutcomeRemoved Outcome = "removed"

	// OutcomeRemovalFailed means the domain was eligible but the
	// removal request failed.
	OutcomeRemovalFailed Outcome = "removal-failed"

	// OutcomeWouldRemove means the domain was eligible but the pass ran
	// in dry-run mode.
	OutcomeWouldRemove Outcome = "would-remove"

	// OutcomeSkippedClass means the domain is not disposable.
	OutcomeSkippedClass Outcome = "skipped-wrong-class"

	// OutcomeSkippedRunning means the domain has not halted.
	OutcomeSkippedRunning Outcome = "skipped-running"

	// OutcomeSkippedNoCleanup means the domain has not asked to be
	// cleaned up.
	OutcomeSkippedNoCleanup Outcome = "skipped-no-cleanup-flag"
)

// Skipped reports whether the outcome is one of the skip tags.
func (o Outcome) Skipped() bool {
	switch o {
	case OutcomeSkippedClass, OutcomeSkippedRunning, OutcomeSkippedNoCleanup:
		return true
	}
	return false
}

// Eligible reports whether d should be removed: a disposable domain
// that has halted and asked for cleanup. The decision uses only the
// snapshot in d.
func Eligible(d domain.Domain) bool {
	return d.Class.Disposable() && d.Power.Halted() && d.AutoCleanup
}

// SkipOutcome returns the skip tag for an ineligible domain. The class
// check wins over the power check, which wins over the cleanup flag, so
// a running AppVM is reported as skipped-wrong-class. ok is false when
// the domain is eligible.
func SkipOutcome(d domain.Domain) (Outcome, bool) {
	switch {
	case !d.Class.Disposable():
		return OutcomeSkippedClass, true
	case !d.Power.Halted():
		return OutcomeSkippedRunning, true
	case !d.AutoCleanup:
		return OutcomeSkippedNoCleanup, true
	}
	return "", false
}

// Result is the outcome of processing one domain in a pass.
type Result struct {
	Domain  domain.Domain
	Outcome Outcome

	// Err is set exactly when Outcome is OutcomeRemovalFailed.
	Err error
}

// Results collects the per-domain results of one pass, in enumeration
// order.
type Results []Result

// Removed counts the domains removed, including those found already
// gone.
func (rs Results) Removed() int { return rs.count(OutcomeRemoved) }

// Failed counts the domains whose removal failed.
func (rs Results) Failed() int { return rs.count(OutcomeRemovalFailed) }

// WouldRemove counts the domains a dry-run pass held back from
// removing.
func (rs Results) WouldRemove() int { return rs.count(OutcomeWouldRemove) }

// Skipped counts the domains that were not eligible.
func (rs Results) Skipped() int {
	n := 0
	for _, r := range rs {
		if r.Outcome.Skipped() {
			n++
		}
	}
	return n
}

func (rs Results) count(o Outcome) int {
	n := 0
	for _, r := range rs {
		if r.Outcome == o {
			n++
		}
	}
	return n
}

// Counts tallies the results by outcome.
func (rs Results) Counts() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, r := range rs {
		counts[r.Outcome]++
	}
	return counts
}

// Summary renders a one-line account of the pass.
func (rs Results) Summary() string {
	if n := rs.WouldRemove(); n > 0 {
		return fmt.Sprintf("%d would be removed, %d skipped", n, rs.Skipped())
	}
	return fmt.Sprintf("%d removed, %d failed, %d skipped",
		rs.Removed(), rs.Failed(), rs.Skipped())
}
