// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package sweeper implements one cleanup pass over the host's domain
// table: enumerate every domain, pick out the halted disposable ones
// that asked for cleanup, and remove them.
//
// A pass makes every decision from the single snapshot returned by
// enumeration. Failure to remove one domain never stops the pass;
// failure to enumerate does, because without a snapshot there is
// nothing trustworthy to decide with.
package sweeper

import (
	"context"

	"github.com/juju/clock"
	"github.com/juju/errors"

	"github.com/hostd/dispsweep/api/params"
	"github.com/hostd/dispsweep/core/domain"
	"github.com/hostd/dispsweep/core/sweep"
)

// Facade is the capability set a sweep needs from hostd. It is
// satisfied by *domainmanager.Client.
type Facade interface {
	// ListDomains returns a snapshot of the domain table.
	ListDomains(ctx context.Context) ([]domain.Domain, error)

	// RemoveDomain removes the named domain and confirms the result.
	RemoveDomain(ctx context.Context, name string) error
}

// Logger is the subset of loggo.Logger the sweeper uses.
type Logger interface {
	Errorf(string, ...interface{})
	Warningf(string, ...interface{})
	Infof(string, ...interface{})
	Debugf(string, ...interface{})
}

// Config holds the dependencies and options of a Sweeper.
type Config struct {
	Facade Facade
	Clock  clock.Clock
	Logger Logger

	// DryRun makes passes report what they would remove without
	// removing anything.
	DryRun bool
}

// Validate returns an error if the config cannot be used.
func (config Config) Validate() error {
	if config.Facade == nil {
		return errors.NotValidf("nil Facade")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// Sweeper runs cleanup passes over the domain table.
type Sweeper struct {
	config Config
}

// New returns a Sweeper with the supplied config.
func New(config Config) (*Sweeper, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &Sweeper{config: config}, nil
}

// Run performs one cleanup pass and returns a result for every
// enumerated domain, in enumeration order.
//
// Run returns a non-nil error in exactly two cases: enumeration
// failed, in which case no removal was attempted and the results are
// nil; or ctx was cancelled, in which case the results cover the
// domains processed so far. Per-domain removal failures are recorded
// in the results instead.
func (s *Sweeper) Run(ctx context.Context) (sweep.Results, error) {
	config := s.config
	start := config.Clock.Now()

	domains, err := config.Facade.ListDomains(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "enumerating domains")
	}
	config.Logger.Debugf("enumerated %d domains", len(domains))

	results := make(sweep.Results, 0, len(domains))
	for _, d := range domains {
		if err := ctx.Err(); err != nil {
			// Stopped between domains; whatever is left waits for
			// the next pass.
			return results, errors.Trace(err)
		}
		results = append(results, s.processOne(ctx, d))
	}
	config.Logger.Infof("sweep finished in %v: %s",
		config.Clock.Now().Sub(start), results.Summary())
	return results, nil
}

func (s *Sweeper) processOne(ctx context.Context, d domain.Domain) sweep.Result {
	config := s.config
	if outcome, skip := sweep.SkipOutcome(d); skip {
		config.Logger.Debugf("skipping domain %q: %s", d.Name, outcome)
		return sweep.Result{Domain: d, Outcome: outcome}
	}
	if config.DryRun {
		config.Logger.Infof("would remove domain %q", d.Name)
		return sweep.Result{Domain: d, Outcome: sweep.OutcomeWouldRemove}
	}
	err := config.Facade.RemoveDomain(ctx, d.Name)
	switch {
	case err == nil:
		config.Logger.Infof("removed domain %q", d.Name)
		return sweep.Result{Domain: d, Outcome: sweep.OutcomeRemoved}
	case errors.Is(err, errors.NotFound):
		// Something else cleaned it up first, which is the outcome
		// we were after anyway.
		config.Logger.Debugf("domain %q was already gone", d.Name)
		return sweep.Result{Domain: d, Outcome: sweep.OutcomeRemoved}
	case params.IsCodeInUse(err):
		config.Logger.Warningf("not removing domain %q: %v", d.Name, err)
		return sweep.Result{Domain: d, Outcome: sweep.OutcomeRemovalFailed, Err: err}
	default:
		config.Logger.Errorf("failed to remove domain %q: %v", d.Name, err)
		return sweep.Result{Domain: d, Outcome: sweep.OutcomeRemovalFailed, Err: err}
	}
}
