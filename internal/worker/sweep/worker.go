// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package sweep provides a worker that runs cleanup passes over the
// host's domain table on a fixed interval, for as long as it is
// allowed to live.
package sweep

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/pubsub/v2"
	"github.com/juju/worker/v4"
	"github.com/juju/worker/v4/catacomb"

	"github.com/hostd/dispsweep/core/domain"
	coresweep "github.com/hostd/dispsweep/core/sweep"
	"github.com/hostd/dispsweep/internal/sweeper"
	"github.com/hostd/dispsweep/pubsub/sweepevent"
)

// Facade is the hostd connection a pass runs against. The worker makes
// a fresh one for every pass and closes it afterwards, so a hostd
// restart costs at most the pass that saw it.
type Facade interface {
	ListDomains(ctx context.Context) ([]domain.Domain, error)
	RemoveDomain(ctx context.Context, name string) error
	Close() error
}

// Logger is the subset of loggo.Logger the worker uses.
type Logger interface {
	Errorf(string, ...interface{})
	Warningf(string, ...interface{})
	Infof(string, ...interface{})
	Debugf(string, ...interface{})
}

// Config holds configuration required to run the sweep worker.
type Config struct {
	// NewFacade opens a connection to hostd for one pass.
	NewFacade func() (Facade, error)

	// Clock is used for pass timing and the interval timer.
	Clock clock.Clock

	// Logger logs stuff.
	Logger Logger

	// Interval is the time between the end of one pass and the start
	// of the next.
	Interval time.Duration

	// Hub, when not nil, receives sweepevent messages as passes run.
	Hub *pubsub.StructuredHub

	// DryRun makes every pass report-only.
	DryRun bool
}

// Validate ensures that the configuration is correctly populated for
// worker operation.
func (config Config) Validate() error {
	if config.NewFacade == nil {
		return errors.NotValidf("nil NewFacade")
	}
	if config.Clock == nil {
		return errors.NotValidf("nil Clock")
	}
	if config.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	if config.Interval <= 0 {
		return errors.NotValidf("non-positive Interval")
	}
	return nil
}

type sweepWorker struct {
	catacomb catacomb.Catacomb
	config   Config
}

// NewWorker starts a sweep worker based on the supplied configuration
// and returns it. The first pass starts straight away.
func NewWorker(config Config) (worker.Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	w := &sweepWorker{config: config}
	if err := catacomb.Invoke(catacomb.Plan{
		Site: &w.catacomb,
		Work: w.loop,
	}); err != nil {
		return nil, errors.Trace(err)
	}
	return w, nil
}

func (w *sweepWorker) loop() error {
	ctx := w.catacomb.Context(context.Background())

	// First pass immediately; a daemon restart should not postpone
	// cleanup by a whole interval.
	w.runOnce(ctx)

	timer := w.config.Clock.NewTimer(w.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-w.catacomb.Dying():
			return w.catacomb.ErrDying()
		case <-timer.Chan():
			w.runOnce(ctx)
			timer.Reset(w.config.Interval)
		}
	}
}

// runOnce runs a single pass. A pass that cannot run is logged and
// left for the next tick; only a dying catacomb ends the loop.
func (w *sweepWorker) runOnce(ctx context.Context) {
	config := w.config
	start := config.Clock.Now()
	w.publish(sweepevent.StartedTopic, sweepevent.StartedMessage{DryRun: config.DryRun})

	results, err := w.sweep(ctx)
	elapsed := config.Clock.Now().Sub(start)
	if ctx.Err() != nil {
		// Interrupted on the way down; the loop notices the dying
		// catacomb next.
		config.Logger.Debugf("sweep interrupted after %d removals", results.Removed())
		return
	}
	if err != nil {
		// We failed this time, but the next tick gets a fresh
		// connection and a fresh chance.
		config.Logger.Errorf("sweep failed: %v", err)
		w.publish(sweepevent.CompletedTopic, sweepevent.CompletedMessage{
			Duration: elapsed,
			Error:    err.Error(),
		})
		return
	}
	for _, r := range results {
		if r.Outcome == coresweep.OutcomeRemoved {
			w.publish(sweepevent.RemovedTopic, sweepevent.RemovedMessage{Name: r.Domain.Name})
		}
	}
	w.publish(sweepevent.CompletedTopic, sweepevent.CompletedMessage{
		Removed:     results.Removed(),
		Failed:      results.Failed(),
		Skipped:     results.Skipped(),
		WouldRemove: results.WouldRemove(),
		Duration:    elapsed,
	})
}

// sweep opens a connection, runs one pass over it and closes it again.
func (w *sweepWorker) sweep(ctx context.Context) (coresweep.Results, error) {
	config := w.config
	facade, err := config.NewFacade()
	if err != nil {
		return nil, errors.Annotate(err, "connecting to hostd")
	}
	defer func() {
		if err := facade.Close(); err != nil {
			config.Logger.Debugf("closing hostd connection: %v", err)
		}
	}()

	pass, err := sweeper.New(sweeper.Config{
		Facade: facade,
		Clock:  config.Clock,
		Logger: config.Logger,
		DryRun: config.DryRun,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return pass.Run(ctx)
}

func (w *sweepWorker) publish(topic string, data interface{}) {
	if w.config.Hub == nil {
		return
	}
	if _, err := w.config.Hub.Publish(topic, data); err != nil {
		w.config.Logger.Warningf("publishing %s: %v", topic, err)
	}
}

// Kill (worker.Worker) tells the worker to stop and return from its
// loop.
func (w *sweepWorker) Kill() {
	w.catacomb.Kill(nil)
}

// Wait (worker.Worker) waits for the worker to stop, and returns the
// error with which it exited.
func (w *sweepWorker) Wait() error {
	return w.catacomb.Wait()
}
