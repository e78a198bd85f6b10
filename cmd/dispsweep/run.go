// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/hostd/dispsweep/api"
	"github.com/hostd/dispsweep/internal/sweeper"
)

// defaultAPITimeout bounds each call made over the hostd socket.
const defaultAPITimeout = 30 * time.Second

type runCommand struct {
	cmd.CommandBase

	socketPath string
	timeout    time.Duration
	dryRun     bool

	newAPIFunc func() (DomainAPI, error)
}

var runDoc = `
Runs a single sweep pass: every disposable domain that has halted and
asked for cleanup is removed. One line per considered domain is written
to stdout, followed by a summary on stderr.

A domain that cannot be removed is reported and left for a later pass;
the command only fails when the pass itself cannot run.
`

const runExamples = `
    dispsweep run
    dispsweep run --dry-run
    dispsweep run --socket /tmp/hostd-test.sock
`

// newRunCommand returns a command that runs one sweep pass.
func newRunCommand() cmd.Command {
	c := &runCommand{}
	c.newAPIFunc = func() (DomainAPI, error) {
		return newSweepAPI(c.socketPath, c.timeout)
	}
	return c
}

// Info implements cmd.Command.
func (c *runCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:     "run",
		Purpose:  "Run one cleanup pass over the host's domains.",
		Doc:      runDoc,
		Examples: runExamples,
	}
}

// SetFlags implements cmd.Command.
func (c *runCommand) SetFlags(f *gnuflag.FlagSet) {
	c.CommandBase.SetFlags(f)
	f.StringVar(&c.socketPath, "socket", api.DefaultSocketPath, "Path of the hostd administrative socket")
	f.DurationVar(&c.timeout, "timeout", defaultAPITimeout, "Timeout for each hostd call")
	f.BoolVar(&c.dryRun, "dry-run", false, "Report what would be removed without removing anything")
}

// Init implements cmd.Command.
func (c *runCommand) Init(args []string) error {
	return cmd.CheckEmpty(args)
}

// Run implements cmd.Command.
func (c *runCommand) Run(ctxt *cmd.Context) error {
	conn, err := c.newAPIFunc()
	if err != nil {
		return errors.Trace(err)
	}
	defer conn.Close()

	pass, err := sweeper.New(sweeper.Config{
		Facade: conn,
		Clock:  clock.WallClock,
		Logger: logger,
		DryRun: c.dryRun,
	})
	if err != nil {
		return errors.Trace(err)
	}
	results, err := pass.Run(context.Background())
	if err != nil {
		return errors.Trace(err)
	}

	tw := tabWriter(ctxt.Stdout)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t%s\t%v\n", r.Outcome, r.Domain.Name, r.Err)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\n", r.Outcome, r.Domain.Name)
	}
	tw.Flush()
	ctxt.Infof("%s", results.Summary())
	return nil
}
