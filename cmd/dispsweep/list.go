// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/juju/cmd/v3"
	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"

	"github.com/hostd/dispsweep/api"
	"github.com/hostd/dispsweep/core/sweep"
)

type listCommand struct {
	cmd.CommandBase

	out        cmd.Output
	socketPath string
	timeout    time.Duration
	classes    string

	newAPIFunc func() (DomainAPI, error)
}

var listDoc = `
Lists the domains hostd knows about, along with whether each one
qualifies for cleanup. A domain qualifies when it is disposable, has
halted, and asked to be cleaned up once it stops.
`

const listExamples = `
    dispsweep list
    dispsweep list --class DispVM
    dispsweep list --class AppVM,StandaloneVM --format yaml
`

// newListCommand returns a command that lists domains and their
// cleanup eligibility.
func newListCommand() cmd.Command {
	c := &listCommand{}
	c.newAPIFunc = func() (DomainAPI, error) {
		return newSweepAPI(c.socketPath, c.timeout)
	}
	return c
}

// Info implements cmd.Command.
func (c *listCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:     "list",
		Purpose:  "List domains and their cleanup eligibility.",
		Doc:      listDoc,
		Examples: listExamples,
	}
}

// SetFlags implements cmd.Command.
func (c *listCommand) SetFlags(f *gnuflag.FlagSet) {
	c.CommandBase.SetFlags(f)
	f.StringVar(&c.socketPath, "socket", api.DefaultSocketPath, "Path of the hostd administrative socket")
	f.DurationVar(&c.timeout, "timeout", defaultAPITimeout, "Timeout for each hostd call")
	f.StringVar(&c.classes, "class", "", "Only show domains of these comma-separated classes")
	c.out.AddFlags(f, "tabular", map[string]cmd.Formatter{
		"tabular": formatListTabular,
		"yaml":    cmd.FormatYaml,
		"json":    cmd.FormatJson,
	})
}

// Init implements cmd.Command.
func (c *listCommand) Init(args []string) error {
	return cmd.CheckEmpty(args)
}

// listItem is the listing for one domain.
type listItem struct {
	Name        string `yaml:"name" json:"name"`
	Class       string `yaml:"class" json:"class"`
	State       string `yaml:"state" json:"state"`
	AutoCleanup bool   `yaml:"auto-cleanup" json:"auto-cleanup"`
	Eligible    bool   `yaml:"eligible" json:"eligible"`
}

// Run implements cmd.Command.
func (c *listCommand) Run(ctxt *cmd.Context) error {
	conn, err := c.newAPIFunc()
	if err != nil {
		return errors.Trace(err)
	}
	defer conn.Close()

	domains, err := conn.ListDomains(context.Background())
	if err != nil {
		return errors.Trace(err)
	}

	filter := set.NewStrings()
	if c.classes != "" {
		for _, class := range strings.Split(c.classes, ",") {
			filter.Add(strings.TrimSpace(class))
		}
	}

	items := make([]listItem, 0, len(domains))
	for _, d := range domains {
		if !filter.IsEmpty() && !filter.Contains(string(d.Class)) {
			continue
		}
		items = append(items, listItem{
			Name:        d.Name,
			Class:       string(d.Class),
			State:       string(d.Power),
			AutoCleanup: d.AutoCleanup,
			Eligible:    sweep.Eligible(d),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return c.out.Write(ctxt, items)
}

// formatListTabular writes a tabular summary of domains.
func formatListTabular(writer io.Writer, value interface{}) error {
	items, ok := value.([]listItem)
	if !ok {
		return errors.Errorf("expected value of type %T, got %T", items, value)
	}

	tw := tabWriter(writer)
	fmt.Fprintln(tw, "Name\tClass\tState\tAuto-cleanup\tEligible")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%v\n",
			item.Name, item.Class, item.State, item.AutoCleanup, item.Eligible)
	}
	return tw.Flush()
}
