// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/juju/cmd/v3"
	"github.com/juju/loggo"

	"github.com/hostd/dispsweep/version"
)

// LoggingConfigEnvKey sets the default logging configuration; the
// --logging-config flag overrides it.
const LoggingConfigEnvKey = "DISPSWEEP_LOGGING_CONFIG"

var logger = loggo.GetLogger("dispsweep.cmd")

var dispsweepDoc = `
dispsweep removes disposable domains that have served their purpose.

A domain qualifies for removal when it is disposable, has halted, and
asked to be cleaned up once it stops. Everything else on the host is
left strictly alone. dispsweep talks to the local hostd administrative
socket; it never touches domain storage directly.
`

// NewDispsweepCommand returns the top level dispsweep command with all
// the subcommands registered.
func NewDispsweepCommand() cmd.Command {
	sweepCmd := cmd.NewSuperCommand(cmd.SuperCommandParams{
		Name:    "dispsweep",
		Doc:     dispsweepDoc,
		Purpose: "Clean up halted disposable domains.",
		Log: &cmd.Log{
			DefaultConfig: os.Getenv(LoggingConfigEnvKey),
		},
		Version:   version.Current.String(),
		NotifyRun: runNotifier,
	})
	sweepCmd.Register(newRunCommand())
	sweepCmd.Register(newListCommand())
	sweepCmd.Register(newDaemonCommand())
	return sweepCmd
}

func runNotifier(name string) {
	logger.Infof("running %s [%s %s %s]", name, version.Current, runtime.Compiler, runtime.Version())
}

// Main registers subcommands for the dispsweep executable, and hands
// over control to the cmd package. This function is not redundant with
// main, because it provides an entry point for testing with arbitrary
// command line arguments.
func Main(args []string) int {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	return cmd.Main(NewDispsweepCommand(), ctx, args[1:])
}

func main() {
	os.Exit(Main(os.Args))
}
