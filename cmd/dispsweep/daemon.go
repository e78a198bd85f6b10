// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/cmd/v3"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/pubsub/v2"
	"github.com/juju/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/yaml.v2"

	"github.com/hostd/dispsweep/api"
	"github.com/hostd/dispsweep/internal/sweepmetrics"
	sweepworker "github.com/hostd/dispsweep/internal/worker/sweep"
)

// defaultInterval is the time between sweep passes when nothing else
// is configured.
const defaultInterval = 5 * time.Minute

type daemonCommand struct {
	cmd.CommandBase

	socketPath  string
	timeout     time.Duration
	interval    time.Duration
	dryRun      autoBoolValue
	metricsAddr string
	configPath  string
}

var daemonDoc = `
Runs sweep passes on a fixed interval until stopped. The first pass
starts immediately; a pass that fails is logged and retried on the
next tick with a fresh hostd connection.

Settings may come from a YAML configuration file; explicit flags beat
the file, and the file beats the built-in defaults. The file accepts
the keys socket, timeout, interval, dry-run and metrics-addr, with
durations written like "90s" or "10m".

With --metrics-addr set, prometheus metrics about passes are served on
that address under /metrics.
`

const daemonExamples = `
    dispsweep daemon
    dispsweep daemon --interval 10m --metrics-addr :9090
    dispsweep daemon --config /etc/dispsweep.yaml
`

// newDaemonCommand returns a command that sweeps periodically until
// stopped.
func newDaemonCommand() cmd.Command {
	return &daemonCommand{}
}

// Info implements cmd.Command.
func (c *daemonCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:     "daemon",
		Purpose:  "Run cleanup passes on an interval until stopped.",
		Doc:      daemonDoc,
		Examples: daemonExamples,
	}
}

// SetFlags implements cmd.Command.
func (c *daemonCommand) SetFlags(f *gnuflag.FlagSet) {
	c.CommandBase.SetFlags(f)
	f.StringVar(&c.socketPath, "socket", "", "Path of the hostd administrative socket (default /run/hostd/admin.sock)")
	f.DurationVar(&c.timeout, "timeout", 0, "Timeout for each hostd call (default 30s)")
	f.DurationVar(&c.interval, "interval", 0, "Time between sweep passes (default 5m)")
	f.Var(&c.dryRun, "dry-run", "Report what would be removed without removing anything")
	f.StringVar(&c.metricsAddr, "metrics-addr", "", "Address to serve prometheus metrics on, empty to disable")
	f.StringVar(&c.configPath, "config", "", "Path of a YAML configuration file")
}

// Init implements cmd.Command.
func (c *daemonCommand) Init(args []string) error {
	return cmd.CheckEmpty(args)
}

// fileSettings is the shape of the daemon configuration file.
type fileSettings struct {
	Socket      string `yaml:"socket"`
	Timeout     string `yaml:"timeout"`
	Interval    string `yaml:"interval"`
	DryRun      bool   `yaml:"dry-run"`
	MetricsAddr string `yaml:"metrics-addr"`
}

// daemonConfig is the fully resolved daemon configuration.
type daemonConfig struct {
	SocketPath  string
	Timeout     time.Duration
	Interval    time.Duration
	DryRun      bool
	MetricsAddr string
}

// config resolves flags, the configuration file and built-in defaults
// into one daemonConfig.
func (c *daemonCommand) config() (daemonConfig, error) {
	if c.timeout < 0 {
		return daemonConfig{}, errors.NotValidf("negative timeout")
	}
	if c.interval < 0 {
		return daemonConfig{}, errors.NotValidf("negative interval")
	}
	var file fileSettings
	if c.configPath != "" {
		data, err := os.ReadFile(c.configPath)
		if err != nil {
			return daemonConfig{}, errors.Trace(err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return daemonConfig{}, errors.Annotatef(err, "parsing %q", c.configPath)
		}
	}

	config := daemonConfig{
		SocketPath:  c.socketPath,
		DryRun:      file.DryRun,
		MetricsAddr: c.metricsAddr,
	}
	if dryRun := c.dryRun.Get(); dryRun != nil {
		config.DryRun = *dryRun
	}
	if config.SocketPath == "" {
		config.SocketPath = file.Socket
	}
	if config.SocketPath == "" {
		config.SocketPath = api.DefaultSocketPath
	}
	if config.MetricsAddr == "" {
		config.MetricsAddr = file.MetricsAddr
	}
	var err error
	if config.Timeout, err = pickDuration(c.timeout, file.Timeout, defaultAPITimeout); err != nil {
		return daemonConfig{}, errors.Annotate(err, "timeout")
	}
	if config.Interval, err = pickDuration(c.interval, file.Interval, defaultInterval); err != nil {
		return daemonConfig{}, errors.Annotate(err, "interval")
	}
	return config, nil
}

// pickDuration returns the flag value when set, then the parsed file
// value, then the fallback.
func pickDuration(flag time.Duration, file string, fallback time.Duration) (time.Duration, error) {
	if flag > 0 {
		return flag, nil
	}
	if file != "" {
		d, err := time.ParseDuration(file)
		if err != nil {
			return 0, errors.Trace(err)
		}
		return d, nil
	}
	return fallback, nil
}

// Run implements cmd.Command.
func (c *daemonCommand) Run(ctxt *cmd.Context) error {
	config, err := c.config()
	if err != nil {
		return errors.Trace(err)
	}

	newFacade := func() (sweepworker.Facade, error) {
		return newSweepAPI(config.SocketPath, config.Timeout)
	}

	// Don't start ticking before hostd has answered once; a freshly
	// booted host may bring us up first.
	err = retry.Call(retry.CallArgs{
		Func: func() error {
			conn, err := newFacade()
			if err != nil {
				return err
			}
			return conn.Close()
		},
		NotifyFunc: func(err error, attempt int) {
			logger.Debugf("waiting for hostd (attempt %d): %v", attempt, err)
		},
		Attempts: 60,
		Delay:    time.Second,
		Clock:    clock.WallClock,
	})
	if err != nil {
		return errors.Annotatef(err, "hostd is not answering on %q", config.SocketPath)
	}

	hub := pubsub.NewStructuredHub(nil)

	if config.MetricsAddr != "" {
		collector := sweepmetrics.NewMetricsCollector()
		registry := prometheus.NewRegistry()
		if err := registry.Register(collector); err != nil {
			return errors.Trace(err)
		}
		unsubscribe, err := sweepmetrics.Subscribe(hub, collector)
		if err != nil {
			return errors.Trace(err)
		}
		defer unsubscribe()

		listener, err := net.Listen("tcp", config.MetricsAddr)
		if err != nil {
			return errors.Annotatef(err, "listening on %q", config.MetricsAddr)
		}
		defer listener.Close()
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.Serve(listener, mux); err != nil {
				logger.Debugf("metrics server: %v", err)
			}
		}()
		logger.Infof("serving metrics on http://%s/metrics", listener.Addr())
	}

	w, err := sweepworker.NewWorker(sweepworker.Config{
		NewFacade: newFacade,
		Clock:     clock.WallClock,
		Logger:    logger,
		Interval:  config.Interval,
		Hub:       hub,
		DryRun:    config.DryRun,
	})
	if err != nil {
		return errors.Trace(err)
	}
	logger.Infof("sweeping every %v (dry-run %v)", config.Interval, config.DryRun)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan error, 1)
	go func() { done <- w.Wait() }()
	select {
	case sig := <-sigCh:
		logger.Infof("caught %v, stopping", sig)
		w.Kill()
		return errors.Trace(w.Wait())
	case err := <-done:
		return errors.Trace(err)
	}
}
