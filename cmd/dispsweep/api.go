// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"time"

	"github.com/juju/errors"

	"github.com/hostd/dispsweep/api"
	"github.com/hostd/dispsweep/api/domainmanager"
	"github.com/hostd/dispsweep/core/domain"
)

// DomainAPI is the slice of the hostd administrative API the commands
// use.
type DomainAPI interface {
	ListDomains(ctx context.Context) ([]domain.Domain, error)
	RemoveDomain(ctx context.Context, name string) error
	Close() error
}

// sweepAPI bundles a domain manager client with the connection it
// runs over, so callers get a single thing to close.
type sweepAPI struct {
	*domainmanager.Client
	conn *api.Connection
}

func (a *sweepAPI) Close() error {
	return a.conn.Close()
}

func newSweepAPI(socketPath string, timeout time.Duration) (*sweepAPI, error) {
	conn, err := api.Open(api.Info{
		SocketPath: socketPath,
		Timeout:    timeout,
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &sweepAPI{
		Client: domainmanager.NewClient(conn),
		conn:   conn,
	}, nil
}
