// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package domainmanager provides access to the domain management facet
// of the hostd admin API: enumerating the domain table and removing
// domains.
package domainmanager

import (
	"context"

	"github.com/juju/errors"

	"github.com/hostd/dispsweep/api"
	"github.com/hostd/dispsweep/api/params"
	"github.com/hostd/dispsweep/core/domain"
)

// Client wraps the domain management requests.
type Client struct {
	caller api.Caller
}

// NewClient returns a domain manager client backed by caller, usually
// an *api.Connection.
func NewClient(caller api.Caller) *Client {
	return &Client{caller: caller}
}

// ListDomains fetches the domain table. Every field of a returned
// Domain comes from the same enumeration record, so the caller can
// make decisions without going back to hostd.
func (c *Client) ListDomains(ctx context.Context) ([]domain.Domain, error) {
	var results params.ListDomainsResults
	if err := c.caller.Call(ctx, "ListDomains", nil, &results); err != nil {
		return nil, errors.Trace(err)
	}
	domains := make([]domain.Domain, len(results.Domains))
	for i, info := range results.Domains {
		domains[i] = domain.Domain{
			Name:        info.Name,
			Class:       domain.Class(info.Class),
			Power:       domain.PowerState(info.PowerState),
			AutoCleanup: info.AutoCleanup,
		}
	}
	return domains, nil
}

// RemoveDomain asks hostd to remove the named domain and confirms the
// result. A nil return means the domain is gone. A not found error
// means it was gone already; a refusal because the domain is busy
// satisfies params.IsCodeInUse.
func (c *Client) RemoveDomain(ctx context.Context, name string) error {
	if !domain.IsValidName(name) {
		return errors.NotValidf("domain name %q", name)
	}
	args := params.RemoveDomainArgs{Name: name}
	return errors.Trace(c.caller.Call(ctx, "RemoveDomain", args, nil))
}
