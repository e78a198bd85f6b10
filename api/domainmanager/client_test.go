// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package domainmanager_test

import (
	"context"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/hostd/dispsweep/api/domainmanager"
	"github.com/hostd/dispsweep/api/params"
	"github.com/hostd/dispsweep/core/domain"
)

type clientSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&clientSuite{})

// callerFunc turns a function into an api.Caller.
type callerFunc func(ctx context.Context, request string, args, response interface{}) error

func (f callerFunc) Call(ctx context.Context, request string, args, response interface{}) error {
	return f(ctx, request, args, response)
}

func (s *clientSuite) TestListDomains(c *gc.C) {
	client := domainmanager.NewClient(callerFunc(
		func(ctx context.Context, request string, args, response interface{}) error {
			c.Check(request, gc.Equals, "ListDomains")
			c.Check(args, gc.IsNil)
			*(response.(*params.ListDomainsResults)) = params.ListDomainsResults{
				Domains: []params.DomainInfo{{
					Name:        "disp1234",
					Class:       "DispVM",
					PowerState:  "Halted",
					AutoCleanup: true,
				}, {
					Name:       "work",
					Class:      "AppVM",
					PowerState: "Running",
				}},
			}
			return nil
		},
	))

	domains, err := client.ListDomains(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(domains, jc.DeepEquals, []domain.Domain{{
		Name:        "disp1234",
		Class:       domain.ClassDisposable,
		Power:       domain.PowerHalted,
		AutoCleanup: true,
	}, {
		Name:  "work",
		Class: domain.ClassApp,
		Power: domain.PowerRunning,
	}})
}

func (s *clientSuite) TestListDomainsEmpty(c *gc.C) {
	client := domainmanager.NewClient(callerFunc(
		func(ctx context.Context, request string, args, response interface{}) error {
			return nil
		},
	))
	domains, err := client.ListDomains(context.Background())
	c.Assert(err, jc.ErrorIsNil)
	c.Check(domains, gc.HasLen, 0)
}

func (s *clientSuite) TestListDomainsError(c *gc.C) {
	client := domainmanager.NewClient(callerFunc(
		func(ctx context.Context, request string, args, response interface{}) error {
			return errors.New("hostd is having a bad day")
		},
	))
	domains, err := client.ListDomains(context.Background())
	c.Assert(err, gc.ErrorMatches, "hostd is having a bad day")
	c.Check(domains, gc.IsNil)
}

func (s *clientSuite) TestRemoveDomain(c *gc.C) {
	var called bool
	client := domainmanager.NewClient(callerFunc(
		func(ctx context.Context, request string, args, response interface{}) error {
			called = true
			c.Check(request, gc.Equals, "RemoveDomain")
			c.Check(args, jc.DeepEquals, params.RemoveDomainArgs{Name: "disp1234"})
			c.Check(response, gc.IsNil)
			return nil
		},
	))
	err := client.RemoveDomain(context.Background(), "disp1234")
	c.Assert(err, jc.ErrorIsNil)
	c.Check(called, jc.IsTrue)
}

func (s *clientSuite) TestRemoveDomainNotFound(c *gc.C) {
	client := domainmanager.NewClient(callerFunc(
		func(ctx context.Context, request string, args, response interface{}) error {
			return errors.NewNotFound(nil, `domain "disp1234" not found`)
		},
	))
	err := client.RemoveDomain(context.Background(), "disp1234")
	c.Assert(err, jc.ErrorIs, errors.NotFound)
}

func (s *clientSuite) TestRemoveDomainInUse(c *gc.C) {
	client := domainmanager.NewClient(callerFunc(
		func(ctx context.Context, request string, args, response interface{}) error {
			return &params.Error{Message: `domain "disp1234" is in use`, Code: params.CodeInUse}
		},
	))
	err := client.RemoveDomain(context.Background(), "disp1234")
	c.Assert(params.IsCodeInUse(err), jc.IsTrue)
}

func (s *clientSuite) TestRemoveDomainBadName(c *gc.C) {
	client := domainmanager.NewClient(callerFunc(
		func(ctx context.Context, request string, args, response interface{}) error {
			c.Fatalf("no call expected for an invalid name")
			return nil
		},
	))
	err := client.RemoveDomain(context.Background(), "not a name")
	c.Assert(err, jc.ErrorIs, errors.NotValid)
	c.Check(err, gc.ErrorMatches, `domain name "not a name" not valid`)
}
