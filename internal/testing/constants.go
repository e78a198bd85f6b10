// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package testing holds the timing constants shared by the test
// suites.
package testing

import (
	"time"

	"github.com/juju/utils/v4"
)

// ShortWait is a reasonable amount of time to block waiting for
// something that shouldn't actually happen. (as in, the test suite
// will need to wait for that long before continuing.)
const ShortWait = 50 * time.Millisecond

// LongWait is used when something should have already happened, or
// happens quickly, but we want to make sure we just haven't missed
// it. As in, the test ought to pass quickly, but we don't want it to
// fail just because we were a little slow. It's all moot if the tests
// are run on a slow machine.
const LongWait = 10 * time.Second

// LongAttempt polls for a condition that should come true promptly.
var LongAttempt = &utils.AttemptStrategy{
	Total: LongWait,
	Delay: ShortWait,
}
