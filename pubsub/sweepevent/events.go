// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package sweepevent defines the messages the sweep worker publishes
// on the daemon's hub. Subscribers get a running commentary of each
// pass without coupling to the worker itself.
package sweepevent

import (
	"time"
)

const (
	// StartedTopic is published once at the start of every pass.
	StartedTopic = "sweep.started"

	// RemovedTopic is published for each domain removed by a pass.
	RemovedTopic = "sweep.domain-removed"

	// CompletedTopic is published once at the end of every pass,
	// failed passes included. A pass cut short by the worker
	// stopping publishes nothing further.
	CompletedTopic = "sweep.completed"
)

// StartedMessage is the payload of StartedTopic.
type StartedMessage struct {
	DryRun bool `json:"dry-run"`
}

// RemovedMessage is the payload of RemovedTopic.
type RemovedMessage struct {
	Name string `json:"name"`
}

// CompletedMessage is the payload of CompletedTopic. When the pass
// could not run at all, Error holds the reason and the counts are
// zero.
type CompletedMessage struct {
	Removed  int           `json:"removed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`

	// WouldRemove is only ever non-zero for dry-run passes.
	WouldRemove int `json:"would-remove,omitempty"`
}
