// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package domain holds the types describing virtual machine domains
// as reported by the hostd administrative API.
package domain

import (
	"regexp"
)

// Class categorises a domain by the role it plays on the host.
type Class string

const (
	// ClassApp is a persistent application domain.
	ClassApp Class = "AppVM"

	// ClassDisposable is an ephemeral domain created for a single task
	// and expected to be cleaned up once it halts.
	ClassDisposable Class = "DispVM"

	// ClassTemplate is a domain whose root volume other domains are
	// derived from.
	ClassTemplate Class = "TemplateVM"

	// ClassStandalone is a self-contained domain not derived from a
	// template.
	ClassStandalone Class = "StandaloneVM"
)

// Disposable reports whether the class marks a domain as ephemeral.
// Classes this package does not know about are never disposable.
func (c Class) Disposable() bool {
	return c == ClassDisposable
}

// PowerState is the execution state of a domain as reported by hostd.
type PowerState string

const (
	PowerRunning   PowerState = "Running"
	PowerHalted    PowerState = "Halted"
	PowerPaused    PowerState = "Paused"
	PowerSuspended PowerState = "Suspended"
	PowerCrashed   PowerState = "Crashed"
	PowerTransient PowerState = "Transient"
	PowerUnknown   PowerState = "Unknown"
)

// Halted reports whether the domain has definitely stopped executing.
// Anything other than a clean halt, including states this package does
// not know about, counts as still running.
func (p PowerState) Halted() bool {
	return p == PowerHalted
}

// Domain is a point-in-time view of a single domain on the host. All
// fields come from one enumeration record; a Domain value is never
// updated in place.
type Domain struct {
	// Name uniquely identifies the domain on the host.
	Name string

	// Class is the domain's role.
	Class Class

	// Power is the execution state at the time of enumeration.
	Power PowerState

	// AutoCleanup is set when the domain asked to be removed once it
	// halts.
	AutoCleanup bool
}

// MaxNameLength bounds hostd domain names.
const MaxNameLength = 31

var validName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// IsValidName reports whether name is usable as a hostd domain name.
func IsValidName(name string) bool {
	return len(name) <= MaxNameLength && validName.MatchString(name)
}
