// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"strconv"
)

// autoBoolValue is a gnuflag boolean that remembers whether it was set
// at all, so a command can tell an explicit --flag=false apart from the
// flag never being given.
type autoBoolValue struct {
	b *bool
}

// Set implements gnuflag.Value.
func (v *autoBoolValue) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	v.b = &b
	return nil
}

// Get returns the value set, or nil when the flag was never given.
func (v *autoBoolValue) Get() *bool {
	return v.b
}

// String implements gnuflag.Value.
func (v *autoBoolValue) String() string {
	if v.b != nil {
		return strconv.FormatBool(*v.b)
	}
	return "nil"
}

// IsBoolFlag lets gnuflag accept the flag with no argument.
func (v *autoBoolValue) IsBoolFlag() bool { return true }
