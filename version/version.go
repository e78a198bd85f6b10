// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package version acts as guardian of the current dispsweep version
// number.
package version

import (
	semversion "github.com/juju/version/v2"
)

// The presence and format of this constant is very important.
// The debian/rules build recipe uses this value for the version
// number of the release package.
const version = "0.9.2"

// Current gives the current version of the tools.
var Current = semversion.MustParse(version)
