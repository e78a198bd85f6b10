// Copyright 2025 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package params holds the wire structures of the hostd administrative
// API, as spoken over the admin socket. Changing the json tags here
// changes the protocol.
package params

// DomainInfo describes one domain in a ListDomains result. It carries
// everything a sweep decision needs, so the decision never has to go
// back to hostd for more state.
type DomainInfo struct {
	Name        string `json:"name"`
	Class       string `json:"class"`
	PowerState  string `json:"power-state"`
	AutoCleanup bool   `json:"auto-cleanup"`
}

// ListDomainsResults holds the domain table returned by hostd.
type ListDomainsResults struct {
	Domains []DomainInfo `json:"domains"`
}

// RemoveDomainArgs identifies the domain a RemoveDomain request applies
// to.
type RemoveDomainArgs struct {
	Name string `json:"name"`
}
