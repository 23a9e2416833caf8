// Package domain contains core concepts of the chat relay.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Participant is a registered chat member, keyed by display name.
// LastStatus is refreshed by heartbeats; creation counts as the first one.
type Participant struct {
	Name       string
	LastStatus time.Time
}

// Stale reports whether the participant has missed the liveness window.
// A LastStatus exactly at the threshold is still fresh.
func (p Participant) Stale(ttl time.Duration, now time.Time) bool {
	return p.LastStatus.Before(now.Add(-ttl))
}
