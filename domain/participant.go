// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Participant is a present chat user, identified by its unique sanitized name.
type Participant struct {
	Name       string
	LastStatus time.Time
}

func NewParticipant(name string, at time.Time) Participant {
	return Participant{Name: name, LastStatus: at}
}

// IsStale reports whether no heartbeat was received for strictly more than threshold.
func (p Participant) IsStale(now time.Time, threshold time.Duration) bool {
	return now.Sub(p.LastStatus) > threshold
}
