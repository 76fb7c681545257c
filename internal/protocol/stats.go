package protocol

import "slices"

// Stats is the host's view of extension state at a point in time.
type Stats struct {
	Loaded    []string `json:"loaded"`
	Connected []string `json:"connected"`
}

// IsLoaded reports whether the extension was launched by the host.
func (s *Stats) IsLoaded(extensionID string) bool {
	return slices.Contains(s.Loaded, extensionID)
}

// IsConnected reports whether the extension holds a live broker connection.
func (s *Stats) IsConnected(extensionID string) bool {
	return slices.Contains(s.Connected, extensionID)
}

// Identity is the extension identity record established at connection time.
type Identity struct {
	Port        int    `json:"port"`
	Token       string `json:"token"`
	ExtensionID string `json:"extensionId"`
}

// EventHandler receives envelopes published on a subscribed event.
type EventHandler func(env *Envelope)

// Subscription identifies one Subscribe registration. Handlers are funcs and
// cannot be compared, so unsubscribing uses this token instead.
type Subscription string
