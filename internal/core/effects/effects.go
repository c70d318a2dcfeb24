// Package effects defines effect types as data structures representing I/O operations.
// This is the foundation of the Functional Core / Imperative Shell pattern.
// Effects are pure data - they describe what should happen, not how.
package effects

// Effect is the base interface for all effects.
// Effects represent I/O operations as data that can be interpreted by the shell.
type Effect interface {
	// EffectType returns a string identifier for the effect type.
	EffectType() string
}

// LinkEffect derives a legal PV from a registry PV and cross-links both.
type LinkEffect struct {
	RegistryID string
}

func (e LinkEffect) EffectType() string { return "link" }

// RenderEffect renders a record to PDF and persists the document path.
type RenderEffect struct {
	Kind     string
	RecordID string
}

func (e RenderEffect) EffectType() string { return "render" }

// NotifyEffect pushes the rendered document of a record to the webhook.
// It depends on a prior RenderEffect for the same record.
type NotifyEffect struct {
	Kind     string
	RecordID string
}

func (e NotifyEffect) EffectType() string { return "notify" }

// CompositeEffect holds multiple effects to be executed in sequence.
type CompositeEffect struct {
	Effects []Effect
}

func (e CompositeEffect) EffectType() string { return "composite" }

// NoEffect represents an operation that produces no side effects.
type NoEffect struct{}

func (e NoEffect) EffectType() string { return "none" }
