package colony

import "io"

// Settings is a flat key -> typed value descriptor a system may expose for
// external tooling (spec.md section 6's "settings descriptor"). colony
// stores and forwards it but never interprets or persists it itself.
type Settings map[string]any

// SettingsProvider is implemented by a System that wants to expose a
// Settings descriptor. Kept off the System interface itself so the common
// case, a system with nothing to expose, needs no extra method; callers
// recover it with a type assertion (see SettingsOf).
type SettingsProvider interface {
	Settings() (Settings, bool)
}

// PersistenceContext is the in-memory shape spec.md section 6's
// "Persisted state layout" describes: colony defines only this shape,
// leaving the actual save/load IO to an external collaborator. NewReader
// and NewWriter are never called by colony itself.
type PersistenceContext struct {
	// Dir is the context's directory name, relative to wherever the host's
	// save/load collaborator roots its state tree.
	Dir string
	// NewReader opens whatever the collaborator should read this system's
	// persisted state from.
	NewReader func() (io.ReadCloser, error)
	// NewWriter opens whatever the collaborator should write this system's
	// persisted state to.
	NewWriter func() (io.WriteCloser, error)
}

// PersistenceProvider is implemented by a System that wants to participate
// in external save/load. Optional, for the same reason SettingsProvider is.
type PersistenceProvider interface {
	PersistenceContext() (PersistenceContext, bool)
}
