// Package identity assigns identities to sub-entities embedded in parent documents.
package identity

import "github.com/google/uuid"

// Generator returns a new identity on every call.
type Generator interface {
	NewIdentity() string
}

// Func adapts an ordinary function to Generator.
type Func func() string

// NewIdentity calls f.
func (f Func) NewIdentity() string { return f() }

// UUIDGenerator issues random version-4 UUIDs.
type UUIDGenerator struct{}

// NewIdentity returns a random UUID in its canonical string form.
func (UUIDGenerator) NewIdentity() string { return uuid.NewString() }

// Default is the generator used when none is configured.
var Default Generator = UUIDGenerator{}
