// Package credential persists the device credential issued at pairing
package credential

import (
	"context"
	"time"
)

// Credential is the opaque token that authorizes a device against the backend
type Credential struct {
	Token    string    `yaml:"token" json:"token"`
	PairedAt time.Time `yaml:"pairedAt" json:"pairedAt"`
}

// Valid reports whether the credential carries a token
func (c *Credential) Valid() bool {
	return c != nil && c.Token != ""
}

// Store persists at most one credential.
// Load returns an error matching errors.ErrNotFound when none is stored.
type Store interface {
	Load(ctx context.Context) (*Credential, error)
	Save(ctx context.Context, cred *Credential) error
	Clear(ctx context.Context) error
}
