// Package provider wraps the cloud API used to inspect, delete and recreate
// the monitored server.
package provider

import (
	"context"

	"github.com/charliek/revive/internal/domain"
)

// Gateway is the narrow set of provider calls recovery needs. Implementations
// never retry; callers decide using the wrapped domain error kind.
type Gateway interface {
	// Fetch returns the server's current state. Errors wrap domain.ErrNotFound
	// or domain.ErrTransient.
	Fetch(ctx context.Context, serverID string) (domain.ServerInfo, error)

	// Delete removes the server. A server that no longer exists is not an error.
	Delete(ctx context.Context, serverID string) error

	// FindByName returns the server with the given name. Errors wrap
	// domain.ErrNotFound or domain.ErrTransient.
	FindByName(ctx context.Context, name string) (domain.ServerInfo, error)

	// Create provisions a server from spec. Errors wrap domain.ErrQuotaExceeded,
	// domain.ErrInvalidSpec or domain.ErrTransient.
	Create(ctx context.Context, spec domain.RecoverySpec) (domain.CreatedServer, error)
}
