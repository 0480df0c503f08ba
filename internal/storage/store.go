// Package storage provides the session store: uploaded ledgers and batch
// progress records keyed by opaque session ids.
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/oakvale/ledgermap/internal/model"
)

// SessionStore is the contract for session persistence. It is passed
// explicitly to every consumer; there is no process-global store.
type SessionStore interface {
	// Upload sessions.
	PutSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ContainsSession(ctx context.Context, id string) (bool, error)
	DeleteSession(ctx context.Context, id string) error

	// Batch progress records.
	PutBatch(ctx context.Context, id string, status *model.BatchStatus) error
	GetBatch(ctx context.Context, id string) (*model.BatchStatus, error)

	Close() error
}

// NewSessionID mints an opaque session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
