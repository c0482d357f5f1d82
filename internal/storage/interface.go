package storage

import (
	"context"
	"errors"

	"github.com/safevoice/incident-intake/internal/models"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

// Store is the narrow contract this service holds against the identity
// and report storage engine. Everything else about the engine (schema
// ownership, serialization of writes) lives behind it.
type Store interface {
	// LookupByHash resolves a hashed reporter contact address to a UIN.
	// Returns ErrNotFound when the address has no registered identity.
	LookupByHash(ctx context.Context, contactHash string) (string, error)

	// LookupByUsernames returns the (username, UIN) pairs registered for
	// any of the given handles. Handles with no match simply do not
	// appear in the result.
	LookupByUsernames(ctx context.Context, handles []string) ([]models.UsernameMatch, error)

	// VerifyIdentifiers returns the subset of the given UINs that exist
	// in the organization directory.
	VerifyIdentifiers(ctx context.Context, uins []string) ([]string, error)

	// InsertReport persists a new report atomically and returns its
	// storage identity. The case token is covered by a unique index;
	// a collision surfaces as an error, never as an overwrite.
	InsertReport(ctx context.Context, report *models.Report) (*models.ReportReceipt, error)

	// GetReportByToken loads a report by its case token. Returns
	// ErrNotFound when no report carries the token.
	GetReportByToken(ctx context.Context, token string) (*models.Report, error)

	// CountReportsByStatus returns report counts keyed by status.
	CountReportsByStatus(ctx context.Context) (map[string]int, error)
}
