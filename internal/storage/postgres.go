package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/safevoice/incident-intake/internal/models"
)

// PostgresStore implements Store on top of the case database.
type PostgresStore struct {
	db *sql.DB
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)

const (
	lookupByHashQuery = `SELECT uin FROM identities WHERE contact_hash = $1`

	lookupByUsernamesQuery = `SELECT username, uin FROM identities WHERE lower(username) = ANY($1)`

	verifyIdentifiersQuery = `SELECT uin FROM directory_entries WHERE uin = ANY($1)`

	insertReportQuery = `INSERT INTO reports (id, reporter_uin, subject_uins, content, incident_type, interim_relief, organization_id, case_token, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getReportByTokenQuery = `SELECT id, reporter_uin, subject_uins, content, incident_type, interim_relief, organization_id, case_token, status, created_at, closed_at FROM reports WHERE case_token = $1`

	countReportsByStatusQuery = `SELECT status, COUNT(*) FROM reports GROUP BY status`
)

// NewPostgresStore connects to the case database
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logrus.Info("Connected to case database")
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an existing connection. Used by tests.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// LookupByHash resolves a hashed contact address to a UIN
func (s *PostgresStore) LookupByHash(ctx context.Context, contactHash string) (string, error) {
	var uin string
	err := s.db.QueryRowContext(ctx, lookupByHashQuery, contactHash).Scan(&uin)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up identity by hash: %w", err)
	}
	return uin, nil
}

// LookupByUsernames returns registered (username, UIN) pairs for the given handles
func (s *PostgresStore) LookupByUsernames(ctx context.Context, handles []string) ([]models.UsernameMatch, error) {
	if len(handles) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, lookupByUsernamesQuery, pq.Array(handles))
	if err != nil {
		return nil, fmt.Errorf("failed to look up usernames: %w", err)
	}
	defer rows.Close()

	var matches []models.UsernameMatch
	for rows.Next() {
		var m models.UsernameMatch
		if err := rows.Scan(&m.Username, &m.UIN); err != nil {
			return nil, fmt.Errorf("failed to scan username match: %w", err)
		}
		matches = append(matches, m)
	}

	return matches, rows.Err()
}

// VerifyIdentifiers returns the subset of UINs present in the directory
func (s *PostgresStore) VerifyIdentifiers(ctx context.Context, uins []string) ([]string, error) {
	if len(uins) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, verifyIdentifiersQuery, pq.Array(uins))
	if err != nil {
		return nil, fmt.Errorf("failed to verify identifiers: %w", err)
	}
	defer rows.Close()

	var verified []string
	for rows.Next() {
		var uin string
		if err := rows.Scan(&uin); err != nil {
			return nil, fmt.Errorf("failed to scan identifier: %w", err)
		}
		verified = append(verified, uin)
	}

	return verified, rows.Err()
}

// InsertReport persists a new report and returns its storage identity
func (s *PostgresStore) InsertReport(ctx context.Context, report *models.Report) (*models.ReportReceipt, error) {
	id := uuid.NewString()
	createdAt := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, insertReportQuery,
		id,
		report.ReporterUIN,
		pq.Array(report.SubjectUINs),
		report.Content,
		report.IncidentType,
		pq.Array(report.InterimRelief),
		report.OrganizationID,
		report.CaseToken,
		report.Status,
		createdAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return nil, fmt.Errorf("case token collision on insert: %w", err)
		}
		return nil, fmt.Errorf("failed to insert report: %w", err)
	}

	return &models.ReportReceipt{ID: id, CaseToken: report.CaseToken, CreatedAt: createdAt}, nil
}

// GetReportByToken loads a report by its case token
func (s *PostgresStore) GetReportByToken(ctx context.Context, token string) (*models.Report, error) {
	var report models.Report
	var closedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, getReportByTokenQuery, token).Scan(
		&report.ID,
		&report.ReporterUIN,
		pq.Array(&report.SubjectUINs),
		&report.Content,
		&report.IncidentType,
		pq.Array(&report.InterimRelief),
		&report.OrganizationID,
		&report.CaseToken,
		&report.Status,
		&report.CreatedAt,
		&closedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report by token: %w", err)
	}

	if closedAt.Valid {
		t := closedAt.Time
		report.ClosedAt = &t
	}

	return &report, nil
}

// CountReportsByStatus returns report counts keyed by status
func (s *PostgresStore) CountReportsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, countReportsByStatusQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan report count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
