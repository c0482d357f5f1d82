package models

import "time"

// Incident categories accepted at intake
const (
	IncidentPhysical      = "physical"
	IncidentVerbal        = "verbal"
	IncidentPsychological = "psychological"
)

// ValidIncidentTypes is the closed set of categories a submission may carry.
var ValidIncidentTypes = map[string]struct{}{
	IncidentPhysical:      {},
	IncidentVerbal:        {},
	IncidentPsychological: {},
}

// Report statuses. This service only ever writes StatusPending; the
// remaining transitions belong to downstream case management.
const (
	StatusPending  = "pending"
	StatusInReview = "in_review"
	StatusResolved = "resolved"
	StatusClosed   = "closed"
)

// Report is one persisted incident record. Content is already
// anonymized by the time a Report exists; the reporter's contact
// address never appears here, only their UIN.
type Report struct {
	ID             string     `json:"id"`
	ReporterUIN    string     `json:"reporter_uin"`
	SubjectUINs    []string   `json:"subject_uins"`
	Content        string     `json:"content"`
	IncidentType   string     `json:"incident_type"`
	InterimRelief  []string   `json:"interim_relief,omitempty"`
	OrganizationID string     `json:"organization_id"`
	CaseToken      string     `json:"case_token"`
	Status         string     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	ClosedAt       *time.Time `json:"closed_at,omitempty"`
}

// ReportReceipt is what the store hands back after a successful insert.
type ReportReceipt struct {
	ID        string    `json:"id"`
	CaseToken string    `json:"case_token"`
	CreatedAt time.Time `json:"created_at"`
}

// UsernameMatch pairs a registered username with its UIN, as returned
// by the identity store's username lookup.
type UsernameMatch struct {
	Username string `json:"username"`
	UIN      string `json:"uin"`
}
