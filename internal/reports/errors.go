package reports

import "errors"

// Submission and lookup failures are categorized so the HTTP layer can
// map them with errors.Is instead of inspecting messages.
var (
	// ErrValidation covers missing or malformed input fields. Wrapped
	// errors carry the field detail.
	ErrValidation = errors.New("validation failed")

	// ErrUnregisteredReporter means the contact address resolved to no
	// registered identity. Reporters are never auto-registered.
	ErrUnregisteredReporter = errors.New("reporter has no registered identity")

	// ErrNoSubject means the narrative contained no recognizable person
	// reference of either format.
	ErrNoSubject = errors.New("report names no subject")

	// ErrInvalidToken means the case token fails the format check.
	ErrInvalidToken = errors.New("malformed case token")

	// ErrReportNotFound means a well-formed token matches no report.
	ErrReportNotFound = errors.New("no report matches this case token")
)
