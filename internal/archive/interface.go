package archive

import "context"

// Interface is the contract for the anonymized-record archive. The
// archive only ever receives already-anonymized report records; it is
// append-only from this service's point of view.
type Interface interface {
	Store(ctx context.Context, name string, data []byte) error
}
