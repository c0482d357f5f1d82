// Package identity maps the people referenced in a submission to
// durable internal identifiers (UINs).
//
// The two mention formats carry different trust levels and go through
// different checks. Structured candidates were picked from a live
// directory, so they only get an existence check; plain handles are
// free text and must positively match a registered username before
// they count as a subject.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/safevoice/incident-intake/internal/storage"
)

// Resolver resolves reporter addresses and mention candidates against
// the identity store.
type Resolver struct {
	store  storage.Store
	secret string
}

// PlainMatch pairs a plain handle with the UIN its username resolved to.
type PlainMatch struct {
	Handle string
	UIN    string
}

// NewResolver creates a resolver backed by the given store. hashSecret
// keys the contact-address hash and must be stable per deployment.
func NewResolver(store storage.Store, hashSecret string) *Resolver {
	return &Resolver{store: store, secret: hashSecret}
}

// HashContact returns the one-way hash under which a reporter's
// contact address is stored. Addresses are normalized (trimmed,
// lowercased) first, so the same mailbox always maps to the same
// identity. The cleartext address is never persisted anywhere.
func (r *Resolver) HashContact(address string) string {
	normalized := strings.ToLower(strings.TrimSpace(address))
	sum := sha256.Sum256([]byte(r.secret + ":" + normalized))
	return hex.EncodeToString(sum[:])
}

// ResolveReporter maps a contact address to the reporter's UIN.
// Returns storage.ErrNotFound when the address has no registered
// identity; reporters are never auto-registered here.
func (r *Resolver) ResolveReporter(ctx context.Context, address string) (string, error) {
	return r.store.LookupByHash(ctx, r.HashContact(address))
}

// VerifyStructured checks candidate UINs against the directory and
// returns the subset that exists, preserving input order. This is an
// integrity check, not a trust gate: the picker already selected these
// from a live directory. A directory fault degrades to zero verified
// candidates so the submission can proceed on the other path.
func (r *Resolver) VerifyStructured(ctx context.Context, uins []string) []string {
	if len(uins) == 0 {
		return nil
	}

	found, err := r.store.VerifyIdentifiers(ctx, uins)
	if err != nil {
		logrus.Warnf("Directory verification failed, dropping %d structured candidates: %v", len(uins), err)
		return nil
	}

	exists := make(map[string]bool, len(found))
	for _, uin := range found {
		exists[uin] = true
	}

	var verified []string
	for _, uin := range uins {
		if exists[uin] {
			verified = append(verified, uin)
		}
	}

	return verified
}

// ResolvePlain looks up free-typed handles against registered
// usernames, preserving handle order. Handles with no match are
// dropped; a store fault degrades to zero matches rather than
// failing the submission.
func (r *Resolver) ResolvePlain(ctx context.Context, handles []string) []PlainMatch {
	if len(handles) == 0 {
		return nil
	}

	matches, err := r.store.LookupByUsernames(ctx, handles)
	if err != nil {
		logrus.Warnf("Username lookup failed, dropping %d plain candidates: %v", len(handles), err)
		return nil
	}

	byName := make(map[string]string, len(matches))
	for _, m := range matches {
		byName[strings.ToLower(m.Username)] = m.UIN
	}

	var resolved []PlainMatch
	for _, handle := range handles {
		if uin, ok := byName[handle]; ok {
			resolved = append(resolved, PlainMatch{Handle: handle, UIN: uin})
		}
	}

	return resolved
}
