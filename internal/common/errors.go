// Package common defines shared constants and sentinel errors used across
// the bot's layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Store-level errors (connectivity, failed statements). The access gate
	// fails open on these; the interview orchestrator fails closed.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Access-control errors.
	ErrAccessExpired = errors.New("access window expired")

	// Collaborator errors. Unready means the workflow webhook answered 404
	// and needs to be armed; Collaborator covers every other HTTP failure,
	// timeout, or malformed body.
	ErrCollaboratorUnready = errors.New("collaborator not ready")
	ErrCollaborator        = errors.New("collaborator error")

	// Auth errors for the admin surface.
	ErrInvalidToken = errors.New("invalid token")
	ErrUnauthorized = errors.New("unauthorized")
)
