package services

import (
	"errors"
	"fmt"

	"loanportal/internal/backend"
	"loanportal/internal/resolver"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrReauthenticate is the resolver's sentinel, so one errors.Is check
	// covers both direct backend calls and resolutions.
	ErrReauthenticate = resolver.ErrReauthenticate
	ErrInvalidInput   = errors.New("invalid input")
	ErrIDMismatch     = errors.New("backend returned a different record")
	ErrNotDeletable   = errors.New("deletion not offered for this kind")
)

// translate maps backend failures onto the service sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrReauthenticate):
		return err
	case backend.IsUnauthorized(err):
		return fmt.Errorf("%w: %w", ErrReauthenticate, err)
	case backend.IsNotFound(err):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
