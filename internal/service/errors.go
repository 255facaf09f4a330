package service

import (
	"context"
	"errors"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// callerFrom reads the identity the auth middleware placed on ctx.
func callerFrom(ctx context.Context) (domain.Caller, error) {
	caller, ok := domain.CallerFromContext(ctx)
	if !ok || caller.ID == "" {
		return domain.Caller{}, apperrors.NewUnauthorized("authentication required")
	}
	return caller, nil
}

// storeError maps repository sentinels onto the error taxonomy. Anything
// unrecognised is a store fault with an opaque message.
func storeError(err error, resource string, id string) error {
	var domainErr *apperrors.DomainError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", nil)
	}
	return apperrors.NewStoreFailure(err)
}
