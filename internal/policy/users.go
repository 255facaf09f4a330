package policy

import (
	"net/mail"
	"strings"

	"github.com/deskline/helpdesk-service/internal/domain"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// UserUpdateRequest carries profile changes; nil pointers are absent.
type UserUpdateRequest struct {
	Name  *string
	Email *string
	Role  *domain.Role
}

// RequireAdmin guards user administration and listings.
func RequireAdmin(caller domain.Caller) error {
	if !caller.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CanViewUser allows administrators and the user themself.
func CanViewUser(caller domain.Caller, userID string) bool {
	return caller.IsAdmin() || caller.ID == userID
}

// AuthorizeUserUpdate lets users edit their own name and email, and lets
// administrators edit anybody else including the role. Nobody changes their
// own role.
func AuthorizeUserUpdate(caller domain.Caller, target *domain.User, req UserUpdateRequest) error {
	if !CanViewUser(caller, target.ID) {
		return apperrors.NewForbidden("not allowed to update this user")
	}
	if req.Name == nil && req.Email == nil && req.Role == nil {
		return apperrors.NewNothingToUpdate()
	}
	if req.Role != nil {
		if caller.ID == target.ID {
			return apperrors.NewForbidden("users cannot change their own role")
		}
		if !caller.IsAdmin() {
			return apperrors.NewForbidden("admin role required to change roles")
		}
		if !req.Role.Valid() {
			return apperrors.NewInvalidRequest("unknown role", map[string]any{"role": *req.Role})
		}
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return apperrors.NewInvalidRequest("name cannot be empty", map[string]any{"field": "name"})
	}
	if req.Email != nil {
		if err := ValidateEmail(*req.Email); err != nil {
			return err
		}
	}
	return nil
}

// AuthorizeUserDelete restricts deletion to administrators removing someone else.
func AuthorizeUserDelete(caller domain.Caller, userID string) error {
	if err := RequireAdmin(caller); err != nil {
		return err
	}
	if caller.ID == userID {
		return apperrors.NewInvalidRequest("administrators cannot delete themselves", nil)
	}
	return nil
}

// ValidateEmail rejects addresses that do not parse as a bare address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return apperrors.NewInvalidRequest("invalid email", map[string]any{"field": "email"})
	}
	return nil
}
