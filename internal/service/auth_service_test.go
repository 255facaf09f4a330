package service

import (
	"context"
	"testing"

	"github.com/deskline/helpdesk-service/internal/domain"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.auth.Register(ctx, "Alice", " Alice@Example.com ", "password1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.User.Role != domain.RoleEmployee {
		t.Errorf("Expected EMPLOYEE, got %s", result.User.Role)
	}
	if result.User.Email != "alice@example.com" {
		t.Errorf("Expected normalized email, got %s", result.User.Email)
	}
	claims, err := f.auth.TokenManager().ParseToken(result.Token)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if claims.Subject != result.User.ID {
		t.Errorf("Expected subject %s, got %s", result.User.ID, claims.Subject)
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := f.auth.Register(ctx, "Other", "ALICE@example.com", "password2")
		expectCode(t, err, apperrors.CodeConflict)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := f.auth.Register(ctx, "Bob", "bob@example.com", "short")
		expectCode(t, err, apperrors.CodeInvalidRequest)
		_, err = f.auth.Register(ctx, "Bob", "not-an-email", "password1")
		expectCode(t, err, apperrors.CodeInvalidRequest)
		_, err = f.auth.Register(ctx, "", "bob@example.com", "password1")
		expectCode(t, err, apperrors.CodeInvalidRequest)
	})

	t.Run("login", func(t *testing.T) {
		if _, err := f.auth.Login(ctx, "alice@example.com", "password1"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		_, err := f.auth.Login(ctx, "alice@example.com", "wrong-pass")
		expectCode(t, err, apperrors.CodeUnauthorized)
		_, err = f.auth.Login(ctx, "nobody@example.com", "password1")
		expectCode(t, err, apperrors.CodeUnauthorized)
	})

	t.Run("change password", func(t *testing.T) {
		userCtx := as(result.User)
		expectCode(t, f.auth.ChangePassword(userCtx, "wrong-pass", "password2"), apperrors.CodeUnauthorized)
		if err := f.auth.ChangePassword(userCtx, "password1", "password2"); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if _, err := f.auth.Login(ctx, "alice@example.com", "password2"); err != nil {
			t.Errorf("Expected login with new password, got %v", err)
		}
	})

	t.Run("me", func(t *testing.T) {
		me, err := f.auth.Me(as(result.User))
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if me.ID != result.User.ID {
			t.Errorf("Expected %s, got %s", result.User.ID, me.ID)
		}
		_, err = f.auth.Me(ctx)
		expectCode(t, err, apperrors.CodeUnauthorized)
	})
}

func TestAuthService_Provision(t *testing.T) {
	f := newFixture(t)

	admin, err := f.auth.Provision(context.Background(), "Root", "root@example.com", "password1", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if admin.Role != domain.RoleAdmin {
		t.Errorf("Expected ADMIN, got %s", admin.Role)
	}

	_, err = f.auth.Provision(context.Background(), "Ghost", "ghost@example.com", "password1", domain.Role("ROOT"))
	expectCode(t, err, apperrors.CodeInvalidRequest)
}
