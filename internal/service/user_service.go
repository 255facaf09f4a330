package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// UserService manages accounts on behalf of administrators and the users
// themselves.
type UserService struct {
	users    repository.UserRepository
	tickets  repository.TicketRepository
	accounts *AuthService
	stats    StatsCache
	logger   *zap.Logger
}

// UserDependencies bundles the user service collaborators.
type UserDependencies struct {
	UserRepo repository.UserRepository
	// TicketRepo releases open tickets held by a demoted technician; nil
	// skips the release.
	TicketRepo  repository.TicketRepository
	AuthService *AuthService
	// StatsCache is invalidated when a deletion or demotion touches tickets.
	StatsCache StatsCache
	Logger     *zap.Logger
}

// UserListFilter narrows the administrator listing.
type UserListFilter struct {
	Role   *domain.Role
	Limit  int
	Offset int
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:    deps.UserRepo,
		tickets:  deps.TicketRepo,
		accounts: deps.AuthService,
		stats:    deps.StatsCache,
		logger:   logger,
	}
}

// ListUsers returns accounts in registration order. Admin only.
func (s *UserService) ListUsers(ctx context.Context, filter UserListFilter) ([]domain.User, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireAdmin(caller); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperrors.NewInvalidRequest("unknown role", map[string]any{"role": *filter.Role})
	}
	users, err := s.users.List(ctx, repository.UserFilter{
		Role:   filter.Role,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, storeError(err, "user", "")
	}
	return users, nil
}

// CreateUser lets an administrator create an account with any role.
func (s *UserService) CreateUser(ctx context.Context, name, email, password string, role domain.Role) (*domain.User, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.RequireAdmin(caller); err != nil {
		return nil, err
	}
	return s.accounts.createAccount(ctx, name, email, password, role)
}

// GetUser returns an account visible to the caller.
func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewUser(caller, userID) {
		return nil, apperrors.NewForbidden("not allowed to view this user")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user", userID)
	}
	return user, nil
}

// UpdateUser edits name, email and role under the profile rules.
func (s *UserService) UpdateUser(ctx context.Context, userID string, req policy.UserUpdateRequest) (*domain.User, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewUser(caller, userID) {
		return nil, apperrors.NewForbidden("not allowed to update this user")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err, "user", userID)
	}
	if req.Email != nil {
		normalized := normalizeEmail(*req.Email)
		req.Email = &normalized
	}
	if err := policy.AuthorizeUserUpdate(caller, user, req); err != nil {
		return nil, err
	}
	previousRole := user.Role

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		return nil, storeError(err, "user", userID)
	}
	if previousRole == domain.RoleTechnician && user.Role != domain.RoleTechnician {
		s.releaseAssignments(ctx, user.ID)
	}
	return user, nil
}

// releaseAssignments unassigns the unfinished tickets held by userID so they
// return to the shared technician queue. Finished tickets keep their
// technician for the resolution statistics. Failures are logged; the role
// change stands.
func (s *UserService) releaseAssignments(ctx context.Context, userID string) {
	if s.tickets == nil {
		return
	}
	held, err := s.tickets.List(ctx, repository.TicketFilter{
		Scope: domain.TicketScope{TechnicianOrUnassigned: &userID},
	})
	if err != nil {
		s.logger.Warn("failed to list tickets of demoted technician", zap.String("user_id", userID), zap.Error(err))
		return
	}
	released := 0
	for i := range held {
		t := &held[i]
		if !t.AssignedTo(userID) || t.Status.Finished() {
			continue
		}
		patch := domain.TicketPatch{Mask: domain.FieldMask(0).With(domain.FieldTechnician)}
		if _, err := s.tickets.UpdateFields(ctx, t.ID, patch); err != nil {
			s.logger.Warn("failed to release ticket", zap.String("ticket_id", t.ID), zap.Error(err))
			continue
		}
		released++
	}
	if released > 0 {
		s.logger.Info("released tickets of demoted technician", zap.String("user_id", userID), zap.Int("count", released))
		s.invalidateStats(ctx)
	}
}

func (s *UserService) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

// DeleteUser removes another account along with the tickets it filed.
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	if err := policy.AuthorizeUserDelete(caller, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return storeError(err, "user", userID)
	}
	s.invalidateStats(ctx)
	return nil
}
