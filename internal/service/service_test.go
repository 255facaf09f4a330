package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/repository/memory"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

type fakeStatsCache struct {
	mu          sync.Mutex
	stored      *domain.DashboardStats
	invalidated int
}

func (c *fakeStatsCache) Get(_ context.Context) (*domain.DashboardStats, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stored == nil {
		return nil, false, nil
	}
	return c.stored, true, nil
}

func (c *fakeStatsCache) Set(_ context.Context, stats *domain.DashboardStats, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = stats
	return nil
}

func (c *fakeStatsCache) Invalidate(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stored = nil
	c.invalidated++
	return nil
}

type fixture struct {
	store     repository.Store
	tickets   *TicketService
	users     *UserService
	auth      *AuthService
	dashboard *DashboardService
	cache     *fakeStatsCache
	events    []events.EventType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	db := memory.NewDBWithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	f := &fixture{store: db.Store(), cache: &fakeStatsCache{}}

	dispatcher := events.NewInMemoryDispatcher(nil)
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketClaimed,
		events.EventTicketAssigned,
		events.EventTicketStatusChanged,
		events.EventTicketDeleted,
		events.EventCommentAdded,
	} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e.Type)
			return nil
		})
	}

	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 5,
		BcryptCost:            4,
		MinPasswordLength:     8,
	}}
	f.auth = NewAuthService(cfg, AuthDependencies{UserRepo: f.store.Users})
	f.tickets = NewTicketService(TicketDependencies{Store: f.store, Dispatcher: dispatcher, StatsCache: f.cache})
	f.users = NewUserService(UserDependencies{
		UserRepo:    f.store.Users,
		TicketRepo:  f.store.Tickets,
		AuthService: f.auth,
		StatsCache:  f.cache,
	})
	f.dashboard = NewDashboardService(DashboardDependencies{Store: f.store, Cache: f.cache, TTL: time.Minute})
	return f
}

func (f *fixture) user(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Name: name, Email: name + "@example.com", PasswordHash: "x", Role: role}
	if err := f.store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("Failed to create user %s: %v", name, err)
	}
	return u
}

func as(u *domain.User) context.Context {
	return domain.WithCaller(context.Background(), u.Caller())
}

func strPtr(s string) *string {
	return &s
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("Expected %s, got %v", code, err)
	}
}
