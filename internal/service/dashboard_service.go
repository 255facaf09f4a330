package service

import (
	"context"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/repository"
)

// StatsCache keeps computed dashboard statistics between requests.
type StatsCache interface {
	Get(ctx context.Context) (*domain.DashboardStats, bool, error)
	Set(ctx context.Context, stats *domain.DashboardStats, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// DashboardService computes administrator statistics.
type DashboardService struct {
	tickets repository.TicketRepository
	users   repository.UserRepository
	cache   StatsCache
	ttl     time.Duration
	logger  *zap.Logger
}

// DashboardDependencies bundles the dashboard collaborators.
type DashboardDependencies struct {
	Store  repository.Store
	Cache  StatsCache
	TTL    time.Duration
	Logger *zap.Logger
}

// NewDashboardService constructs the service.
func NewDashboardService(deps DashboardDependencies) *DashboardService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		tickets: deps.Store.Tickets,
		users:   deps.Store.Users,
		cache:   deps.Cache,
		ttl:     deps.TTL,
		logger:  logger,
	}
}

// Stats returns the dashboard, from cache when fresh. Cache faults are
// logged and the stats are recomputed.
func (s *DashboardService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeDashboard(caller); err != nil {
		return nil, err
	}

	if s.cacheEnabled() {
		cached, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	tickets, err := s.tickets.List(ctx, repository.TicketFilter{})
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	users, err := s.users.List(ctx, repository.UserFilter{})
	if err != nil {
		return nil, storeError(err, "user", "")
	}

	stats := Aggregate(tickets, users)
	if s.cacheEnabled() {
		if err := s.cache.Set(ctx, &stats, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return &stats, nil
}

func (s *DashboardService) cacheEnabled() bool {
	return s.cache != nil && s.ttl > 0
}

// Aggregate counts tickets per status and priority, zero-filling every
// value, and averages the resolution time of finished tickets per assigned
// technician. Resolution time is the created to last-updated delta in
// hours, rounded to two decimals. Rows are keyed by the ticket's technician
// whatever that user's current role; ids missing from users are dropped.
func Aggregate(tickets []domain.Ticket, users []domain.User) domain.DashboardStats {
	byStatus := make(map[domain.TicketStatus]int, len(domain.TicketStatuses))
	byPriority := make(map[domain.TicketPriority]int, len(domain.TicketPriorities))
	type resolution struct {
		count int
		hours float64
	}
	resolved := map[string]*resolution{}

	for i := range tickets {
		t := &tickets[i]
		byStatus[t.Status]++
		byPriority[t.Priority]++
		if !t.Status.Finished() || t.TechnicianID == nil {
			continue
		}
		r, ok := resolved[*t.TechnicianID]
		if !ok {
			r = &resolution{}
			resolved[*t.TechnicianID] = r
		}
		r.count++
		r.hours += t.UpdatedAt.Sub(t.CreatedAt).Hours()
	}

	stats := domain.DashboardStats{
		TotalTickets:           len(tickets),
		ByStatus:               make([]domain.StatusCount, 0, len(domain.TicketStatuses)),
		ByPriority:             make([]domain.PriorityCount, 0, len(domain.TicketPriorities)),
		ResolutionByTechnician: []domain.TechnicianResolution{},
	}
	for _, st := range domain.TicketStatuses {
		stats.ByStatus = append(stats.ByStatus, domain.StatusCount{Status: st, Count: byStatus[st]})
	}
	for _, p := range domain.TicketPriorities {
		stats.ByPriority = append(stats.ByPriority, domain.PriorityCount{Priority: p, Count: byPriority[p]})
	}
	for _, tech := range users {
		r, ok := resolved[tech.ID]
		if !ok {
			continue
		}
		stats.ResolutionByTechnician = append(stats.ResolutionByTechnician, domain.TechnicianResolution{
			TechnicianID:       tech.ID,
			TechnicianName:     tech.Name,
			ResolvedCount:      r.count,
			AvgResolutionHours: roundHours(r.hours / float64(r.count)),
		})
	}
	sort.Slice(stats.ResolutionByTechnician, func(i, j int) bool {
		a, b := stats.ResolutionByTechnician[i], stats.ResolutionByTechnician[j]
		if a.TechnicianName == b.TechnicianName {
			return a.TechnicianID < b.TechnicianID
		}
		return a.TechnicianName < b.TechnicianName
	})
	return stats
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}
