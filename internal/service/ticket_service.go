package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	history    repository.TicketHistoryRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	stats      StatsCache
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	// StatsCache is invalidated after every ticket write; nil disables it.
	StatsCache StatsCache
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter narrows a listing inside the caller's scope.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// TicketDetail is a ticket with its comment thread.
type TicketDetail struct {
	Ticket   domain.Ticket
	Comments []domain.Comment
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.Store.Tickets,
		comments:   deps.Store.Comments,
		history:    deps.Store.History,
		users:      deps.Store.Users,
		dispatcher: deps.Dispatcher,
		stats:      deps.StatsCache,
		logger:     logger,
	}
}

// CreateTicket files a ticket on behalf of the calling employee.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := policy.AuthorizeCreate(caller); err != nil {
		return nil, err
	}
	priority, err := policy.ValidateNewTicket(input.Title, input.Description, input.Priority)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		CreatorID:   caller.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, storeError(err, "ticket", "")
	}

	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.ActorFrom(caller),
		Payload: events.TicketCreatedPayload{
			CreatorID: ticket.CreatorID,
			Priority:  ticket.Priority,
			Title:     ticket.Title,
		},
	})
	return ticket, nil
}

// ListTickets returns the tickets visible to the caller, newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	scope, err := policy.ScopeFor(caller)
	if err != nil {
		return nil, err
	}
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, apperrors.NewInvalidRequest("unknown status", map[string]any{"status": st})
		}
	}
	for _, p := range filter.Priorities {
		if !p.Valid() {
			return nil, apperrors.NewInvalidRequest("unknown priority", map[string]any{"priority": p})
		}
	}

	tickets, err := s.tickets.List(ctx, repository.TicketFilter{
		Scope:      scope,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	})
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	return tickets, nil
}

// GetTicket returns a visible ticket with its comments.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*TicketDetail, error) {
	_, ticket, err := s.loadVisible(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	return &TicketDetail{Ticket: *ticket, Comments: comments}, nil
}

// UpdateTicket applies the permitted part of req. The stored ticket is
// returned after the write.
func (s *TicketService) UpdateTicket(ctx context.Context, ticketID string, req policy.UpdateRequest) (*domain.Ticket, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return nil, err
	}
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}

	decision, err := policy.AuthorizeUpdate(caller, current, req)
	if err != nil {
		return nil, err
	}
	patch := decision.Patch
	if caller.IsAdmin() && patch.Mask.Has(domain.FieldTechnician) && patch.TechnicianID != nil {
		if err := s.requireTechnician(ctx, *patch.TechnicianID); err != nil {
			return nil, err
		}
	}

	updated, err := s.tickets.UpdateFields(ctx, ticketID, patch)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}

	s.recordChanges(ctx, caller, current, updated, patch.Mask)
	s.invalidateStats(ctx)
	s.publishUpdateEvents(ctx, caller, current, updated, decision)
	return updated, nil
}

// DeleteTicket removes a ticket with its comments and history. Admin only.
func (s *TicketService) DeleteTicket(ctx context.Context, ticketID string) error {
	caller, err := callerFrom(ctx)
	if err != nil {
		return err
	}
	if err := policy.AuthorizeDelete(caller); err != nil {
		return err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return storeError(err, "ticket", ticketID)
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return storeError(err, "ticket", ticketID)
	}

	s.invalidateStats(ctx)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticketID,
		Actor:    events.ActorFrom(caller),
		Payload: events.TicketDeletedPayload{
			Title:     ticket.Title,
			CreatorID: ticket.CreatorID,
		},
	})
	return nil
}

// AddComment appends a comment authored by the caller.
func (s *TicketService) AddComment(ctx context.Context, ticketID, content string) (*domain.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.NewInvalidRequest("content is required", map[string]any{"field": "content"})
	}
	caller, ticket, err := s.loadVisible(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: caller.ID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticket.ID,
		Actor:    events.ActorFrom(caller),
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			AuthorID:    comment.AuthorID,
			BodyPreview: stringPreview(comment.Content, 120),
		},
	})
	return comment, nil
}

// ListComments returns the thread of a visible ticket, oldest first.
func (s *TicketService) ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	if _, _, err := s.loadVisible(ctx, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	return comments, nil
}

// ListHistory returns the audit trail of a visible ticket.
func (s *TicketService) ListHistory(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if _, _, err := s.loadVisible(ctx, ticketID); err != nil {
		return nil, err
	}
	history, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	return history, nil
}

// loadVisible fetches the ticket and checks the caller may see it. A missing
// ticket is NotFound; a hidden one is Forbidden.
func (s *TicketService) loadVisible(ctx context.Context, ticketID string) (domain.Caller, *domain.Ticket, error) {
	caller, err := callerFrom(ctx)
	if err != nil {
		return caller, nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return caller, nil, storeError(err, "ticket", ticketID)
	}
	if !policy.CanView(caller, ticket) {
		return caller, nil, apperrors.NewForbidden("not allowed to access this ticket")
	}
	return caller, ticket, nil
}

func (s *TicketService) requireTechnician(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewInvalidRequest("technician does not exist", map[string]any{"technician_id": userID})
	}
	if err != nil {
		return storeError(err, "user", userID)
	}
	if user.Role != domain.RoleTechnician {
		return apperrors.NewInvalidRequest("user is not a technician", map[string]any{"technician_id": userID})
	}
	return nil
}

// recordChanges writes one history entry per kind of change. History is an
// audit aid; failures are logged and do not undo the update.
func (s *TicketService) recordChanges(ctx context.Context, caller domain.Caller, before, after *domain.Ticket, mask domain.FieldMask) {
	if s.history == nil {
		return
	}
	var entries []domain.TicketHistory
	if mask.Has(domain.FieldStatus) && before.Status != after.Status {
		entries = append(entries, domain.TicketHistory{
			ChangeType: domain.ChangeTypeStatus,
			OldValue:   map[string]any{"status": string(before.Status)},
			NewValue:   map[string]any{"status": string(after.Status)},
		})
	}
	if mask.Has(domain.FieldTechnician) && !sameTechnician(before.TechnicianID, after.TechnicianID) {
		entries = append(entries, domain.TicketHistory{
			ChangeType: domain.ChangeTypeAssignee,
			OldValue:   map[string]any{"technician_id": optional(before.TechnicianID)},
			NewValue:   map[string]any{"technician_id": optional(after.TechnicianID)},
		})
	}
	if mask.Has(domain.FieldPriority) && before.Priority != after.Priority {
		entries = append(entries, domain.TicketHistory{
			ChangeType: domain.ChangeTypePriority,
			OldValue:   map[string]any{"priority": string(before.Priority)},
			NewValue:   map[string]any{"priority": string(after.Priority)},
		})
	}
	oldDetails, newDetails := map[string]any{}, map[string]any{}
	if mask.Has(domain.FieldTitle) && before.Title != after.Title {
		oldDetails["title"], newDetails["title"] = before.Title, after.Title
	}
	if mask.Has(domain.FieldDescription) && before.Description != after.Description {
		oldDetails["description"], newDetails["description"] = before.Description, after.Description
	}
	if len(newDetails) > 0 {
		entries = append(entries, domain.TicketHistory{
			ChangeType: domain.ChangeTypeDetails,
			OldValue:   oldDetails,
			NewValue:   newDetails,
		})
	}

	for i := range entries {
		entry := entries[i]
		entry.TicketID = after.ID
		entry.ChangedByID = caller.ID
		if err := s.history.Create(ctx, &entry); err != nil {
			s.logger.Warn("failed to record ticket history",
				zap.String("ticket_id", after.ID),
				zap.String("change_type", string(entry.ChangeType)),
				zap.Error(err),
			)
		}
	}
}

func (s *TicketService) publishUpdateEvents(ctx context.Context, caller domain.Caller, before, after *domain.Ticket, decision policy.Decision) {
	actor := events.ActorFrom(caller)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: after.ID,
		Actor:    actor,
		Payload:  events.TicketUpdatedPayload{Fields: decision.Patch.Mask.Names()},
	})
	if before.Status != after.Status {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: after.ID,
			Actor:    actor,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: before.Status,
				NewStatus: after.Status,
			},
		})
	}
	if !sameTechnician(before.TechnicianID, after.TechnicianID) {
		eventType := events.EventTicketAssigned
		if decision.Claimed {
			eventType = events.EventTicketClaimed
		}
		s.publishEvent(ctx, events.Event{
			Type:     eventType,
			TicketID: after.ID,
			Actor:    actor,
			Payload: events.TicketAssignedPayload{
				PreviousTechnicianID: before.TechnicianID,
				TechnicianID:         after.TechnicianID,
			},
		})
	}
}

func (s *TicketService) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func sameTechnician(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func optional(id *string) any {
	if id == nil {
		return nil
	}
	return *id
}

// stringPreview shortens body to at most max runes, never splitting a
// multi-byte character.
func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
