// Package memory implements the repositories in process memory. It backs the
// default development driver and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
)

// DB holds every table behind a single lock so cascades stay consistent.
type DB struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[string]domain.User
	tickets  map[string]domain.Ticket
	comments []domain.Comment
	history  []domain.TicketHistory
}

// NewDB returns an empty database using the wall clock.
func NewDB() *DB {
	return NewDBWithClock(time.Now)
}

// NewDBWithClock returns an empty database with an injectable clock.
func NewDBWithClock(now func() time.Time) *DB {
	return &DB{
		now:     now,
		users:   make(map[string]domain.User),
		tickets: make(map[string]domain.Ticket),
	}
}

// Store exposes the database through the repository interfaces.
func (db *DB) Store() repository.Store {
	return repository.Store{
		Tickets:  ticketRepository{db},
		Comments: commentRepository{db},
		History:  historyRepository{db},
		Users:    userRepository{db},
	}
}

type ticketRepository struct{ db *DB }

func (r ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	now := r.db.now().UTC()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.db.tickets[ticket.ID] = cloneTicket(*ticket)
	return nil
}

func (r ticketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	ticket, ok := r.db.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneTicket(ticket)
	return &out, nil
}

func (r ticketRepository) List(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.db.mu.RLock()
	result := make([]domain.Ticket, 0, len(r.db.tickets))
	for _, ticket := range r.db.tickets {
		ticket := ticket
		if filter.Matches(&ticket) {
			result = append(result, cloneTicket(ticket))
		}
	}
	r.db.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID > result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (r ticketRepository) UpdateFields(_ context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ticket, ok := r.db.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	patch.Apply(&ticket)
	ticket.UpdatedAt = r.db.now().UTC()
	r.db.tickets[id] = cloneTicket(ticket)
	out := cloneTicket(ticket)
	return &out, nil
}

func (r ticketRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	r.db.deleteTicketLocked(id)
	return nil
}

func (db *DB) deleteTicketLocked(id string) {
	delete(db.tickets, id)
	comments := db.comments[:0]
	for _, c := range db.comments {
		if c.TicketID != id {
			comments = append(comments, c)
		}
	}
	db.comments = comments
	history := db.history[:0]
	for _, h := range db.history {
		if h.TicketID != id {
			history = append(history, h)
		}
	}
	db.history = history
}

type commentRepository struct{ db *DB }

func (r commentRepository) Create(_ context.Context, comment *domain.Comment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.tickets[comment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	comment.ID = uuid.NewString()
	comment.CreatedAt = r.db.now().UTC()
	r.db.comments = append(r.db.comments, *comment)
	return nil
}

func (r commentRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	result := []domain.Comment{}
	for _, c := range r.db.comments {
		if c.TicketID == ticketID {
			result = append(result, c)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type historyRepository struct{ db *DB }

func (r historyRepository) Create(_ context.Context, history *domain.TicketHistory) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	history.ID = uuid.NewString()
	history.CreatedAt = r.db.now().UTC()
	r.db.history = append(r.db.history, *history)
	return nil
}

func (r historyRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	result := []domain.TicketHistory{}
	for _, h := range r.db.history {
		if h.TicketID == ticketID {
			result = append(result, h)
		}
	}
	return result, nil
}

type userRepository struct{ db *DB }

func (r userRepository) Create(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.emailTakenLocked(user.Email, "") {
		return repository.ErrDuplicate
	}
	now := r.db.now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.db.users[user.ID] = *user
	return nil
}

func (r userRepository) Update(_ context.Context, user *domain.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.users[user.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.db.emailTakenLocked(user.Email, user.ID) {
		return repository.ErrDuplicate
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.db.now().UTC()
	r.db.users[user.ID] = *user
	return nil
}

func (r userRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	user, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (r userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	for _, user := range r.db.users {
		if strings.EqualFold(user.Email, email) {
			user := user
			return &user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r userRepository) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	r.db.mu.RLock()
	result := make([]domain.User, 0, len(r.db.users))
	for _, user := range r.db.users {
		if filter.Role != nil && user.Role != *filter.Role {
			continue
		}
		result = append(result, user)
	}
	r.db.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

// Delete removes the user, cascading to their tickets and comments and
// releasing tickets they were assigned, like the SQL schema.
func (r userRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.users, id)
	for ticketID, ticket := range r.db.tickets {
		switch {
		case ticket.CreatorID == id:
			r.db.deleteTicketLocked(ticketID)
		case ticket.AssignedTo(id):
			ticket.TechnicianID = nil
			r.db.tickets[ticketID] = ticket
		}
	}
	comments := r.db.comments[:0]
	for _, c := range r.db.comments {
		if c.AuthorID != id {
			comments = append(comments, c)
		}
	}
	r.db.comments = comments
	return nil
}

func (db *DB) emailTakenLocked(email, exceptID string) bool {
	for _, user := range db.users {
		if user.ID != exceptID && strings.EqualFold(user.Email, email) {
			return true
		}
	}
	return false
}

func cloneTicket(t domain.Ticket) domain.Ticket {
	if t.TechnicianID != nil {
		id := *t.TechnicianID
		t.TechnicianID = &id
	}
	return t
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
