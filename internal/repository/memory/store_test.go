package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(time.Minute)
	return c.now
}

func newTestStore() repository.Store {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	return NewDBWithClock(clock.Now).Store()
}

func TestTicketRepository_ListOrderAndPaging(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		ticket := &domain.Ticket{Title: title, Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow, CreatorID: "u1"}
		if err := store.Tickets.Create(ctx, ticket); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		ids = append(ids, ticket.ID)
	}

	tests := []struct {
		name     string
		filter   repository.TicketFilter
		expected []string
	}{
		{"newest first", repository.TicketFilter{}, []string{ids[2], ids[1], ids[0]}},
		{"limit", repository.TicketFilter{Limit: 2}, []string{ids[2], ids[1]}},
		{"offset", repository.TicketFilter{Offset: 1}, []string{ids[1], ids[0]}},
		{"offset past end", repository.TicketFilter{Offset: 5}, []string{}},
		{"other creator", repository.TicketFilter{Scope: domain.TicketScope{CreatorID: strPtr("u2")}}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Tickets.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d tickets, got %d", len(tt.expected), len(got))
			}
			for i, id := range tt.expected {
				if got[i].ID != id {
					t.Errorf("Expected %s at %d, got %s", id, i, got[i].ID)
				}
			}
		})
	}
}

func TestTicketRepository_UpdateFieldsDoesNotAlias(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	ticket := &domain.Ticket{Title: "VPN down", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityHigh, CreatorID: "u1"}
	if err := store.Tickets.Create(ctx, ticket); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tech := "t1"
	updated, err := store.Tickets.UpdateFields(ctx, ticket.ID, domain.TicketPatch{
		Mask:         domain.FieldMask(0).With(domain.FieldTechnician),
		TechnicianID: &tech,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	tech = "t2"
	*updated.TechnicianID = "t3"

	stored, _ := store.Tickets.GetByID(ctx, ticket.ID)
	if !stored.AssignedTo("t1") {
		t.Errorf("Expected stored technician t1, got %v", *stored.TechnicianID)
	}
	if !stored.UpdatedAt.After(stored.CreatedAt) {
		t.Errorf("Expected updated_at to advance")
	}

	if _, err := store.Tickets.UpdateFields(ctx, "missing", domain.TicketPatch{}); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	first := &domain.User{Name: "Alice", Email: "alice@example.com", Role: domain.RoleEmployee}
	if err := store.Users.Create(ctx, first); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	second := &domain.User{Name: "Bob", Email: "bob@example.com", Role: domain.RoleEmployee}
	if err := store.Users.Create(ctx, second); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	dup := &domain.User{Name: "Alias", Email: "ALICE@example.com", Role: domain.RoleEmployee}
	if err := store.Users.Create(ctx, dup); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate on create, got %v", err)
	}

	second.Email = "alice@example.com"
	if err := store.Users.Update(ctx, second); !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate on update, got %v", err)
	}

	first.Name = "Alice B"
	if err := store.Users.Update(ctx, first); err != nil {
		t.Errorf("Expected keeping own email to succeed, got %v", err)
	}
}

func TestUserRepository_DeleteCascades(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	alice := &domain.User{Name: "Alice", Email: "alice@example.com", Role: domain.RoleEmployee}
	tech := &domain.User{Name: "Tom", Email: "tom@example.com", Role: domain.RoleTechnician}
	for _, u := range []*domain.User{alice, tech} {
		if err := store.Users.Create(ctx, u); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	owned := &domain.Ticket{Title: "owned", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow, CreatorID: alice.ID}
	held := &domain.Ticket{Title: "held", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityLow, CreatorID: "someone", TechnicianID: &tech.ID}
	for _, ticket := range []*domain.Ticket{owned, held} {
		if err := store.Tickets.Create(ctx, ticket); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if err := store.Comments.Create(ctx, &domain.Comment{TicketID: held.ID, AuthorID: tech.ID, Content: "on it"}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := store.Users.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := store.Tickets.GetByID(ctx, owned.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected owned ticket deleted, got %v", err)
	}

	if err := store.Users.Delete(ctx, tech.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got, _ := store.Tickets.GetByID(ctx, held.ID)
	if !got.Unassigned() {
		t.Errorf("Expected held ticket released")
	}
	comments, _ := store.Comments.ListByTicket(ctx, held.ID)
	if len(comments) != 0 {
		t.Errorf("Expected technician comments removed, got %d", len(comments))
	}
}

func strPtr(s string) *string {
	return &s
}
