package service

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/policy"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

func TestTicketService_ClaimAndAssignScenario(t *testing.T) {
	f := newFixture(t)
	employee := f.user(t, "alice", domain.RoleEmployee)
	tech := f.user(t, "tom", domain.RoleTechnician)
	tech2 := f.user(t, "tia", domain.RoleTechnician)
	tech3 := f.user(t, "theo", domain.RoleTechnician)
	admin := f.user(t, "root", domain.RoleAdmin)

	ticket, err := f.tickets.CreateTicket(as(employee), TicketCreateInput{
		Title:       "VPN down",
		Description: "cannot connect",
		Priority:    domain.TicketPriorityHigh,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("Expected status OPEN, got %s", ticket.Status)
	}
	if !ticket.Unassigned() {
		t.Errorf("Expected no technician, got %v", *ticket.TechnicianID)
	}
	if ticket.CreatorID != employee.ID {
		t.Errorf("Expected creator %s, got %s", employee.ID, ticket.CreatorID)
	}

	claimed, err := f.tickets.UpdateTicket(as(tech), ticket.ID, policy.UpdateRequest{Description: strPtr("checking")})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !claimed.AssignedTo(tech.ID) {
		t.Errorf("Expected ticket claimed by %s", tech.ID)
	}
	if claimed.Description != "checking" {
		t.Errorf("Expected description checking, got %s", claimed.Description)
	}
	if claimed.Status != domain.TicketStatusOpen {
		t.Errorf("Expected status unchanged, got %s", claimed.Status)
	}

	_, err = f.tickets.UpdateTicket(as(tech2), ticket.ID, policy.UpdateRequest{Description: strPtr("mine now")})
	expectCode(t, err, apperrors.CodeForbidden)

	assigned, err := f.tickets.UpdateTicket(as(admin), ticket.ID, policy.UpdateRequest{TechnicianID: &tech3.ID})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !assigned.AssignedTo(tech3.ID) {
		t.Errorf("Expected ticket assigned to %s", tech3.ID)
	}

	expected := []events.EventType{
		events.EventTicketCreated,
		events.EventTicketUpdated,
		events.EventTicketClaimed,
		events.EventTicketUpdated,
		events.EventTicketAssigned,
	}
	if len(f.events) != len(expected) {
		t.Fatalf("Expected events %v, got %v", expected, f.events)
	}
	for i := range expected {
		if f.events[i] != expected[i] {
			t.Errorf("Expected event %d to be %s, got %s", i, expected[i], f.events[i])
		}
	}

	history, err := f.tickets.ListHistory(as(admin), ticket.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 history entries, got %d", len(history))
	}
	if history[0].ChangeType != domain.ChangeTypeAssignee || history[0].ChangedByID != tech.ID {
		t.Errorf("Expected claim recorded first, got %+v", history[0])
	}
	if history[1].ChangeType != domain.ChangeTypeDetails {
		t.Errorf("Expected details change, got %s", history[1].ChangeType)
	}
	if history[2].NewValue["technician_id"] != tech3.ID {
		t.Errorf("Expected new technician %s, got %v", tech3.ID, history[2].NewValue["technician_id"])
	}
}

func TestTicketService_UpdateRules(t *testing.T) {
	f := newFixture(t)
	employee := f.user(t, "alice", domain.RoleEmployee)
	other := f.user(t, "bob", domain.RoleEmployee)
	tech := f.user(t, "tom", domain.RoleTechnician)
	admin := f.user(t, "root", domain.RoleAdmin)

	ticket, err := f.tickets.CreateTicket(as(employee), TicketCreateInput{Title: "Printer", Description: "jammed"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("Expected default priority MEDIUM, got %s", ticket.Priority)
	}
	resolved := domain.TicketStatusResolved

	t.Run("employee cannot change status", func(t *testing.T) {
		_, err := f.tickets.UpdateTicket(as(employee), ticket.ID, policy.UpdateRequest{Status: &resolved})
		expectCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("other employee is forbidden", func(t *testing.T) {
		_, err := f.tickets.UpdateTicket(as(other), ticket.ID, policy.UpdateRequest{Title: strPtr("x")})
		expectCode(t, err, apperrors.CodeForbidden)
	})

	t.Run("empty request", func(t *testing.T) {
		_, err := f.tickets.UpdateTicket(as(employee), ticket.ID, policy.UpdateRequest{})
		expectCode(t, err, apperrors.CodeInvalidRequest)
	})

	t.Run("missing ticket", func(t *testing.T) {
		_, err := f.tickets.UpdateTicket(as(admin), "missing", policy.UpdateRequest{Title: strPtr("x")})
		expectCode(t, err, apperrors.CodeNotFound)
	})

	t.Run("admin cannot assign a non technician", func(t *testing.T) {
		_, err := f.tickets.UpdateTicket(as(admin), ticket.ID, policy.UpdateRequest{TechnicianID: &other.ID})
		expectCode(t, err, apperrors.CodeInvalidRequest)
		_, err = f.tickets.UpdateTicket(as(admin), ticket.ID, policy.UpdateRequest{TechnicianID: strPtr("ghost")})
		expectCode(t, err, apperrors.CodeInvalidRequest)
	})

	t.Run("technician resolves and relinquishes", func(t *testing.T) {
		updated, err := f.tickets.UpdateTicket(as(tech), ticket.ID, policy.UpdateRequest{Status: &resolved})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if updated.Status != resolved || !updated.AssignedTo(tech.ID) {
			t.Errorf("Expected resolved and claimed, got %+v", updated)
		}
		released, err := f.tickets.UpdateTicket(as(tech), ticket.ID, policy.UpdateRequest{Unassign: true})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !released.Unassigned() {
			t.Errorf("Expected ticket released")
		}
	})

	t.Run("creator still edits details", func(t *testing.T) {
		updated, err := f.tickets.UpdateTicket(as(employee), ticket.ID, policy.UpdateRequest{Title: strPtr("  Printer on 2nd floor ")})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if updated.Title != "Printer on 2nd floor" {
			t.Errorf("Expected trimmed title, got %q", updated.Title)
		}
	})
}

func TestTicketService_CreateRules(t *testing.T) {
	f := newFixture(t)
	employee := f.user(t, "alice", domain.RoleEmployee)
	tech := f.user(t, "tom", domain.RoleTechnician)

	_, err := f.tickets.CreateTicket(as(tech), TicketCreateInput{Title: "x", Description: "y"})
	expectCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.CreateTicket(as(employee), TicketCreateInput{Title: " ", Description: "y"})
	expectCode(t, err, apperrors.CodeInvalidRequest)

	_, err = f.tickets.CreateTicket(as(employee), TicketCreateInput{Title: "x", Description: "y", Priority: "URGENT"})
	expectCode(t, err, apperrors.CodeInvalidRequest)

	_, err = f.tickets.CreateTicket(context.Background(), TicketCreateInput{Title: "x", Description: "y"})
	expectCode(t, err, apperrors.CodeUnauthorized)

	if f.cache.invalidated != 0 {
		t.Errorf("Expected no cache invalidation for rejected creates, got %d", f.cache.invalidated)
	}
}

func TestTicketService_VisibilityAndListing(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleEmployee)
	bob := f.user(t, "bob", domain.RoleEmployee)
	tech := f.user(t, "tom", domain.RoleTechnician)
	tech2 := f.user(t, "tia", domain.RoleTechnician)
	admin := f.user(t, "root", domain.RoleAdmin)

	mustCreate := func(u *domain.User, title string, p domain.TicketPriority) *domain.Ticket {
		ticket, err := f.tickets.CreateTicket(as(u), TicketCreateInput{Title: title, Description: "d", Priority: p})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		return ticket
	}
	a1 := mustCreate(alice, "a1", domain.TicketPriorityLow)
	b1 := mustCreate(bob, "b1", domain.TicketPriorityCritical)
	a2 := mustCreate(alice, "a2", domain.TicketPriorityCritical)

	if _, err := f.tickets.UpdateTicket(as(tech2), b1.ID, policy.UpdateRequest{TechnicianID: &tech2.ID}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	tests := []struct {
		name     string
		caller   *domain.User
		filter   TicketListFilter
		expected []string
	}{
		{"admin sees all", admin, TicketListFilter{}, []string{a2.ID, b1.ID, a1.ID}},
		{"employee sees own", alice, TicketListFilter{}, []string{a2.ID, a1.ID}},
		{"technician sees unassigned", tech, TicketListFilter{}, []string{a2.ID, a1.ID}},
		{"technician sees held", tech2, TicketListFilter{}, []string{a2.ID, b1.ID, a1.ID}},
		{"critical only", admin, TicketListFilter{Priorities: []domain.TicketPriority{domain.TicketPriorityCritical}}, []string{a2.ID, b1.ID}},
		{"paged", admin, TicketListFilter{Limit: 1, Offset: 1}, []string{b1.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.tickets.ListTickets(as(tt.caller), tt.filter)
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

	t.Run("unknown status filter", func(t *testing.T) {
		_, err := f.tickets.ListTickets(as(admin), TicketListFilter{Statuses: []domain.TicketStatus{"DONE"}})
		expectCode(t, err, apperrors.CodeInvalidRequest)
	})

	t.Run("forbidden is not downgraded to not found", func(t *testing.T) {
		_, err := f.tickets.GetTicket(as(bob), a1.ID)
		expectCode(t, err, apperrors.CodeForbidden)
		_, err = f.tickets.GetTicket(as(tech), b1.ID)
		expectCode(t, err, apperrors.CodeForbidden)
		_, err = f.tickets.GetTicket(as(bob), "missing")
		expectCode(t, err, apperrors.CodeNotFound)
	})
}

func TestTicketService_Comments(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleEmployee)
	bob := f.user(t, "bob", domain.RoleEmployee)
	tech := f.user(t, "tom", domain.RoleTechnician)

	ticket, err := f.tickets.CreateTicket(as(alice), TicketCreateInput{Title: "VPN down", Description: "d"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	_, err = f.tickets.AddComment(as(alice), ticket.ID, "   ")
	expectCode(t, err, apperrors.CodeInvalidRequest)

	_, err = f.tickets.AddComment(as(bob), ticket.ID, "me too")
	expectCode(t, err, apperrors.CodeForbidden)

	if _, err := f.tickets.AddComment(as(alice), ticket.ID, "still down"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	comment, err := f.tickets.AddComment(as(tech), ticket.ID, " looking ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if comment.Content != " looking " {
		t.Errorf("Expected content stored verbatim, got %q", comment.Content)
	}
	if comment.AuthorID != tech.ID {
		t.Errorf("Expected author %s, got %s", tech.ID, comment.AuthorID)
	}

	detail, err := f.tickets.GetTicket(as(alice), ticket.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(detail.Comments) != 2 || detail.Comments[0].Content != "still down" {
		t.Errorf("Expected two comments oldest first, got %+v", detail.Comments)
	}

	_, err = f.tickets.ListComments(as(bob), ticket.ID)
	expectCode(t, err, apperrors.CodeForbidden)
	_, err = f.tickets.AddComment(as(alice), "missing", "hello")
	expectCode(t, err, apperrors.CodeNotFound)
}

func TestTicketService_Delete(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", domain.RoleEmployee)
	admin := f.user(t, "root", domain.RoleAdmin)

	ticket, err := f.tickets.CreateTicket(as(alice), TicketCreateInput{Title: "VPN down", Description: "d"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	expectCode(t, f.tickets.DeleteTicket(as(alice), ticket.ID), apperrors.CodeForbidden)

	before := f.cache.invalidated
	if err := f.tickets.DeleteTicket(as(admin), ticket.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if f.cache.invalidated != before+1 {
		t.Errorf("Expected cache invalidation on delete")
	}
	expectCode(t, f.tickets.DeleteTicket(as(admin), ticket.ID), apperrors.CodeNotFound)
	if f.events[len(f.events)-1] != events.EventTicketDeleted {
		t.Errorf("Expected ticket_deleted event, got %s", f.events[len(f.events)-1])
	}
}

func TestStringPreview(t *testing.T) {
	tests := []struct {
		name string
		body string
		max  int
		want string
	}{
		{"short", "  ok  ", 10, "ok"},
		{"ascii cut", "abcdefghij", 8, "abcde..."},
		{"multi-byte cut", "problème réseau très lent", 10, "problèm..."},
		{"tiny max", "été chaud", 2, "ét"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stringPreview(tt.body, tt.max)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
			if !utf8.ValidString(got) {
				t.Errorf("Expected valid UTF-8, got %q", got)
			}
		})
	}
}
