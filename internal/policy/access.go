package policy

import (
	"sort"

	"github.com/deskline/helpdesk-service/internal/domain"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// CanView decides whether caller may read the ticket, its comments and its
// history, and whether caller may comment on it.
func CanView(caller domain.Caller, ticket *domain.Ticket) bool {
	if ticket == nil {
		return false
	}
	switch caller.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleTechnician:
		return ticket.Unassigned() || ticket.AssignedTo(caller.ID)
	case domain.RoleEmployee:
		return ticket.CreatorID == caller.ID
	}
	return false
}

// CanComment uses the same predicate as CanView.
func CanComment(caller domain.Caller, ticket *domain.Ticket) bool {
	return CanView(caller, ticket)
}

// CanMutate is the gate every ticket update passes before field checks. It
// coincides with visibility: employees own their tickets, technicians hold
// theirs or unassigned ones, admins pass.
func CanMutate(caller domain.Caller, ticket *domain.Ticket) bool {
	return CanView(caller, ticket)
}

// ScopeFor returns the listing scope of caller.
func ScopeFor(caller domain.Caller) (domain.TicketScope, error) {
	switch caller.Role {
	case domain.RoleAdmin:
		return domain.TicketScope{}, nil
	case domain.RoleTechnician:
		id := caller.ID
		return domain.TicketScope{TechnicianOrUnassigned: &id}, nil
	case domain.RoleEmployee:
		id := caller.ID
		return domain.TicketScope{CreatorID: &id}, nil
	}
	return domain.TicketScope{}, apperrors.NewForbidden("unknown role")
}

// ListFor keeps the tickets caller may see, most recent first.
func ListFor(caller domain.Caller, tickets []domain.Ticket) []domain.Ticket {
	visible := make([]domain.Ticket, 0, len(tickets))
	for i := range tickets {
		if CanView(caller, &tickets[i]) {
			visible = append(visible, tickets[i])
		}
	}
	SortNewestFirst(visible)
	return visible
}

// SortNewestFirst orders tickets by creation time descending, id breaking ties.
func SortNewestFirst(tickets []domain.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		if tickets[i].CreatedAt.Equal(tickets[j].CreatedAt) {
			return tickets[i].ID > tickets[j].ID
		}
		return tickets[i].CreatedAt.After(tickets[j].CreatedAt)
	})
}

// AuthorizeCreate allows employees to file tickets on their own behalf.
func AuthorizeCreate(caller domain.Caller) error {
	if caller.Role != domain.RoleEmployee {
		return apperrors.NewForbidden("only employees may file tickets")
	}
	return nil
}

// AuthorizeDelete restricts hard deletes to administrators.
func AuthorizeDelete(caller domain.Caller) error {
	if !caller.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// AuthorizeDashboard restricts aggregate statistics to administrators.
func AuthorizeDashboard(caller domain.Caller) error {
	if !caller.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}
