package policy

import (
	"strings"

	"github.com/deskline/helpdesk-service/internal/domain"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// UpdateRequest carries the fields a caller asked to change. Nil pointers are
// absent fields.
type UpdateRequest struct {
	Title        *string
	Description  *string
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	TechnicianID *string
	// Unassign asks to clear the technician.
	Unassign bool
}

// Requested returns the fields present in the request.
func (r UpdateRequest) Requested() domain.FieldMask {
	var mask domain.FieldMask
	if r.Title != nil {
		mask = mask.With(domain.FieldTitle)
	}
	if r.Description != nil {
		mask = mask.With(domain.FieldDescription)
	}
	if r.Status != nil {
		mask = mask.With(domain.FieldStatus)
	}
	if r.Priority != nil {
		mask = mask.With(domain.FieldPriority)
	}
	if r.TechnicianID != nil || r.Unassign {
		mask = mask.With(domain.FieldTechnician)
	}
	return mask
}

// Decision is the outcome of AuthorizeUpdate.
type Decision struct {
	Patch domain.TicketPatch
	// Claimed is set when the patch self-assigns an unassigned technician.
	Claimed bool
}

// AuthorizeUpdate resolves the request against the caller's rights and
// returns the permitted patch. Ownership failures and role violations are
// Forbidden; malformed or empty requests are InvalidRequest.
func AuthorizeUpdate(caller domain.Caller, ticket *domain.Ticket, req UpdateRequest) (Decision, error) {
	if !CanMutate(caller, ticket) {
		return Decision{}, apperrors.NewForbidden("not allowed to update this ticket")
	}
	if req.Requested().Empty() {
		return Decision{}, apperrors.NewNothingToUpdate()
	}
	if err := validateUpdate(req); err != nil {
		return Decision{}, err
	}

	var patch domain.TicketPatch
	if req.Title != nil {
		patch.Mask = patch.Mask.With(domain.FieldTitle)
		patch.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		patch.Mask = patch.Mask.With(domain.FieldDescription)
		patch.Description = *req.Description
	}
	if req.Priority != nil {
		patch.Mask = patch.Mask.With(domain.FieldPriority)
		patch.Priority = *req.Priority
	}
	if req.Status != nil {
		if !caller.IsTechnician() && !caller.IsAdmin() {
			return Decision{}, apperrors.NewForbidden("only technicians and admins may change status")
		}
		patch.Mask = patch.Mask.With(domain.FieldStatus)
		patch.Status = *req.Status
	}

	if req.TechnicianID != nil || req.Unassign {
		if err := authorizeAssignment(caller, ticket, req, &patch); err != nil {
			return Decision{}, err
		}
	}

	decision := Decision{}
	if caller.IsTechnician() && ticket.Unassigned() && !req.Unassign &&
		(req.TechnicianID == nil || *req.TechnicianID == caller.ID) {
		self := caller.ID
		patch.Mask = patch.Mask.With(domain.FieldTechnician)
		patch.TechnicianID = &self
		decision.Claimed = true
	}

	if patch.Mask.Empty() {
		return Decision{}, apperrors.NewNothingToUpdate()
	}
	decision.Patch = patch
	return decision, nil
}

func authorizeAssignment(caller domain.Caller, ticket *domain.Ticket, req UpdateRequest, patch *domain.TicketPatch) error {
	switch caller.Role {
	case domain.RoleAdmin:
		patch.Mask = patch.Mask.With(domain.FieldTechnician)
		if req.Unassign {
			patch.TechnicianID = nil
			return nil
		}
		id := strings.TrimSpace(*req.TechnicianID)
		patch.TechnicianID = &id
		return nil
	case domain.RoleTechnician:
		if req.Unassign {
			if !ticket.AssignedTo(caller.ID) {
				return apperrors.NewInvalidRequest("ticket is not assigned to you", nil)
			}
			patch.Mask = patch.Mask.With(domain.FieldTechnician)
			patch.TechnicianID = nil
			return nil
		}
		if strings.TrimSpace(*req.TechnicianID) != caller.ID {
			return apperrors.NewForbidden("only admins may assign other technicians")
		}
		self := caller.ID
		patch.Mask = patch.Mask.With(domain.FieldTechnician)
		patch.TechnicianID = &self
		return nil
	}
	return apperrors.NewForbidden("only admins may assign technicians")
}

func validateUpdate(req UpdateRequest) error {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return apperrors.NewInvalidRequest("title cannot be empty", map[string]any{"field": "title"})
	}
	if req.Status != nil && !req.Status.Valid() {
		return apperrors.NewInvalidRequest("unknown status", map[string]any{"status": *req.Status})
	}
	if req.Priority != nil && !req.Priority.Valid() {
		return apperrors.NewInvalidRequest("unknown priority", map[string]any{"priority": *req.Priority})
	}
	if req.Unassign && req.TechnicianID != nil {
		return apperrors.NewInvalidRequest("technician_id and unassign are mutually exclusive", nil)
	}
	if req.TechnicianID != nil && strings.TrimSpace(*req.TechnicianID) == "" {
		return apperrors.NewInvalidRequest("technician_id cannot be empty", map[string]any{"field": "technician_id"})
	}
	return nil
}

// ValidateNewTicket checks the fields required to file a ticket and fills the
// default priority.
func ValidateNewTicket(title, description string, priority domain.TicketPriority) (domain.TicketPriority, error) {
	missing := []string{}
	if strings.TrimSpace(title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(description) == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return "", apperrors.NewInvalidRequest("missing required fields", map[string]any{"fields": missing})
	}
	if priority == "" {
		return domain.TicketPriorityMedium, nil
	}
	if !priority.Valid() {
		return "", apperrors.NewInvalidRequest("unknown priority", map[string]any{"priority": priority})
	}
	return priority, nil
}
