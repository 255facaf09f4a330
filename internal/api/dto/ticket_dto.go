package dto

import (
	"time"

	"github.com/guregu/null/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// OptionalString distinguishes an absent key from an explicit null.
type OptionalString struct {
	Set   bool
	Value null.String
}

// UnmarshalJSON is only invoked when the key is present in the payload.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	return o.Value.UnmarshalJSON(data)
}

// UpdateTicketRequest is a partial update; absent keys are left untouched.
// "technician_id": null unassigns the ticket.
type UpdateTicketRequest struct {
	Title        *string        `json:"title"`
	Description  *string        `json:"description"`
	Status       *string        `json:"status"`
	Priority     *string        `json:"priority"`
	TechnicianID OptionalString `json:"technician_id"`
	Unassign     bool           `json:"unassign"`
}

// ToPolicy converts the payload into the policy request, normalizing enum case.
func (r UpdateTicketRequest) ToPolicy() policy.UpdateRequest {
	req := policy.UpdateRequest{
		Title:       r.Title,
		Description: r.Description,
		Unassign:    r.Unassign,
	}
	if r.Status != nil {
		status := domain.NormalizeStatus(*r.Status)
		req.Status = &status
	}
	if r.Priority != nil {
		priority := domain.NormalizePriority(*r.Priority)
		req.Priority = &priority
	}
	if r.TechnicianID.Set {
		if r.TechnicianID.Value.Valid {
			id := r.TechnicianID.Value.String
			req.TechnicianID = &id
		} else {
			req.Unassign = true
		}
	}
	return req
}

// TicketListQuery captures query filters for ticket listings.
type TicketListQuery struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Limit      int
	Offset     int
}

// TicketResponse is the public view of a ticket.
type TicketResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	CreatorID    string                `json:"creator_id"`
	TechnicianID null.String           `json:"technician_id"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketResponse
	Comments []CommentResponse `json:"comments"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	TicketID    string                  `json:"ticket_id"`
	ChangedByID string                  `json:"changed_by_id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}
