package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketStatuses lists every status in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Finished reports whether the ticket counts as resolved for statistics.
func (s TicketStatus) Finished() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// TicketPriorities lists every priority from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityCritical,
}

func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// NormalizeStatus upper-cases and trims user input.
func NormalizeStatus(s string) TicketStatus {
	return TicketStatus(strings.ToUpper(strings.TrimSpace(s)))
}

// NormalizePriority upper-cases and trims user input.
func NormalizePriority(s string) TicketPriority {
	return TicketPriority(strings.ToUpper(strings.TrimSpace(s)))
}

// Ticket is the aggregate for help-desk requests.
type Ticket struct {
	ID           string
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	CreatorID    string
	TechnicianID *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Unassigned reports whether no technician holds the ticket.
func (t *Ticket) Unassigned() bool {
	return t.TechnicianID == nil
}

// AssignedTo reports whether the ticket is held by the given user.
func (t *Ticket) AssignedTo(userID string) bool {
	return t.TechnicianID != nil && *t.TechnicianID == userID
}

// TicketScope restricts listings to what a caller may see.
type TicketScope struct {
	// CreatorID limits results to tickets filed by this user.
	CreatorID *string
	// TechnicianOrUnassigned limits results to tickets held by this user or by nobody.
	TechnicianOrUnassigned *string
}

// Matches applies the scope to a single ticket.
func (s TicketScope) Matches(t *Ticket) bool {
	if s.CreatorID != nil && t.CreatorID != *s.CreatorID {
		return false
	}
	if s.TechnicianOrUnassigned != nil && !t.Unassigned() && !t.AssignedTo(*s.TechnicianOrUnassigned) {
		return false
	}
	return true
}
