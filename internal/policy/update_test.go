package policy

import (
	"testing"

	"github.com/deskline/helpdesk-service/internal/domain"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

func statusPtr(s domain.TicketStatus) *domain.TicketStatus { return &s }
func priorityPtr(p domain.TicketPriority) *domain.TicketPriority { return &p }

func unassignedTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:        "t1",
		Title:     "VPN down",
		CreatorID: employeeA.ID,
		Status:    domain.TicketStatusOpen,
		Priority:  domain.TicketPriorityHigh,
	}
}

func assignedTicket(techID string) *domain.Ticket {
	ticket := unassignedTicket()
	ticket.TechnicianID = strPtr(techID)
	return ticket
}

func TestAuthorizeUpdate_Gate(t *testing.T) {
	req := UpdateRequest{Description: strPtr("more details")}

	t.Run("employee on foreign ticket", func(t *testing.T) {
		_, err := AuthorizeUpdate(employeeB, unassignedTicket(), req)
		if !apperrors.HasCode(err, apperrors.CodeForbidden) {
			t.Errorf("Expected FORBIDDEN, got %v", err)
		}
	})

	t.Run("technician on ticket held by another", func(t *testing.T) {
		_, err := AuthorizeUpdate(technician2, assignedTicket(technician1.ID), req)
		if !apperrors.HasCode(err, apperrors.CodeForbidden) {
			t.Errorf("Expected FORBIDDEN, got %v", err)
		}
	})

	t.Run("owner passes", func(t *testing.T) {
		decision, err := AuthorizeUpdate(employeeA, unassignedTicket(), req)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if decision.Patch.Mask.Fields()[0] != domain.FieldDescription || len(decision.Patch.Mask.Fields()) != 1 {
			t.Errorf("Expected description only, got %v", decision.Patch.Mask.Names())
		}
	})
}

func TestAuthorizeUpdate_EmployeeStatusAlwaysDenied(t *testing.T) {
	req := UpdateRequest{Status: statusPtr(domain.TicketStatusClosed)}
	for _, ticket := range []*domain.Ticket{unassignedTicket(), assignedTicket(technician1.ID)} {
		if _, err := AuthorizeUpdate(employeeA, ticket, req); !apperrors.HasCode(err, apperrors.CodeForbidden) {
			t.Errorf("owner: expected FORBIDDEN, got %v", err)
		}
		if _, err := AuthorizeUpdate(employeeB, ticket, req); !apperrors.HasCode(err, apperrors.CodeForbidden) {
			t.Errorf("non-owner: expected FORBIDDEN, got %v", err)
		}
	}
}

func TestAuthorizeUpdate_EmptyRequest(t *testing.T) {
	callers := []domain.Caller{employeeA, technician1, admin}
	for _, caller := range callers {
		_, err := AuthorizeUpdate(caller, unassignedTicket(), UpdateRequest{})
		if !apperrors.HasCode(err, apperrors.CodeInvalidRequest) {
			t.Errorf("%s: expected INVALID_REQUEST, got %v", caller.ID, err)
		}
	}
}

func TestAuthorizeUpdate_Claim(t *testing.T) {
	t.Run("technician claims unassigned ticket", func(t *testing.T) {
		decision, err := AuthorizeUpdate(technician1, unassignedTicket(), UpdateRequest{Description: strPtr("checking")})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !decision.Claimed {
			t.Error("Expected claim")
		}
		if !decision.Patch.Mask.Has(domain.FieldTechnician) || *decision.Patch.TechnicianID != technician1.ID {
			t.Errorf("Expected technician %s in patch", technician1.ID)
		}
		if decision.Patch.Mask.Has(domain.FieldStatus) {
			t.Error("Expected status untouched")
		}
	})

	t.Run("explicit self assignment also claims", func(t *testing.T) {
		decision, err := AuthorizeUpdate(technician1, unassignedTicket(), UpdateRequest{TechnicianID: strPtr(technician1.ID)})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !decision.Claimed || *decision.Patch.TechnicianID != technician1.ID {
			t.Errorf("Expected self claim, got %+v", decision)
		}
	})

	t.Run("no claim on own ticket", func(t *testing.T) {
		decision, err := AuthorizeUpdate(technician1, assignedTicket(technician1.ID), UpdateRequest{Status: statusPtr(domain.TicketStatusInProgress)})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if decision.Claimed || decision.Patch.Mask.Has(domain.FieldTechnician) {
			t.Errorf("Expected no assignment change, got %v", decision.Patch.Mask.Names())
		}
	})

	t.Run("admin never claims", func(t *testing.T) {
		decision, err := AuthorizeUpdate(admin, unassignedTicket(), UpdateRequest{Priority: priorityPtr(domain.TicketPriorityLow)})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if decision.Claimed || decision.Patch.Mask.Has(domain.FieldTechnician) {
			t.Error("Expected admin update to leave assignment alone")
		}
	})
}

func TestAuthorizeUpdate_Assignment(t *testing.T) {
	t.Run("admin reassigns regardless of prior assignment", func(t *testing.T) {
		decision, err := AuthorizeUpdate(admin, assignedTicket(technician1.ID), UpdateRequest{TechnicianID: strPtr("tech-3")})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if *decision.Patch.TechnicianID != "tech-3" {
			t.Errorf("Expected tech-3, got %v", *decision.Patch.TechnicianID)
		}
	})

	t.Run("admin unassigns", func(t *testing.T) {
		decision, err := AuthorizeUpdate(admin, assignedTicket(technician1.ID), UpdateRequest{Unassign: true})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !decision.Patch.Mask.Has(domain.FieldTechnician) || decision.Patch.TechnicianID != nil {
			t.Error("Expected cleared technician")
		}
	})

	t.Run("technician relinquishes own ticket", func(t *testing.T) {
		decision, err := AuthorizeUpdate(technician1, assignedTicket(technician1.ID), UpdateRequest{Unassign: true})
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if decision.Patch.TechnicianID != nil || decision.Claimed {
			t.Error("Expected cleared technician without claim")
		}
	})

	t.Run("technician cannot hand ticket to someone else", func(t *testing.T) {
		_, err := AuthorizeUpdate(technician1, unassignedTicket(), UpdateRequest{TechnicianID: strPtr(technician2.ID)})
		if !apperrors.HasCode(err, apperrors.CodeForbidden) {
			t.Errorf("Expected FORBIDDEN, got %v", err)
		}
	})

	t.Run("technician cannot relinquish unassigned ticket", func(t *testing.T) {
		_, err := AuthorizeUpdate(technician1, unassignedTicket(), UpdateRequest{Unassign: true})
		if !apperrors.HasCode(err, apperrors.CodeInvalidRequest) {
			t.Errorf("Expected INVALID_REQUEST, got %v", err)
		}
	})

	t.Run("employee cannot assign", func(t *testing.T) {
		_, err := AuthorizeUpdate(employeeA, unassignedTicket(), UpdateRequest{TechnicianID: strPtr(technician1.ID)})
		if !apperrors.HasCode(err, apperrors.CodeForbidden) {
			t.Errorf("Expected FORBIDDEN, got %v", err)
		}
	})
}

func TestAuthorizeUpdate_Validation(t *testing.T) {
	cases := map[string]UpdateRequest{
		"blank title":      {Title: strPtr("   ")},
		"unknown status":   {Status: statusPtr("DONE")},
		"unknown priority": {Priority: priorityPtr("URGENT")},
		"conflicting":      {TechnicianID: strPtr("tech-1"), Unassign: true},
		"blank technician": {TechnicianID: strPtr(" ")},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := AuthorizeUpdate(admin, unassignedTicket(), req)
			if !apperrors.HasCode(err, apperrors.CodeInvalidRequest) {
				t.Errorf("Expected INVALID_REQUEST, got %v", err)
			}
		})
	}
}

func TestAuthorizeUpdate_StatusByStaff(t *testing.T) {
	for _, caller := range []domain.Caller{technician1, admin} {
		for _, status := range domain.TicketStatuses {
			decision, err := AuthorizeUpdate(caller, assignedTicket(technician1.ID), UpdateRequest{Status: statusPtr(status)})
			if err != nil {
				t.Fatalf("%s -> %s: unexpected error %v", caller.ID, status, err)
			}
			if decision.Patch.Status != status {
				t.Errorf("Expected %s, got %s", status, decision.Patch.Status)
			}
		}
	}
}

func TestValidateNewTicket(t *testing.T) {
	priority, err := ValidateNewTicket("VPN down", "cannot connect", "")
	if err != nil || priority != domain.TicketPriorityMedium {
		t.Errorf("Expected MEDIUM default, got %s (%v)", priority, err)
	}
	if _, err := ValidateNewTicket("", "x", domain.TicketPriorityHigh); !apperrors.HasCode(err, apperrors.CodeInvalidRequest) {
		t.Errorf("Expected INVALID_REQUEST for missing title, got %v", err)
	}
	if _, err := ValidateNewTicket("x", "y", "SOMEDAY"); !apperrors.HasCode(err, apperrors.CodeInvalidRequest) {
		t.Errorf("Expected INVALID_REQUEST for bad priority, got %v", err)
	}
}
