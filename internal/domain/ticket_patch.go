package domain

// TicketField identifies a mutable ticket attribute.
type TicketField uint8

const (
	FieldTitle TicketField = 1 << iota
	FieldDescription
	FieldStatus
	FieldPriority
	FieldTechnician
)

var ticketFieldOrder = []TicketField{FieldTitle, FieldDescription, FieldStatus, FieldPriority, FieldTechnician}

func (f TicketField) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldDescription:
		return "description"
	case FieldStatus:
		return "status"
	case FieldPriority:
		return "priority"
	case FieldTechnician:
		return "technician_id"
	}
	return "unknown"
}

// FieldMask is a set of ticket fields resolved by the policy.
type FieldMask uint8

func (m FieldMask) Has(f TicketField) bool {
	return m&FieldMask(f) != 0
}

func (m FieldMask) With(f TicketField) FieldMask {
	return m | FieldMask(f)
}

func (m FieldMask) Empty() bool {
	return m == 0
}

// Fields returns the members in a stable order.
func (m FieldMask) Fields() []TicketField {
	fields := make([]TicketField, 0, len(ticketFieldOrder))
	for _, f := range ticketFieldOrder {
		if m.Has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// Names returns the wire names of the members.
func (m FieldMask) Names() []string {
	fields := m.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return names
}

// TicketPatch is a structured partial update. Only fields in Mask are written;
// a masked FieldTechnician with a nil TechnicianID clears the assignment.
type TicketPatch struct {
	Mask         FieldMask
	Title        string
	Description  string
	Status       TicketStatus
	Priority     TicketPriority
	TechnicianID *string
}

// Apply writes the masked fields onto t.
func (p TicketPatch) Apply(t *Ticket) {
	if p.Mask.Has(FieldTitle) {
		t.Title = p.Title
	}
	if p.Mask.Has(FieldDescription) {
		t.Description = p.Description
	}
	if p.Mask.Has(FieldStatus) {
		t.Status = p.Status
	}
	if p.Mask.Has(FieldPriority) {
		t.Priority = p.Priority
	}
	if p.Mask.Has(FieldTechnician) {
		if p.TechnicianID == nil {
			t.TechnicianID = nil
		} else {
			id := *p.TechnicianID
			t.TechnicianID = &id
		}
	}
}
