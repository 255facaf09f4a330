package domain

// StatusCount is the number of tickets in one status.
type StatusCount struct {
	Status TicketStatus `json:"status"`
	Count  int          `json:"count"`
}

// PriorityCount is the number of tickets at one priority.
type PriorityCount struct {
	Priority TicketPriority `json:"priority"`
	Count    int            `json:"count"`
}

// TechnicianResolution is the mean resolution time for one technician.
type TechnicianResolution struct {
	TechnicianID       string  `json:"technician_id"`
	TechnicianName     string  `json:"technician_name"`
	ResolvedCount      int     `json:"resolved_count"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

// DashboardStats aggregates ticket counts for administrators.
type DashboardStats struct {
	TotalTickets           int                    `json:"total_tickets"`
	ByStatus               []StatusCount          `json:"by_status"`
	ByPriority             []PriorityCount        `json:"by_priority"`
	ResolutionByTechnician []TechnicianResolution `json:"resolution_by_technician"`
}
