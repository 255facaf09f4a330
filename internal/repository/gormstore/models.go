package gormstore

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/deskline/helpdesk-service/internal/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type userModel struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:255;not null"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:20;not null;index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userModel) TableName() string { return "users" }

type ticketModel struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Title        string    `gorm:"size:255;not null"`
	Description  string    `gorm:"type:text;not null"`
	Status       string    `gorm:"size:20;not null;index"`
	Priority     string    `gorm:"size:20;not null;index"`
	CreatorID    string    `gorm:"size:36;not null;index"`
	TechnicianID *string   `gorm:"size:36;index"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (ticketModel) TableName() string { return "tickets" }

type commentModel struct {
	ID        string `gorm:"primaryKey;size:36"`
	TicketID  string `gorm:"size:36;not null;index"`
	AuthorID  string `gorm:"size:36;not null;index"`
	Content   string `gorm:"type:text;not null"`
	CreatedAt time.Time
}

func (commentModel) TableName() string { return "ticket_comments" }

type historyModel struct {
	ID          string `gorm:"primaryKey;size:36"`
	TicketID    string `gorm:"size:36;not null;index"`
	ChangedByID string `gorm:"size:36;not null"`
	ChangeType  string `gorm:"size:32;not null"`
	OldValue    string `gorm:"type:text"`
	NewValue    string `gorm:"type:text"`
	CreatedAt   time.Time
}

func (historyModel) TableName() string { return "ticket_history" }

func (m userModel) toDomain() domain.User {
	return domain.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domain.Role(m.Role),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func userFromDomain(u *domain.User) userModel {
	return userModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (m ticketModel) toDomain() domain.Ticket {
	return domain.Ticket{
		ID:           m.ID,
		Title:        m.Title,
		Description:  m.Description,
		Status:       domain.TicketStatus(m.Status),
		Priority:     domain.TicketPriority(m.Priority),
		CreatorID:    m.CreatorID,
		TechnicianID: m.TechnicianID,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func ticketFromDomain(t *domain.Ticket) ticketModel {
	return ticketModel{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       string(t.Status),
		Priority:     string(t.Priority),
		CreatorID:    t.CreatorID,
		TechnicianID: t.TechnicianID,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (m commentModel) toDomain() domain.Comment {
	return domain.Comment{
		ID:        m.ID,
		TicketID:  m.TicketID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func (m historyModel) toDomain() (domain.TicketHistory, error) {
	entry := domain.TicketHistory{
		ID:          m.ID,
		TicketID:    m.TicketID,
		ChangedByID: m.ChangedByID,
		ChangeType:  domain.TicketChangeType(m.ChangeType),
		CreatedAt:   m.CreatedAt,
	}
	if err := decodeValue(m.OldValue, &entry.OldValue); err != nil {
		return entry, err
	}
	if err := decodeValue(m.NewValue, &entry.NewValue); err != nil {
		return entry, err
	}
	return entry, nil
}

func encodeValue(v map[string]any) (string, error) {
	if v == nil {
		return "{}", nil
	}
	return json.MarshalToString(v)
}

func decodeValue(raw string, into *map[string]any) error {
	if raw == "" {
		*into = map[string]any{}
		return nil
	}
	return json.UnmarshalFromString(raw, into)
}
