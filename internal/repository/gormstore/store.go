// Package gormstore implements the repositories on gorm for the MySQL and
// SQLite drivers.
package gormstore

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
)

// Migrate creates or updates the tables for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&userModel{}, &ticketModel{}, &commentModel{}, &historyModel{})
}

// NewStore wires the gorm repositories. The DB should be opened with
// TranslateError enabled so unique violations surface as ErrDuplicate.
func NewStore(db *gorm.DB) repository.Store {
	return repository.Store{
		Tickets:  &ticketRepository{db: db},
		Comments: &commentRepository{db: db},
		History:  &historyRepository{db: db},
		Users:    &userRepository{db: db},
	}
}

var ticketColumnFor = map[domain.TicketField]string{
	domain.FieldTitle:       "title",
	domain.FieldDescription: "description",
	domain.FieldStatus:      "status",
	domain.FieldPriority:    "priority",
	domain.FieldTechnician:  "technician_id",
}

type ticketRepository struct {
	db *gorm.DB
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	now := time.Now().UTC()
	ticket.ID = uuid.NewString()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	model := ticketFromDomain(ticket)
	return translate(r.db.WithContext(ctx).Create(&model).Error)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var model ticketModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	ticket := model.toDomain()
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	query := r.db.WithContext(ctx).Model(&ticketModel{})
	if filter.Scope.CreatorID != nil {
		query = query.Where("creator_id = ?", *filter.Scope.CreatorID)
	}
	if filter.Scope.TechnicianOrUnassigned != nil {
		query = query.Where("(technician_id IS NULL OR technician_id = ?)", *filter.Scope.TechnicianOrUnassigned)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(filter.Statuses))
	}
	if len(filter.Priorities) > 0 {
		query = query.Where("priority IN ?", priorityStrings(filter.Priorities))
	}
	query = query.Order("created_at DESC").Order("id DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			// MySQL rejects OFFSET without LIMIT.
			query = query.Limit(math.MaxInt32)
		}
		query = query.Offset(filter.Offset)
	}

	var models []ticketModel
	if err := query.Find(&models).Error; err != nil {
		return nil, translate(err)
	}
	tickets := make([]domain.Ticket, 0, len(models))
	for _, m := range models {
		tickets = append(tickets, m.toDomain())
	}
	return tickets, nil
}

func (r *ticketRepository) UpdateFields(ctx context.Context, id string, patch domain.TicketPatch) (*domain.Ticket, error) {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	for _, field := range patch.Mask.Fields() {
		updates[ticketColumnFor[field]] = patchValue(field, patch)
	}

	var model ticketModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}
		if err := tx.Model(&ticketModel{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	ticket := model.toDomain()
	return &ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteTickets(tx, []string{id}, true)
	}))
}

// deleteTickets removes the tickets with their comments and history. When
// strict is set a missing ticket reports ErrNotFound.
func deleteTickets(tx *gorm.DB, ids []string, strict bool) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("ticket_id IN ?", ids).Delete(&commentModel{}).Error; err != nil {
		return err
	}
	if err := tx.Where("ticket_id IN ?", ids).Delete(&historyModel{}).Error; err != nil {
		return err
	}
	res := tx.Where("id IN ?", ids).Delete(&ticketModel{})
	if res.Error != nil {
		return res.Error
	}
	if strict && res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func patchValue(field domain.TicketField, patch domain.TicketPatch) any {
	switch field {
	case domain.FieldTitle:
		return patch.Title
	case domain.FieldDescription:
		return patch.Description
	case domain.FieldStatus:
		return string(patch.Status)
	case domain.FieldPriority:
		return string(patch.Priority)
	case domain.FieldTechnician:
		if patch.TechnicianID == nil {
			return nil
		}
		return *patch.TechnicianID
	}
	return nil
}

type commentRepository struct {
	db *gorm.DB
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ticketModel{}).Where("id = ?", comment.TicketID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		comment.ID = uuid.NewString()
		comment.CreatedAt = time.Now().UTC()
		model := commentModel{
			ID:        comment.ID,
			TicketID:  comment.TicketID,
			AuthorID:  comment.AuthorID,
			Content:   comment.Content,
			CreatedAt: comment.CreatedAt,
		}
		return tx.Create(&model).Error
	}))
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	var models []commentModel
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, translate(err)
	}
	comments := make([]domain.Comment, 0, len(models))
	for _, m := range models {
		comments = append(comments, m.toDomain())
	}
	return comments, nil
}

type historyRepository struct {
	db *gorm.DB
}

func (r *historyRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	oldValue, err := encodeValue(history.OldValue)
	if err != nil {
		return err
	}
	newValue, err := encodeValue(history.NewValue)
	if err != nil {
		return err
	}
	history.ID = uuid.NewString()
	history.CreatedAt = time.Now().UTC()
	model := historyModel{
		ID:          history.ID,
		TicketID:    history.TicketID,
		ChangedByID: history.ChangedByID,
		ChangeType:  string(history.ChangeType),
		OldValue:    oldValue,
		NewValue:    newValue,
		CreatedAt:   history.CreatedAt,
	}
	return translate(r.db.WithContext(ctx).Create(&model).Error)
}

func (r *historyRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	var models []historyModel
	err := r.db.WithContext(ctx).
		Where("ticket_id = ?", ticketID).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, translate(err)
	}
	entries := make([]domain.TicketHistory, 0, len(models))
	for _, m := range models {
		entry, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type userRepository struct {
	db *gorm.DB
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now
	model := userFromDomain(user)
	return translate(r.db.WithContext(ctx).Create(&model).Error)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing userModel
		if err := tx.Where("id = ?", user.ID).First(&existing).Error; err != nil {
			return err
		}
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = time.Now().UTC()
		return tx.Model(&userModel{}).Where("id = ?", user.ID).Updates(map[string]any{
			"name":          user.Name,
			"email":         user.Email,
			"password_hash": user.PasswordHash,
			"role":          string(user.Role),
			"updated_at":    user.UpdatedAt,
		}).Error
	}))
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model userModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	user := model.toDomain()
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var model userModel
	if err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&model).Error; err != nil {
		return nil, translate(err)
	}
	user := model.toDomain()
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter repository.UserFilter) ([]domain.User, error) {
	query := r.db.WithContext(ctx).Model(&userModel{})
	if filter.Role != nil {
		query = query.Where("role = ?", string(*filter.Role))
	}
	query = query.Order("created_at ASC").Order("id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query = query.Limit(math.MaxInt32)
		}
		query = query.Offset(filter.Offset)
	}

	var models []userModel
	if err := query.Find(&models).Error; err != nil {
		return nil, translate(err)
	}
	users := make([]domain.User, 0, len(models))
	for _, m := range models {
		users = append(users, m.toDomain())
	}
	return users, nil
}

// Delete removes the user together with their tickets and comments and
// releases tickets they were assigned.
func (r *userRepository) Delete(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owned []string
		if err := tx.Model(&ticketModel{}).Where("creator_id = ?", id).Pluck("id", &owned).Error; err != nil {
			return err
		}
		if err := deleteTickets(tx, owned, false); err != nil {
			return err
		}
		if err := tx.Model(&ticketModel{}).Where("technician_id = ?", id).Update("technician_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("author_id = ?", id).Delete(&commentModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&userModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repository.ErrNotFound
		}
		return nil
	}))
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	}
	return err
}

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func priorityStrings(priorities []domain.TicketPriority) []string {
	out := make([]string, len(priorities))
	for i, p := range priorities {
		out[i] = string(p)
	}
	return out
}
