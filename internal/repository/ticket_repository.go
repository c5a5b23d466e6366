package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"helpdesk/internal/model"
)

var ErrNotFound = errors.New("record not found")

type TicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *model.Ticket) error {
	if err := r.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	var ticket model.Ticket
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&ticket).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket %d: %w", id, err)
	}
	return &ticket, nil
}

// Update writes every column of ticket and refreshes updated_at. Concurrent
// writers to the same row overwrite each other.
func (r *TicketRepository) Update(ctx context.Context, ticket *model.Ticket) error {
	if err := r.db.WithContext(ctx).Save(ticket).Error; err != nil {
		return fmt.Errorf("update ticket %d: %w", ticket.ID, err)
	}
	return nil
}

type OrderField struct {
	Column string
	Desc   bool
}

// DefaultOrdering is most recently updated first.
var DefaultOrdering = []OrderField{{Column: "updated_at", Desc: true}}

type TicketListFilter struct {
	Status        *model.TicketStatus
	Search        *string
	Title         *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	UpdatedBefore *time.Time
	Ordering      []OrderField
	Limit         int
	Offset        int
}

func (r *TicketRepository) List(ctx context.Context, filter TicketListFilter) ([]model.Ticket, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Ticket{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Search != nil {
		pattern := containsPattern(*filter.Search)
		query = query.Where(
			r.db.Where("LOWER(title) LIKE LOWER(?) ESCAPE '!'", pattern).
				Or("LOWER(description) LIKE LOWER(?) ESCAPE '!'", pattern).
				Or("LOWER(contact_email) LIKE LOWER(?) ESCAPE '!'", pattern),
		)
	}
	if filter.Title != nil {
		query = query.Where("LOWER(title) LIKE LOWER(?) ESCAPE '!'", containsPattern(*filter.Title))
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at <= ?", *filter.CreatedBefore)
	}
	if filter.UpdatedAfter != nil {
		query = query.Where("updated_at >= ?", *filter.UpdatedAfter)
	}
	if filter.UpdatedBefore != nil {
		query = query.Where("updated_at <= ?", *filter.UpdatedBefore)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count tickets: %w", err)
	}

	ordering := filter.Ordering
	if len(ordering) == 0 {
		ordering = DefaultOrdering
	}
	for _, o := range ordering {
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: o.Column}, Desc: o.Desc})
	}
	// id breaks ties so pages never overlap
	last := ordering[len(ordering)-1]
	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: last.Desc})

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var tickets []model.Ticket
	if err := query.Find(&tickets).Error; err != nil {
		return nil, 0, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, total, nil
}

// Stats counts tickets per status in a single grouped query.
func (r *TicketRepository) Stats(ctx context.Context) (model.TicketStats, error) {
	var rows []struct {
		Status model.TicketStatus
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&model.Ticket{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return model.TicketStats{}, fmt.Errorf("ticket stats: %w", err)
	}

	var stats model.TicketStats
	for _, row := range rows {
		stats.Add(row.Status, row.Total)
	}
	return stats, nil
}

// containsPattern builds a LIKE pattern that matches term literally, with '!'
// as the escape character. Callers lower both sides in SQL so the column and
// the term are folded by the same dialect function.
func containsPattern(term string) string {
	escaped := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(term)
	return "%" + escaped + "%"
}
