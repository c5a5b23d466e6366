package model

import (
	"fmt"
	"time"
)

type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusAccepted TicketStatus = "accepted"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusRejected TicketStatus = "rejected"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusAccepted,
	TicketStatusResolved,
	TicketStatusRejected,
}

func (s TicketStatus) Valid() bool {
	for _, status := range TicketStatuses {
		if s == status {
			return true
		}
	}
	return false
}

const (
	TitleMaxLength        = 200
	TitleMinLength        = 3
	DescriptionMinLength  = 10
	ContactEmailMaxLength = 254
	ContactPhoneMaxLength = 20
	StatusMaxLength       = 20
)

type Ticket struct {
	ID           uint64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Title        string       `gorm:"type:varchar(200);not null" json:"title"`
	Description  string       `gorm:"type:text;not null" json:"description"`
	ContactEmail string       `gorm:"type:varchar(254);not null" json:"contact_email"`
	ContactPhone *string      `gorm:"type:varchar(20)" json:"contact_phone"`
	Status       TicketStatus `gorm:"type:varchar(20);not null;default:pending;index" json:"status"`
	CreatedAt    time.Time    `gorm:"autoCreateTime;precision:6;not null;index" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime;precision:6;not null;index" json:"updated_at"`
}

func (Ticket) TableName() string {
	return "helpdesk_ticket"
}

func (t Ticket) String() string {
	return fmt.Sprintf("#%d - %s", t.ID, t.Title)
}

// TicketStats holds per-status counts over the whole table.
type TicketStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Accepted int64 `json:"accepted"`
	Resolved int64 `json:"resolved"`
	Rejected int64 `json:"rejected"`
}

func (s *TicketStats) Add(status TicketStatus, n int64) {
	s.Total += n
	switch status {
	case TicketStatusPending:
		s.Pending += n
	case TicketStatusAccepted:
		s.Accepted += n
	case TicketStatusResolved:
		s.Resolved += n
	case TicketStatusRejected:
		s.Rejected += n
	}
}
