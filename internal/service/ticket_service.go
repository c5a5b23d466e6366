package service

import (
	"context"
	"errors"

	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/serializer"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidPage = errors.New("invalid page")
)

type TicketService struct {
	ticketRepo *repository.TicketRepository
}

func NewTicketService(ticketRepo *repository.TicketRepository) *TicketService {
	return &TicketService{
		ticketRepo: ticketRepo,
	}
}

// Create validates payload against view and stores a new ticket. Nothing is
// written when validation fails.
func (s *TicketService) Create(ctx context.Context, view serializer.View, payload serializer.Payload) (*model.Ticket, error) {
	patch, err := view.Validate(payload)
	if err != nil {
		return nil, err
	}

	ticket := patch.NewTicket()
	if err := s.ticketRepo.Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *TicketService) Get(ctx context.Context, id uint64) (*model.Ticket, error) {
	ticket, err := s.ticketRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

// Update merges the fields present in payload into the stored ticket. PUT and
// PATCH share these partial semantics.
func (s *TicketService) Update(ctx context.Context, id uint64, payload serializer.Payload) (*model.Ticket, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch, err := serializer.Update.Validate(payload)
	if err != nil {
		return nil, err
	}

	patch.Apply(ticket)
	if err := s.ticketRepo.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

type Page struct {
	Number   int
	Size     int
	Count    int64
	LastPage int
	Tickets  []model.Ticket
}

func (p Page) HasNext() bool {
	return p.Number < p.LastPage
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}

// List runs query and returns the requested page of matches.
func (s *TicketService) List(ctx context.Context, query ListQuery) (*Page, error) {
	if query.Page < 1 && !query.Last {
		query.Page = 1
	}
	filter := query.Filter
	size := query.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}

	filter.Limit = size
	if query.Page > 1 {
		filter.Offset = (query.Page - 1) * size
	}

	tickets, total, err := s.ticketRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	last := lastPage(total, size)
	number := query.Page
	if query.Last {
		number = last
		if number > 1 {
			filter.Offset = (number - 1) * size
			if tickets, total, err = s.ticketRepo.List(ctx, filter); err != nil {
				return nil, err
			}
			last = lastPage(total, size)
		}
	}
	if number < 1 || number > last {
		return nil, ErrInvalidPage
	}

	return &Page{
		Number:   number,
		Size:     size,
		Count:    total,
		LastPage: last,
		Tickets:  tickets,
	}, nil
}

func (s *TicketService) Stats(ctx context.Context) (model.TicketStats, error) {
	return s.ticketRepo.Stats(ctx)
}

func lastPage(total int64, size int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(size) - 1) / int64(size))
}
