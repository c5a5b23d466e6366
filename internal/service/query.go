package service

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/serializer"
)

const (
	DefaultPageSize = 20
	AdminPageSize   = 25
)

const (
	msgInvalidDateTime = "Enter a valid date/time."
	msgInvalidInteger  = "A valid integer is required."
	msgInvalidChoice   = "Select a valid choice. %s is not one of the available choices."
)

var orderableColumns = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"status":     true,
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// QueryOptions selects which list parameters a caller may use.
type QueryOptions struct {
	PageSize          int
	AllowUpdatedRange bool
}

var (
	PublicQuery = QueryOptions{PageSize: DefaultPageSize}
	AdminQuery  = QueryOptions{PageSize: AdminPageSize, AllowUpdatedRange: true}
)

type ListQuery struct {
	Filter   repository.TicketListFilter
	Page     int
	Last     bool
	PageSize int
}

// ParseListQuery turns request parameters into a filter. Every malformed
// parameter is reported in the returned serializer.FieldErrors.
func ParseListQuery(values url.Values, opts QueryOptions) (ListQuery, error) {
	query := ListQuery{Page: 1, PageSize: opts.PageSize}
	errs := serializer.FieldErrors{}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status := model.TicketStatus(raw)
		if status.Valid() {
			query.Filter.Status = &status
		} else {
			errs.Add("status", fmt.Sprintf(msgInvalidChoice, raw))
		}
	}

	if raw := strings.TrimSpace(values.Get("search")); raw != "" {
		query.Filter.Search = &raw
	}
	if raw := strings.TrimSpace(values.Get("title")); raw != "" {
		query.Filter.Title = &raw
	}

	query.Filter.CreatedAfter = parseTimeParam(values, "created_after", errs)
	query.Filter.CreatedBefore = parseTimeParam(values, "created_before", errs)
	if opts.AllowUpdatedRange {
		query.Filter.UpdatedAfter = parseTimeParam(values, "updated_after", errs)
		query.Filter.UpdatedBefore = parseTimeParam(values, "updated_before", errs)
	}

	query.Filter.Ordering = parseOrdering(values.Get("ordering"))

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		if raw == "last" {
			query.Last = true
		} else if page, err := strconv.Atoi(raw); err == nil && page > 0 {
			query.Page = page
		} else {
			errs.Add("page", msgInvalidInteger)
		}
	}

	if err := errs.OrNil(); err != nil {
		return ListQuery{}, err
	}
	return query, nil
}

func parseTimeParam(values url.Values, key string, errs serializer.FieldErrors) *time.Time {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return nil
	}
	parsed, err := ParseTime(raw)
	if err != nil {
		errs.Add(key, msgInvalidDateTime)
		return nil
	}
	return &parsed
}

// ParseTime accepts RFC3339 and the common date/time shorthands. Values
// without a zone are UTC.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time format %q", raw)
}

// parseOrdering keeps the recognised fields of a comma-separated ordering
// parameter; "-" marks descending order.
func parseOrdering(raw string) []repository.OrderField {
	var ordering []repository.OrderField
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		desc := strings.HasPrefix(part, "-")
		column := strings.TrimPrefix(part, "-")
		if !orderableColumns[column] {
			continue
		}
		ordering = append(ordering, repository.OrderField{Column: column, Desc: desc})
	}
	return ordering
}
