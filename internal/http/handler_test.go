package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"helpdesk/internal/auth"
	"helpdesk/internal/config"
	"helpdesk/internal/db"
	"helpdesk/internal/http/middleware"
	"helpdesk/internal/model"
	"helpdesk/internal/repository"
	"helpdesk/internal/service"
)

const testSecret = "test-secret"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testServer struct {
	router   *gin.Engine
	database *gorm.DB
	parser   *auth.Parser
}

func newTestServer(t *testing.T, withAdmin bool) *testServer {
	t.Helper()
	cfg := &config.Config{
		Environment: "test",
		DB:          config.DBConfig{Driver: config.DriverSQLite, DSN: ":memory:"},
	}
	database, err := db.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	if err := db.Migrate(database, zerolog.Nop()); err != nil {
		t.Fatalf("db.Migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ticketService := service.NewTicketService(repository.NewTicketRepository(database))
	handler := NewHandler(ticketService, func(ctx context.Context) error {
		return db.Ping(ctx, database)
	}, zerolog.Nop())

	parser := auth.NewParser(testSecret)
	var admin []gin.HandlerFunc
	if withAdmin {
		admin = []gin.HandlerFunc{middleware.Auth(parser), middleware.RequireAdmin()}
	}

	return &testServer{
		router:   NewRouter(handler, cfg, zerolog.Nop(), admin...),
		database: database,
		parser:   parser,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for key, values := range header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) token(t *testing.T, role model.UserRole) http.Header {
	t.Helper()
	token, err := s.parser.Issue("tester", role, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return http.Header{"Authorization": {"Bearer " + token}}
}

func (s *testServer) create(t *testing.T, title, email string) model.Ticket {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/tickets/", fmt.Sprintf(`{
		"title": %q,
		"description": "This is a test ticket description",
		"contact_email": %q,
		"contact_phone": "1234567890"
	}`, title, email), nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create %q: status %d, body %s", title, rec.Code, rec.Body)
	}
	var ticket model.Ticket
	decode(t, rec, &ticket)
	return ticket
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body, err)
	}
}

func detail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decode(t, rec, &body)
	return body.Detail
}

func TestCreateAndRetrieve(t *testing.T) {
	s := newTestServer(t, false)
	created := s.create(t, "Test Ticket", "test@example.com")

	if created.ID == 0 || created.Status != model.TicketStatusPending {
		t.Fatalf("created = %+v", created)
	}
	if created.ContactPhone == nil || *created.ContactPhone != "1234567890" {
		t.Fatalf("ContactPhone = %v", created.ContactPhone)
	}
	if !created.CreatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("created_at %v != updated_at %v", created.CreatedAt, created.UpdatedAt)
	}

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/tickets/%d/", created.ID), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	var got model.Ticket
	decode(t, rec, &got)
	if got.ID != created.ID || got.Title != created.Title || !got.UpdatedAt.Equal(created.UpdatedAt) {
		t.Fatalf("get = %+v, want %+v", got, created)
	}
}

func TestCreateWithoutPhoneRendersNull(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(t, http.MethodPost, "/tickets/", `{
		"title": "No phone",
		"description": "Ticket submitted without a phone",
		"contact_email": "nophone@example.com",
		"status": "resolved"
	}`, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	var body map[string]any
	decode(t, rec, &body)
	if phone, ok := body["contact_phone"]; !ok || phone != nil {
		t.Fatalf("contact_phone = %v (present %v), want null", phone, ok)
	}
	if body["status"] != "pending" {
		t.Fatalf("status = %v, want pending", body["status"])
	}
}

func TestCreateValidationErrors(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(t, http.MethodPost, "/tickets/", `{"title": "Hi", "description": "short", "contact_email": "not-an-email"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body)
	}
	var errs map[string][]string
	decode(t, rec, &errs)
	for _, field := range []string{"title", "description", "contact_email"} {
		if len(errs[field]) == 0 {
			t.Errorf("no error for %s in %v", field, errs)
		}
	}

	stats := s.do(t, http.MethodGet, "/tickets/stats/", "", nil)
	var counts model.TicketStats
	decode(t, stats, &counts)
	if counts.Total != 0 {
		t.Fatalf("invalid create stored %d tickets", counts.Total)
	}
}

func TestMalformedBodies(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodPost, "/tickets/", `{"title": `, nil)
	if rec.Code != http.StatusBadRequest || !strings.HasPrefix(detail(t, rec), "JSON parse error - ") {
		t.Fatalf("truncated JSON: status %d, body %s", rec.Code, rec.Body)
	}

	rec = s.do(t, http.MethodPost, "/tickets/", `["not", "an", "object"]`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("list body: status %d", rec.Code)
	}
	var errs map[string][]string
	decode(t, rec, &errs)
	want := "Invalid data. Expected a dictionary, but got list."
	if got := errs["non_field_errors"]; len(got) != 1 || got[0] != want {
		t.Fatalf("non_field_errors = %v, want [%q]", got, want)
	}
}

func TestDeleteNotAllowed(t *testing.T) {
	s := newTestServer(t, false)
	ticket := s.create(t, "Keep me", "keep@example.com")

	for _, path := range []string{fmt.Sprintf("/tickets/%d/", ticket.ID), "/tickets/"} {
		rec := s.do(t, http.MethodDelete, path, "", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("DELETE %s: status %d", path, rec.Code)
		}
		if got := detail(t, rec); got != `Method "DELETE" not allowed.` {
			t.Fatalf("DELETE %s: detail %q", path, got)
		}
	}

	rec := s.do(t, http.MethodGet, fmt.Sprintf("/tickets/%d/", ticket.ID), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("ticket gone after DELETE: status %d", rec.Code)
	}
}

func TestPartialUpdate(t *testing.T) {
	s := newTestServer(t, false)
	before := s.create(t, "Partial target", "partial@example.com")
	path := fmt.Sprintf("/tickets/%d/", before.ID)
	time.Sleep(2 * time.Millisecond)

	rec := s.do(t, http.MethodPatch, path, `{"status": "resolved"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH: status %d, body %s", rec.Code, rec.Body)
	}
	var patched model.Ticket
	decode(t, rec, &patched)
	if patched.Status != model.TicketStatusResolved || patched.Title != before.Title || patched.ContactEmail != before.ContactEmail {
		t.Fatalf("patched = %+v", patched)
	}
	if !patched.CreatedAt.Equal(before.CreatedAt) || !patched.UpdatedAt.After(before.UpdatedAt) {
		t.Fatalf("timestamps: created %v, updated %v, before %+v", patched.CreatedAt, patched.UpdatedAt, before)
	}

	rec = s.do(t, http.MethodPut, path, `{"title": "Renamed by PUT"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT: status %d, body %s", rec.Code, rec.Body)
	}
	var put model.Ticket
	decode(t, rec, &put)
	if put.Title != "Renamed by PUT" || put.Status != model.TicketStatusResolved || put.Description != before.Description {
		t.Fatalf("put = %+v", put)
	}

	rec = s.do(t, http.MethodPatch, path, `{"status": "closed"}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid status: code %d", rec.Code)
	}
	var errs map[string][]string
	decode(t, rec, &errs)
	if len(errs["status"]) != 1 {
		t.Fatalf("errors = %v", errs)
	}
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, false)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/tickets/999/", ""},
		{http.MethodPatch, "/tickets/999/", `{"status": "resolved"}`},
		{http.MethodPut, "/tickets/999/", `{"title": "Nothing here"}`},
		{http.MethodGet, "/tickets/abc/", ""},
		{http.MethodGet, "/nowhere", ""},
	}
	for _, tt := range tests {
		rec := s.do(t, tt.method, tt.path, tt.body, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status %d", tt.method, tt.path, rec.Code)
			continue
		}
		if got := detail(t, rec); got != "Not found." {
			t.Errorf("%s %s: detail %q", tt.method, tt.path, got)
		}
	}
}

func TestStats(t *testing.T) {
	s := newTestServer(t, false)
	statuses := []string{"pending", "accepted", "accepted", "resolved", "rejected", "rejected", "rejected"}
	for i, status := range statuses {
		ticket := s.create(t, fmt.Sprintf("Stats ticket %d", i), "stats@example.com")
		rec := s.do(t, http.MethodPatch, fmt.Sprintf("/tickets/%d/", ticket.ID), fmt.Sprintf(`{"status": %q}`, status), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("PATCH: status %d", rec.Code)
		}
	}

	rec := s.do(t, http.MethodGet, "/tickets/stats/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: status %d", rec.Code)
	}
	var got model.TicketStats
	decode(t, rec, &got)
	want := model.TicketStats{Total: 7, Pending: 1, Accepted: 2, Resolved: 1, Rejected: 3}
	if got != want {
		t.Fatalf("stats = %+v, want %+v", got, want)
	}
	if got.Pending+got.Accepted+got.Resolved+got.Rejected != got.Total {
		t.Fatalf("stats do not add up: %+v", got)
	}
}

func TestListPaginationLinks(t *testing.T) {
	s := newTestServer(t, false)
	for i := 0; i < 25; i++ {
		s.create(t, fmt.Sprintf("Paged ticket %02d", i), "paged@example.com")
	}

	var first pageResponse
	rec := s.do(t, http.MethodGet, "/tickets/", "", nil)
	decode(t, rec, &first)
	if first.Count != 25 || len(first.Results) != 20 || first.Previous != nil {
		t.Fatalf("page 1 = count %d, len %d, previous %v", first.Count, len(first.Results), first.Previous)
	}
	if first.Next == nil || *first.Next != "http://example.com/tickets/?page=2" {
		t.Fatalf("next = %v", first.Next)
	}
	if first.Results[0].Title != "Paged ticket 24" {
		t.Fatalf("first result = %q, want most recently updated", first.Results[0].Title)
	}

	var second pageResponse
	rec = s.do(t, http.MethodGet, "/tickets/?page=2", "", nil)
	decode(t, rec, &second)
	if len(second.Results) != 5 || second.Next != nil {
		t.Fatalf("page 2 = len %d, next %v", len(second.Results), second.Next)
	}
	if second.Previous == nil || *second.Previous != "http://example.com/tickets/" {
		t.Fatalf("previous = %v", second.Previous)
	}

	rec = s.do(t, http.MethodGet, "/tickets/?page=3", "", nil)
	if rec.Code != http.StatusNotFound || detail(t, rec) != "Invalid page." {
		t.Fatalf("page 3: status %d, body %s", rec.Code, rec.Body)
	}

	rec = s.do(t, http.MethodGet, "/tickets/?page=two", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("page=two: status %d", rec.Code)
	}
}

func TestListForwardedProtoKeepsFilters(t *testing.T) {
	s := newTestServer(t, false)
	for i := 0; i < 21; i++ {
		s.create(t, fmt.Sprintf("Proxy ticket %02d", i), "proxy@example.com")
	}

	rec := s.do(t, http.MethodGet, "/tickets/?status=pending", "", http.Header{"X-Forwarded-Proto": {"https"}})
	var page pageResponse
	decode(t, rec, &page)
	if page.Next == nil || *page.Next != "https://example.com/tickets/?page=2&status=pending" {
		t.Fatalf("next = %v", page.Next)
	}
}

func TestListEmpty(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(t, http.MethodGet, "/tickets/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	want := `{"count":0,"next":null,"previous":null,"results":[]}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Fatalf("body = %s, want %s", got, want)
	}
}

func TestListSearchAndFilter(t *testing.T) {
	s := newTestServer(t, false)
	printer := s.create(t, "Printer jammed", "alice@office.example")
	s.create(t, "Network down", "bob@lab.example")
	vpn := s.create(t, "VPN refuses login", "carol@lab.example")
	s.do(t, http.MethodPatch, fmt.Sprintf("/tickets/%d/", vpn.ID), `{"status": "accepted"}`, nil)

	tests := []struct {
		query string
		want  []uint64
	}{
		{"search=PRINTER", []uint64{printer.ID}},
		{"search=office.example", []uint64{printer.ID}},
		{"search=nothing-matches", nil},
		{"status=accepted", []uint64{vpn.ID}},
		{"status=accepted&search=lab", []uint64{vpn.ID}},
	}
	for _, tt := range tests {
		rec := s.do(t, http.MethodGet, "/tickets/?"+tt.query, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status %d", tt.query, rec.Code)
			continue
		}
		var page pageResponse
		decode(t, rec, &page)
		if int(page.Count) != len(tt.want) || len(page.Results) != len(tt.want) {
			t.Errorf("%s: count %d, want %d", tt.query, page.Count, len(tt.want))
			continue
		}
		for i, id := range tt.want {
			if page.Results[i].ID != id {
				t.Errorf("%s: result %d = %d, want %d", tt.query, i, page.Results[i].ID, id)
			}
		}
	}

	rec := s.do(t, http.MethodGet, "/tickets/?status=closed", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=closed: status %d", rec.Code)
	}
}

func TestAdminConsole(t *testing.T) {
	s := newTestServer(t, true)

	rec := s.do(t, http.MethodGet, "/admin/tickets/", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/admin/tickets/", "", http.Header{"Authorization": {"Bearer garbage"}})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, "/admin/tickets/", "", s.token(t, model.UserRoleStaff))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff token: status %d", rec.Code)
	}

	admin := s.token(t, model.UserRoleAdmin)
	rec = s.do(t, http.MethodPost, "/admin/tickets/", `{
		"title": "Escalated",
		"description": "Created by an administrator",
		"contact_email": "ops@example.com",
		"status": "accepted"
	}`, admin)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin create: status %d, body %s", rec.Code, rec.Body)
	}
	var created model.Ticket
	decode(t, rec, &created)
	if created.Status != model.TicketStatusAccepted {
		t.Fatalf("admin create status = %q", created.Status)
	}

	for i := 0; i < 25; i++ {
		s.create(t, fmt.Sprintf("Backlog %02d", i), "backlog@example.com")
	}
	rec = s.do(t, http.MethodGet, "/admin/tickets/", "", admin)
	var page pageResponse
	decode(t, rec, &page)
	if page.Count != 26 || len(page.Results) != 25 {
		t.Fatalf("admin list = count %d, len %d", page.Count, len(page.Results))
	}

	path := fmt.Sprintf("/admin/tickets/%d/", created.ID)
	rec = s.do(t, http.MethodDelete, path, "", admin)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("admin DELETE: status %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, path, "", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin get: status %d", rec.Code)
	}
}

func TestAdminDisabledWithoutSecret(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(t, http.MethodGet, "/admin/tickets/", "", s.token(t, model.UserRoleAdmin))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	s := newTestServer(t, false)

	if rec := s.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: status %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz: status %d", rec.Code)
	}

	sqlDB, err := s.database.DB()
	if err != nil {
		t.Fatalf("DB: %v", err)
	}
	sqlDB.Close()
	if rec := s.do(t, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz after close: status %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t, false)

	rec := s.do(t, http.MethodGet, "/healthz", "", http.Header{middleware.RequestIDHeader: {"abc-123"}})
	if got := rec.Header().Get(middleware.RequestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
	rec = s.do(t, http.MethodGet, "/healthz", "", nil)
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("no request id generated")
	}
}
