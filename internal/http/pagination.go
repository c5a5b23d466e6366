package http

import (
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"helpdesk/internal/model"
	"helpdesk/internal/service"
)

const forwardedProtoHeader = "X-Forwarded-Proto"

type pageResponse struct {
	Count    int64          `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []model.Ticket `json:"results"`
}

func newPageResponse(c *gin.Context, page *service.Page) pageResponse {
	resp := pageResponse{
		Count:   page.Count,
		Results: page.Tickets,
	}
	if resp.Results == nil {
		resp.Results = []model.Ticket{}
	}
	if page.HasNext() {
		next := pageURL(c, page.Number+1)
		resp.Next = &next
	}
	if page.HasPrevious() {
		previous := pageURL(c, page.Number-1)
		resp.Previous = &previous
	}
	return resp
}

// pageURL rebuilds the request URL pointing at another page. The first page
// carries no page parameter.
func pageURL(c *gin.Context, number int) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader(forwardedProtoHeader); proto != "" {
		scheme = proto
	}

	query := c.Request.URL.Query()
	if number <= 1 {
		query.Del("page")
	} else {
		query.Set("page", strconv.Itoa(number))
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     c.Request.Host,
		Path:     c.Request.URL.Path,
		RawQuery: query.Encode(),
	}
	return u.String()
}
