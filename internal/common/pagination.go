package common

import (
	"net/http"
	"strconv"
	"strings"
)

// Pagination holds pagination metadata for list responses.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
	TotalPages int `json:"total_pages"`
}

// ListQuery carries the page/limit/search parameters forwarded to the store API.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// ParsePagination extracts page and per-page parameters from query values.
func ParsePagination(r *http.Request, defaultPerPage int) (page, perPage int) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err = strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || perPage < 1 {
		perPage = defaultPerPage
	}
	return page, perPage
}

// ParseListQuery reads page, limit and search (or searchquery) from the request.
func ParseListQuery(r *http.Request, defaultPerPage int) ListQuery {
	page, limit := ParsePagination(r, defaultPerPage)
	search := r.URL.Query().Get("search")
	if search == "" {
		search = r.URL.Query().Get("searchquery")
	}
	return ListQuery{Page: page, Limit: limit, Search: strings.TrimSpace(search)}
}
