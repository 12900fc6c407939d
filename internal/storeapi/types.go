package storeapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/noah-isme/pos-terminal/internal/common"
)

// ID is an upstream identifier. The store API emits numeric ids for some
// resources and string ids for others, so both decode into the same type.
type ID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric-looking ids as numbers so the upstream sees the
// same type it sent.
func (id ID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Page carries list metadata returned next to paginated data.
type Page struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

// Pagination converts upstream metadata into the response shape used by the terminal API.
func (p Page) Pagination(limit int) common.Pagination {
	return common.Pagination{Page: p.Page, PerPage: limit, TotalItems: p.Total, TotalPages: p.Pages}
}

// ListQuery renders page, limit and searchquery parameters.
func ListQuery(q common.ListQuery) url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Search != "" {
		v.Set("searchquery", q.Search)
	}
	return v
}

// Search renders a single searchquery parameter.
func Search(term string) url.Values {
	return url.Values{"searchquery": []string{term}}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Page
}

// message extracts a human readable reason from the error field, which may be
// a plain string or an object with an error/message key.
func (e envelope) message() string {
	if len(e.Error) > 0 && !bytes.Equal(e.Error, []byte("null")) {
		var s string
		if err := json.Unmarshal(e.Error, &s); err == nil && s != "" {
			return s
		}
		var obj struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(e.Error, &obj); err == nil {
			if obj.Error != "" {
				return obj.Error
			}
			if obj.Message != "" {
				return obj.Message
			}
		}
	}
	return e.Message
}

var (
	// ErrUnsuccessful matches any Error returned for a failed store API call.
	ErrUnsuccessful = errors.New("storeapi: request not successful")
	// ErrUnauthorized matches 401/403 responses.
	ErrUnauthorized = errors.New("storeapi: unauthorized")
	// ErrNotFound matches 404 responses.
	ErrNotFound = errors.New("storeapi: not found")
)

// Error describes a failed store API call: a non-2xx status or a body whose
// success flag is false.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return "storeapi: " + e.Method + " " + e.Path + ": " + strconv.Itoa(e.Status) + " " + msg
}

// Is lets callers match the sentinel errors with errors.Is.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnsuccessful:
		return true
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}
