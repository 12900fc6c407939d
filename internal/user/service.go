// Package user manages operator accounts on the store API.
package user

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
)

// User is an operator account.
type User struct {
	ID   storeapi.ID `json:"id"`
	Name string      `json:"name"`
	Role string      `json:"role"`
}

// CreateInput is the registration form.
type CreateInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Role     string `json:"role" validate:"required,oneof=admin user"`
	Password string `json:"password" validate:"required,min=4,max=256"`
}

// UpdateInput edits an account. An empty password keeps the current one.
type UpdateInput struct {
	Name     string `json:"name" validate:"required,max=120"`
	Role     string `json:"role" validate:"required,oneof=admin user"`
	Password string `json:"password,omitempty" validate:"omitempty,min=4,max=256"`
}

// Service wraps the /user endpoints.
type Service struct {
	API      storeapi.Caller
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// List returns a page of users via GET /user/all.
func (s *Service) List(ctx context.Context, q common.ListQuery) ([]User, storeapi.Page, error) {
	var rows []User
	page, err := s.API.Get(ctx, "/user/all", storeapi.ListQuery(q), &rows)
	if err != nil {
		return nil, storeapi.Page{}, err
	}
	if rows == nil {
		rows = []User{}
	}
	return rows, page, nil
}

// Create registers a user via POST /user/register.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := s.check(in); err != nil {
		return User{}, err
	}
	var created User
	if err := s.API.Send(ctx, http.MethodPost, "/user/register", in, &created); err != nil {
		return User{}, err
	}
	if created.Name == "" {
		created = User{Name: in.Name, Role: in.Role}
	}
	s.Logger.Info().Str("user", created.Name).Str("role", created.Role).Msg("user_created")
	return created, nil
}

// Update edits a user via PUT /user/{id}.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, common.BadRequest("user id required")
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := s.check(in); err != nil {
		return User{}, err
	}
	var updated User
	if err := s.API.Send(ctx, http.MethodPut, "/user/"+url.PathEscape(id), in, &updated); err != nil {
		return User{}, err
	}
	if updated.Name == "" {
		updated = User{ID: storeapi.ID(id), Name: in.Name, Role: in.Role}
	}
	return updated, nil
}

// Delete removes a user via DELETE /user/{id}.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return common.BadRequest("user id required")
	}
	return s.API.Send(ctx, http.MethodDelete, "/user/"+url.PathEscape(id), nil, nil)
}

func (s *Service) check(v any) error {
	if s.Validate == nil {
		return nil
	}
	if err := s.Validate.Struct(v); err != nil {
		return common.ValidationError(err)
	}
	return nil
}
