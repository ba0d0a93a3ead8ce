package actors

import (
	"context"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// HashPassword derives a salted bcrypt hash from a plaintext password.
func HashPassword(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword reports whether plaintext matches the stored hash.
func ComparePassword(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// CreateInput carries the fields for provisioning a new actor.
type CreateInput struct {
	Name     string `json:"name" validate:"required,min=1"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required,min=1"`
	Rank     int    `json:"rank" validate:"gte=0,lte=10"`
	Enabled  bool   `json:"enabled"`
}

// UpdateInput carries a partial mutation. Nil fields are left untouched; the
// password is re-hashed only when it is part of the mutation.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=1"`
	Rank     *int    `json:"rank" validate:"omitempty,gte=0,lte=10"`
	Enabled  *bool   `json:"enabled"`
}

// Service wraps actor lifecycle rules.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// Create validates the input, hashes the password and persists the actor.
func (s *Service) Create(ctx context.Context, input CreateInput) (*Actor, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, shared.Invalidf("%v", err)
	}
	hashed, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	actor := &Actor{
		Name:     input.Name,
		Email:    input.Email,
		Password: hashed,
		Rank:     input.Rank,
		Enabled:  input.Enabled,
	}
	id, err := s.repo.Create(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Update applies the non-nil fields of input to the stored actor. The stored
// hash is replaced only when the password field was part of the mutation;
// re-hashing an already-hashed value must never happen.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*Actor, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, shared.Invalidf("%v", err)
	}
	actor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		actor.Name = *input.Name
	}
	if input.Email != nil {
		actor.Email = *input.Email
	}
	if input.Password != nil {
		hashed, err := HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		actor.Password = hashed
	}
	if input.Rank != nil {
		actor.Rank = *input.Rank
	}
	if input.Enabled != nil {
		actor.Enabled = *input.Enabled
	}
	if err := s.repo.Update(ctx, actor); err != nil {
		return nil, err
	}
	return actor, nil
}

// Get fetches an actor by id.
func (s *Service) Get(ctx context.Context, id int64) (*Actor, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all actors.
func (s *Service) List(ctx context.Context) ([]Actor, error) {
	return s.repo.List(ctx)
}

// Delete removes an actor. Owned items are not cascaded here; cleanup of
// generated rows is the resource layer's concern.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
