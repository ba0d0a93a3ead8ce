package permissions

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// RuleInput carries the fields for creating or replacing a rule.
type RuleInput struct {
	UserID    *int64 `json:"user" validate:"omitempty,gt=0"`
	Rank      *int   `json:"rank" validate:"omitempty,gte=0,lte=10"`
	ItemID    *int64 `json:"item_id" validate:"omitempty,gt=0"`
	Model     string `json:"model" validate:"required,min=1"`
	Level     int    `json:"level" validate:"gte=0"`
	Read      *int   `json:"read" validate:"omitempty,gte=0,lte=10"`
	Edit      *int   `json:"edit" validate:"omitempty,gte=0,lte=10"`
	Eliminate *int   `json:"eliminate" validate:"omitempty,gte=0,lte=10"`
}

// Service wraps rule validation over the store.
type Service struct {
	repo     Repository
	validate *validator.Validate
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// checkInput enforces the structural constraints the rule table does not:
// exactly one of user and rank must be set, and the rule must speak to at
// least one action.
func (s *Service) checkInput(input RuleInput) error {
	if err := s.validate.Struct(input); err != nil {
		return shared.Invalidf("%v", err)
	}
	if (input.UserID == nil) == (input.Rank == nil) {
		return shared.Invalidf("a rule must target exactly one of user and rank")
	}
	if input.Read == nil && input.Edit == nil && input.Eliminate == nil {
		return shared.Invalidf("a rule must set at least one of read, edit and eliminate")
	}
	return nil
}

func ruleFromInput(input RuleInput) *Rule {
	return &Rule{
		UserID:    input.UserID,
		Rank:      input.Rank,
		ItemID:    input.ItemID,
		Model:     input.Model,
		Level:     input.Level,
		Read:      input.Read,
		Edit:      input.Edit,
		Eliminate: input.Eliminate,
	}
}

// Create validates and persists a new rule.
func (s *Service) Create(ctx context.Context, input RuleInput) (*Rule, error) {
	if err := s.checkInput(input); err != nil {
		return nil, err
	}
	rule := ruleFromInput(input)
	id, err := s.repo.Create(ctx, rule)
	if err != nil {
		return nil, err
	}
	rule.ID = id
	return rule, nil
}

// Update validates and replaces an existing rule.
func (s *Service) Update(ctx context.Context, id int64, input RuleInput) (*Rule, error) {
	if err := s.checkInput(input); err != nil {
		return nil, err
	}
	rule := ruleFromInput(input)
	rule.ID = id
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// Get fetches a rule by id.
func (s *Service) Get(ctx context.Context, id int64) (*Rule, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all rules.
func (s *Service) List(ctx context.Context) ([]Rule, error) {
	return s.repo.List(ctx)
}

// Delete removes a rule by id.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
