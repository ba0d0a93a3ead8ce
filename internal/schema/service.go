package schema

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vulcan-api/vulcan-api/internal/shared"
)

// Service orchestrates descriptor persistence, table materialization and
// registry rebuilds. Materialization and cleanup are invoked directly by the
// write path so ordering and failure propagation stay explicit.
type Service struct {
	repo     Repository
	builder  *Builder
	registry *Registry
	notifier *Notifier
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, builder *Builder, registry *Registry, notifier *Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, builder: builder, registry: registry, notifier: notifier, logger: logger}
}

// CreateType validates and persists a descriptor; enabled types are
// materialized immediately and announced to other replicas.
func (s *Service) CreateType(ctx context.Context, def TypeDef) (*TypeDef, error) {
	if err := def.Validate(); err != nil {
		return nil, shared.Invalidf("%v", err)
	}
	id, err := s.repo.Create(ctx, &def)
	if err != nil {
		return nil, err
	}
	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored.Enabled {
		if err := s.builder.Materialize(ctx, *stored); err != nil && !errors.Is(err, ErrAlreadyMaterialized) {
			return nil, err
		}
		s.registry.Put(*stored)
	}
	s.announce(ctx)
	return stored, nil
}

// EnableType materializes a previously disabled type.
func (s *Service) EnableType(ctx context.Context, id int64) (*TypeDef, error) {
	def, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !def.Enabled {
		if err := s.repo.SetEnabled(ctx, id, true); err != nil {
			return nil, err
		}
		def.Enabled = true
	}
	if err := s.builder.Materialize(ctx, *def); err != nil && !errors.Is(err, ErrAlreadyMaterialized) {
		return nil, err
	}
	s.registry.Put(*def)
	s.announce(ctx)
	return def, nil
}

// DeleteType drops the backing table and removes the descriptor. The drop is
// refused while items exist, and runs before the descriptor delete so a
// failed drop leaves the type intact.
func (s *Service) DeleteType(ctx context.Context, id int64) error {
	def, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.builder.Drop(ctx, *def); err != nil {
		if errors.Is(err, ErrTypeNotEmpty) {
			return shared.Invalidf("%v", err)
		}
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.registry.Remove(def.Name)
	s.announce(ctx)
	return nil
}

// GetType fetches a descriptor by id.
func (s *Service) GetType(ctx context.Context, id int64) (*TypeDef, error) {
	return s.repo.GetByID(ctx, id)
}

// ListTypes returns every descriptor.
func (s *Service) ListTypes(ctx context.Context) ([]TypeDef, error) {
	return s.repo.LoadAll(ctx)
}

// ApplyBlueprint loads blueprint definitions into the store, skipping types
// that already exist.
func (s *Service) ApplyBlueprint(ctx context.Context, defs []TypeDef) error {
	for _, def := range defs {
		if _, err := s.repo.GetByName(ctx, def.Name); err == nil {
			continue
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if _, err := s.CreateType(ctx, def); err != nil {
			return err
		}
	}
	return nil
}

// Reload rebuilds the registry from the store.
func (s *Service) Reload(ctx context.Context) error {
	return s.registry.Load(ctx, s.repo)
}

// announce is best effort: a failed fanout only delays other replicas until
// the next change.
func (s *Service) announce(ctx context.Context) {
	if err := s.notifier.Publish(ctx); err != nil && s.logger != nil {
		s.logger.Warn("schema change fanout", slog.Any("error", err))
	}
}
