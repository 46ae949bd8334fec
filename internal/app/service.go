package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// WikiService orchestrates registry lifecycle operations.
type WikiService struct {
	repo      domain.WikiRepository
	publisher domain.EventPublisher
	validator domain.TransitionValidator
	farms     FarmSet
}

// NewWikiService creates a service with the given adapters.
func NewWikiService(repo domain.WikiRepository, publisher domain.EventPublisher, validator domain.TransitionValidator, farms FarmSet) *WikiService {
	return &WikiService{
		repo:      repo,
		publisher: publisher,
		validator: validator,
		farms:     farms,
	}
}

// Create registers a new active wiki and publishes a creation event.
func (s *WikiService) Create(ctx context.Context, dbname, sitename, cluster, version string) (domain.Wiki, error) {
	farm, err := s.farms.ForWiki(dbname)
	if err != nil || dbname == domain.DefaultWiki {
		return domain.Wiki{}, &domain.UnknownFarmError{Name: dbname}
	}
	if version != "" && !farm.HasVersion(version) {
		return domain.Wiki{}, fmt.Errorf("%w: %s does not serve %q", domain.ErrUnknownVersion, farm.Name, version)
	}

	// Check dbname uniqueness before creating.
	if _, err := s.repo.Get(ctx, dbname); err == nil {
		return domain.Wiki{}, &domain.WikiExistsError{DBName: dbname}
	} else if !errors.Is(err, domain.ErrWikiNotFound) {
		return domain.Wiki{}, fmt.Errorf("checking wiki %s: %w", dbname, err)
	}

	wiki := domain.NewWiki(dbname, sitename, cluster, version)

	if err := s.repo.Create(ctx, wiki); err != nil {
		return domain.Wiki{}, fmt.Errorf("creating wiki: %w", err)
	}

	if err := s.publisher.Publish(ctx, domain.EventCreate, wiki); err != nil {
		return domain.Wiki{}, fmt.Errorf("publishing creation event: %w", err)
	}

	return wiki, nil
}

// Get returns a registered wiki by database name.
func (s *WikiService) Get(ctx context.Context, dbname string) (domain.Wiki, error) {
	return s.repo.Get(ctx, dbname)
}

// List returns wikis matching the given filter.
func (s *WikiService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Wiki, error) {
	return s.repo.List(ctx, filter)
}

// Events lists the lifecycle events a wiki accepts in its current state.
func (s *WikiService) Events(wiki domain.Wiki) []domain.Event {
	return s.validator.Available(wiki.Status)
}

// Transition applies a lifecycle event to a wiki, changing its state.
func (s *WikiService) Transition(ctx context.Context, dbname string, event domain.Event) (domain.Wiki, error) {
	wiki, err := s.repo.Get(ctx, dbname)
	if err != nil {
		return domain.Wiki{}, err
	}

	newStatus, err := s.validator.Apply(ctx, wiki.Status, event)
	if err != nil {
		return domain.Wiki{}, err
	}

	wiki.Status = newStatus
	wiki.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, wiki); err != nil {
		return domain.Wiki{}, fmt.Errorf("updating wiki: %w", err)
	}

	if err := s.publisher.Publish(ctx, event, wiki); err != nil {
		return domain.Wiki{}, fmt.Errorf("publishing event %q: %w", event, err)
	}

	return wiki, nil
}
