package services

import (
	"context"
	"fmt"
	"log/slog"

	"garage/internal/core"
)

// ProjectService validates and writes projects.
type ProjectService struct {
	store ProjectStore
	cache Invalidator
}

func NewProjectService(st ProjectStore, cache Invalidator) *ProjectService {
	if cache == nil {
		cache = noopInvalidator{}
	}
	return &ProjectService{store: st, cache: cache}
}

func (s *ProjectService) Create(ctx context.Context, userID string, p core.Project) (core.Project, error) {
	p.UserID = userID
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	created, err := s.store.CreateProject(ctx, p)
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}
	s.cache.Invalidate(userID)
	slog.InfoContext(ctx, "Project created", "id", created.ID, "type", created.Type)
	return created, nil
}

// Update replaces the editable fields of a project. Reminder dates and notes
// have their own operations and are carried over from the stored record when
// the project stays a car rebuild.
func (s *ProjectService) Update(ctx context.Context, userID string, p core.Project) (core.Project, error) {
	cur, err := s.store.GetProject(ctx, userID, p.ID)
	if err != nil {
		return core.Project{}, fmt.Errorf("get project: %w", err)
	}
	p.UserID = cur.UserID
	p.CreatedAt = cur.CreatedAt
	p = p.Normalize()
	if p.Car != nil && cur.Car != nil {
		p.Car.InsuranceDate = cur.Car.InsuranceDate
		p.Car.TechnicalCheckDate = cur.Car.TechnicalCheckDate
		p.Car.VignetteDate = cur.Car.VignetteDate
		p.Car.Notes = cur.Car.Notes
	}
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	return s.save(ctx, p)
}

// UpdateReminders sets the three reminder dates. Zero dates clear them.
func (s *ProjectService) UpdateReminders(ctx context.Context, userID string, id int64, insurance, technicalCheck, vignette core.Date) (core.Project, error) {
	p, err := s.carProject(ctx, userID, id)
	if err != nil {
		return core.Project{}, err
	}
	p.Car.InsuranceDate = insurance
	p.Car.TechnicalCheckDate = technicalCheck
	p.Car.VignetteDate = vignette
	return s.save(ctx, p)
}

func (s *ProjectService) UpdateNotes(ctx context.Context, userID string, id int64, notes string) (core.Project, error) {
	p, err := s.carProject(ctx, userID, id)
	if err != nil {
		return core.Project{}, err
	}
	p.Car.Notes = notes
	return s.save(ctx, p)
}

// Delete soft-deletes the project; it disappears from every read.
func (s *ProjectService) Delete(ctx context.Context, userID string, id int64) error {
	if err := s.store.DeleteProject(ctx, userID, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	s.cache.Invalidate(userID)
	slog.InfoContext(ctx, "Project deleted", "id", id)
	return nil
}

func (s *ProjectService) carProject(ctx context.Context, userID string, id int64) (core.Project, error) {
	p, err := s.store.GetProject(ctx, userID, id)
	if err != nil {
		return core.Project{}, fmt.Errorf("get project: %w", err)
	}
	if !p.IsCar() {
		return core.Project{}, ErrNotCar
	}
	return p, nil
}

func (s *ProjectService) save(ctx context.Context, p core.Project) (core.Project, error) {
	updated, err := s.store.UpdateProject(ctx, p)
	if err != nil {
		return core.Project{}, fmt.Errorf("update project: %w", err)
	}
	s.cache.Invalidate(p.UserID)
	return updated, nil
}
