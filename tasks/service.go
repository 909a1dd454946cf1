// Package tasks implements task records scoped to their owner.
package tasks

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"taskboard/apperrors"
	"taskboard/models"
)

// MaxTitleLength bounds task titles, in characters.
const MaxTitleLength = 255

const defaultTimeout = 5 * time.Second

// Repository is the task query interface. Implementations filter every
// call by user id and report absent or foreign rows as KindNotFound.
type Repository interface {
	List(ctx context.Context, userID string) ([]models.Task, error)
	Get(ctx context.Context, userID, id string) (models.Task, error)
	Insert(ctx context.Context, t models.Task) error
	Update(ctx context.Context, t models.Task) error
	Delete(ctx context.Context, userID, id string) error
}

// Input holds the user editable fields of a task.
type Input struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Status         models.Status   `json:"status"`
	Priority       models.Priority `json:"priority"`
	EstimatedHours float64         `json:"estimated_hours"`
	ActualHours    float64         `json:"actual_hours"`
	DueDate        models.Date     `json:"due_date"`
}

// DefaultInput is what a blank task form starts with.
func DefaultInput(today time.Time) Input {
	return Input{
		Status:   models.StatusPlanning,
		Priority: models.PriorityMedium,
		DueDate:  models.NewDate(today),
	}
}

// InputOf returns the editable fields of t.
func InputOf(t models.Task) Input {
	return Input{
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		Priority:       t.Priority,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		DueDate:        t.DueDate,
	}
}

// Normalize trims text fields and fills empty enums with their defaults.
func (in Input) Normalize() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Status == "" {
		in.Status = models.StatusPlanning
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	return in
}

// Validate checks a normalized input.
func (in Input) Validate(op string) error {
	switch {
	case in.Title == "":
		return apperrors.Invalid(op, "title", "Title is required.")
	case utf8.RuneCountInString(in.Title) > MaxTitleLength:
		return apperrors.Invalid(op, "title", "Title must be at most 255 characters.")
	case !in.Status.Valid():
		return apperrors.Invalid(op, "status", "Status must be planning, in progress or completed.")
	case !in.Priority.Valid():
		return apperrors.Invalid(op, "priority", "Priority must be high, medium or low.")
	case !validHours(in.EstimatedHours):
		return apperrors.Invalid(op, "estimated_hours", "Estimated hours must be zero or more.")
	case !validHours(in.ActualHours):
		return apperrors.Invalid(op, "actual_hours", "Actual hours must be zero or more.")
	}
	return nil
}

func validHours(h float64) bool {
	return h >= 0 && !math.IsInf(h, 0) && !math.IsNaN(h)
}

// Service applies validation, ownership and timestamps on top of a
// Repository.
type Service struct {
	repo    Repository
	timeout time.Duration
	now     func() time.Time
	newID   func() string
}

func NewService(repo Repository, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{repo: repo, timeout: timeout, now: time.Now, newID: uuid.NewString}
}

func (s *Service) List(ctx context.Context, userID string) ([]models.Task, error) {
	if err := requireUser("tasks.List", userID); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.List(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id string) (models.Task, error) {
	const op = "tasks.Get"
	if err := requireUser(op, userID); err != nil {
		return models.Task{}, err
	}
	if strings.TrimSpace(id) == "" {
		return models.Task{}, apperrors.E(apperrors.KindNotFound, op, nil)
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (models.Task, error) {
	const op = "tasks.Create"
	if err := requireUser(op, userID); err != nil {
		return models.Task{}, err
	}
	in = in.Normalize()
	if err := in.Validate(op); err != nil {
		return models.Task{}, err
	}

	now := s.now().UTC()
	t := apply(models.Task{ID: s.newID(), UserID: userID, CreatedAt: now}, in)
	t.UpdatedAt = now

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.repo.Insert(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// Update rewrites an owned task. created_at is preserved.
func (s *Service) Update(ctx context.Context, userID, id string, in Input) (models.Task, error) {
	const op = "tasks.Update"
	if err := requireUser(op, userID); err != nil {
		return models.Task{}, err
	}
	in = in.Normalize()
	if err := in.Validate(op); err != nil {
		return models.Task{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return models.Task{}, err
	}
	t := apply(current, in)
	t.UpdatedAt = s.now().UTC()
	if err := s.repo.Update(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	const op = "tasks.Delete"
	if err := requireUser(op, userID); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.repo.Delete(ctx, userID, id)
}

func apply(t models.Task, in Input) models.Task {
	t.Title = in.Title
	t.Description = in.Description
	t.Status = in.Status
	t.Priority = in.Priority
	t.EstimatedHours = in.EstimatedHours
	t.ActualHours = in.ActualHours
	t.DueDate = in.DueDate
	return t
}

func requireUser(op, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.E(apperrors.KindSessionMissing, op, nil)
	}
	return nil
}
