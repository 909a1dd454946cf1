package firebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"taskboard/apperrors"
	"taskboard/models"
)

const tasksCollection = "tasks"

// TaskStore keeps tasks as documents of the top level "tasks" collection,
// keyed by task id.
type TaskStore struct {
	client *firestore.Client
}

func NewTaskStore(client *firestore.Client) *TaskStore {
	return &TaskStore{client: client}
}

type taskDoc struct {
	UserID         string    `firestore:"user_id"`
	Title          string    `firestore:"title"`
	Description    string    `firestore:"description"`
	Status         string    `firestore:"status"`
	Priority       string    `firestore:"priority"`
	EstimatedHours float64   `firestore:"estimated_hours"`
	ActualHours    float64   `firestore:"actual_hours"`
	DueDate        string    `firestore:"due_date"`
	CreatedAt      time.Time `firestore:"created_at"`
	UpdatedAt      time.Time `firestore:"updated_at"`
}

func toDoc(t models.Task) taskDoc {
	return taskDoc{
		UserID:         t.UserID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         string(t.Status),
		Priority:       string(t.Priority),
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		DueDate:        t.DueDate.String(),
		CreatedAt:      t.CreatedAt.UTC(),
		UpdatedAt:      t.UpdatedAt.UTC(),
	}
}

func fromDoc(id string, d taskDoc) (models.Task, error) {
	due, err := models.ParseDate(d.DueDate)
	if err != nil {
		return models.Task{}, fmt.Errorf("task %s: %w", id, err)
	}
	return models.Task{
		ID:             id,
		UserID:         d.UserID,
		Title:          d.Title,
		Description:    d.Description,
		Status:         models.Status(d.Status),
		Priority:       models.Priority(d.Priority),
		EstimatedHours: d.EstimatedHours,
		ActualHours:    d.ActualHours,
		DueDate:        due,
		CreatedAt:      d.CreatedAt.UTC(),
		UpdatedAt:      d.UpdatedAt.UTC(),
	}, nil
}

func decode(snap *firestore.DocumentSnapshot) (models.Task, error) {
	var d taskDoc
	if err := snap.DataTo(&d); err != nil {
		return models.Task{}, fmt.Errorf("decode task %s: %w", snap.Ref.ID, err)
	}
	return fromDoc(snap.Ref.ID, d)
}

func (s *TaskStore) List(ctx context.Context, userID string) ([]models.Task, error) {
	const op = "firestore.List"

	iter := s.client.Collection(tasksCollection).
		Where("user_id", "==", userID).
		OrderBy("created_at", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Desc).
		Documents(ctx)
	defer iter.Stop()

	tasks := []models.Task{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.E(apperrors.KindInternal, op, fmt.Errorf("iterate tasks: %w", err))
		}
		t, err := decode(snap)
		if err != nil {
			return nil, apperrors.E(apperrors.KindInternal, op, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *TaskStore) Get(ctx context.Context, userID, id string) (models.Task, error) {
	const op = "firestore.Get"

	snap, err := s.client.Collection(tasksCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return models.Task{}, apperrors.E(apperrors.KindNotFound, op, fmt.Errorf("task %s", id))
	}
	if err != nil {
		return models.Task{}, apperrors.E(apperrors.KindInternal, op, fmt.Errorf("get task: %w", err))
	}
	t, err := decode(snap)
	if err != nil {
		return models.Task{}, apperrors.E(apperrors.KindInternal, op, err)
	}
	if t.UserID != userID {
		return models.Task{}, apperrors.E(apperrors.KindNotFound, op, fmt.Errorf("task %s", id))
	}
	return t, nil
}

func (s *TaskStore) Insert(ctx context.Context, t models.Task) error {
	const op = "firestore.Insert"

	if _, err := s.client.Collection(tasksCollection).Doc(t.ID).Create(ctx, toDoc(t)); err != nil {
		return apperrors.E(apperrors.KindInternal, op, fmt.Errorf("create task: %w", err))
	}
	return nil
}

// Update replaces the task document after checking ownership inside a
// transaction. created_at is kept from the stored document.
func (s *TaskStore) Update(ctx context.Context, t models.Task) error {
	const op = "firestore.Update"
	return s.owned(ctx, op, t.UserID, t.ID, func(tx *firestore.Transaction, ref *firestore.DocumentRef, stored taskDoc) error {
		doc := toDoc(t)
		doc.CreatedAt = stored.CreatedAt
		return tx.Set(ref, doc)
	})
}

func (s *TaskStore) Delete(ctx context.Context, userID, id string) error {
	const op = "firestore.Delete"
	return s.owned(ctx, op, userID, id, func(tx *firestore.Transaction, ref *firestore.DocumentRef, _ taskDoc) error {
		return tx.Delete(ref)
	})
}

var errNotOwned = errors.New("task not owned by caller")

func (s *TaskStore) owned(ctx context.Context, op, userID, id string, fn func(*firestore.Transaction, *firestore.DocumentRef, taskDoc) error) error {
	ref := s.client.Collection(tasksCollection).Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var stored taskDoc
		if err := snap.DataTo(&stored); err != nil {
			return err
		}
		if stored.UserID != userID {
			return errNotOwned
		}
		return fn(tx, ref, stored)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errNotOwned), status.Code(err) == codes.NotFound:
		return apperrors.E(apperrors.KindNotFound, op, fmt.Errorf("task %s", id))
	default:
		return apperrors.E(apperrors.KindInternal, op, err)
	}
}
