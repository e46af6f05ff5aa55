package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	todosCollection    = "todos"
	countersCollection = "counters"
)

// idCounter is the document that hands out sequential todo ids.
type idCounter struct {
	Next int64 `firestore:"next"`
}

// FirestoreService stores todos in Cloud Firestore. Ids stay sequential
// because the counter document is advanced in the same transaction as the
// insert.
type FirestoreService struct {
	client *firestore.Client
	now    func() time.Time
}

var _ TodoStore = (*FirestoreService)(nil)

func NewFirestoreService(ctx context.Context, projectID string) (*FirestoreService, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreService{
		client: client,
		now:    time.Now,
	}, nil
}

func (fs *FirestoreService) Close() error {
	return fs.client.Close()
}

func (fs *FirestoreService) todoRef(id int64) *firestore.DocumentRef {
	return fs.client.Collection(todosCollection).Doc(strconv.FormatInt(id, 10))
}

func (fs *FirestoreService) counterRef() *firestore.DocumentRef {
	return fs.client.Collection(countersCollection).Doc(todosCollection)
}

func (fs *FirestoreService) List(ctx context.Context, filter string) ([]Todo, error) {
	iter := fs.client.Collection(todosCollection).
		OrderBy("id", firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	// Firestore has no substring queries, so matching happens here.
	matcher := NewMatcher(filter)
	todos := []Todo{}
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate todos: %w", err)
		}

		var todo Todo
		if err := doc.DataTo(&todo); err != nil {
			return nil, fmt.Errorf("failed to unmarshal todo: %w", err)
		}

		if matcher.Match(todo.Title) {
			todos = append(todos, todo)
		}
	}

	return todos, nil
}

func (fs *FirestoreService) Create(ctx context.Context, title string) (Todo, error) {
	var todo Todo
	err := fs.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		counter := idCounter{Next: 1}
		snap, err := tx.Get(fs.counterRef())
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return fmt.Errorf("failed to read id counter: %w", err)
		default:
			if err := snap.DataTo(&counter); err != nil {
				return fmt.Errorf("failed to unmarshal id counter: %w", err)
			}
		}

		todo = Todo{
			ID:        counter.Next,
			Title:     title,
			Completed: false,
			// Firestore keeps microseconds; truncate so the reply matches what is stored.
			CreatedAt: fs.now().UTC().Truncate(time.Microsecond),
		}

		if err := tx.Set(fs.counterRef(), idCounter{Next: counter.Next + 1}); err != nil {
			return err
		}
		return tx.Create(fs.todoRef(todo.ID), todo)
	})
	if err != nil {
		return Todo{}, fmt.Errorf("failed to create todo: %w", err)
	}

	return todo, nil
}

func (fs *FirestoreService) FindOne(ctx context.Context, id int64) (Todo, error) {
	snap, err := fs.todoRef(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, fmt.Errorf("failed to get todo %d: %w", id, err)
	}

	var todo Todo
	if err := snap.DataTo(&todo); err != nil {
		return Todo{}, fmt.Errorf("failed to unmarshal todo: %w", err)
	}
	return todo, nil
}

func (fs *FirestoreService) ToggleCompleted(ctx context.Context, id int64) (Todo, error) {
	var todo Todo
	err := fs.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := fs.todoRef(id)
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := snap.DataTo(&todo); err != nil {
			return err
		}

		todo.Completed = !todo.Completed
		return tx.Update(ref, []firestore.Update{
			{Path: "completed", Value: todo.Completed},
		})
	})
	if errors.Is(err, ErrNotFound) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, fmt.Errorf("failed to toggle todo %d: %w", id, err)
	}

	return todo, nil
}
