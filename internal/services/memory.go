package services

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps todos in process memory. Everything is lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	todos  []Todo
	nextID int64
	now    func() time.Time
}

var _ TodoStore = (*MemoryStore)(nil)

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock replaces the wall clock used to stamp CreatedAt.
func WithClock(now func() time.Time) MemoryOption {
	return func(ms *MemoryStore) {
		ms.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	ms := &MemoryStore{
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

func (ms *MemoryStore) List(ctx context.Context, filter string) ([]Todo, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	matcher := NewMatcher(filter)
	if matcher.Blank() {
		todos := make([]Todo, len(ms.todos))
		copy(todos, ms.todos)
		return todos, nil
	}

	todos := make([]Todo, 0)
	for _, todo := range ms.todos {
		if matcher.Match(todo.Title) {
			todos = append(todos, todo)
		}
	}
	return todos, nil
}

func (ms *MemoryStore) Create(ctx context.Context, title string) (Todo, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	todo := Todo{
		ID:        ms.nextID,
		Title:     title,
		Completed: false,
		CreatedAt: ms.now(),
	}
	ms.nextID++
	ms.todos = append(ms.todos, todo)

	return todo, nil
}

func (ms *MemoryStore) FindOne(ctx context.Context, id int64) (Todo, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	i := ms.indexOf(id)
	if i < 0 {
		return Todo{}, ErrNotFound
	}
	return ms.todos[i], nil
}

func (ms *MemoryStore) ToggleCompleted(ctx context.Context, id int64) (Todo, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	i := ms.indexOf(id)
	if i < 0 {
		return Todo{}, ErrNotFound
	}
	ms.todos[i].Completed = !ms.todos[i].Completed
	return ms.todos[i], nil
}

// indexOf is a linear scan; callers must hold mu.
func (ms *MemoryStore) indexOf(id int64) int {
	for i := range ms.todos {
		if ms.todos[i].ID == id {
			return i
		}
	}
	return -1
}
