package services

import (
	"context"
	"errors"
	"strings"

	"github.com/ytakahashi/todo-api/internal/models"
	"golang.org/x/text/cases"
)

type Todo = models.Todo

// ErrNotFound is returned when no todo has the requested id.
var ErrNotFound = errors.New("todo not found")

// TodoStore is the authoritative collection of todos. Implementations hand
// out copies; callers never hold a reference into the store's own state.
type TodoStore interface {
	List(ctx context.Context, filter string) ([]Todo, error)
	Create(ctx context.Context, title string) (Todo, error)
	FindOne(ctx context.Context, id int64) (Todo, error)
	ToggleCompleted(ctx context.Context, id int64) (Todo, error)
}

// Matcher reports whether a title contains a search term, ignoring case.
// A blank term matches everything.
type Matcher struct {
	term string
}

// NewMatcher folds the trimmed search term once so it can be reused across
// a whole listing.
func NewMatcher(search string) Matcher {
	term := strings.TrimSpace(search)
	if term == "" {
		return Matcher{}
	}
	return Matcher{term: cases.Fold().String(term)}
}

// Blank reports whether the matcher accepts every title.
func (m Matcher) Blank() bool {
	return m.term == ""
}

func (m Matcher) Match(title string) bool {
	if m.term == "" {
		return true
	}
	return strings.Contains(cases.Fold().String(title), m.term)
}
