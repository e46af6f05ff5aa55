package handlers

import (
	"strings"
)

// ValidationError lists every problem found with a request body.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

// CreateTodoRequest is the body of POST /todos.
type CreateTodoRequest struct {
	Title string `json:"title"`
}

// ValidateCreateTodo rejects a missing or blank title.
func ValidateCreateTodo(req CreateTodoRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return &ValidationError{Problems: []string{"title should not be empty"}}
	}
	return nil
}
