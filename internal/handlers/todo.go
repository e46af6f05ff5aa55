package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/ytakahashi/todo-api/internal/services"
)

type TodoHandler struct {
	store services.TodoStore
}

func NewTodoHandler(store services.TodoStore) *TodoHandler {
	return &TodoHandler{
		store: store,
	}
}

// Register mounts the todo routes on g. The group is expected to carry the
// auth guard.
func (h *TodoHandler) Register(g *echo.Group) {
	g.GET("/todos", h.List)
	g.POST("/todos", h.Create)
	g.PATCH("/todos/:id", h.ToggleCompleted)
}

func (h *TodoHandler) List(c echo.Context) error {
	todos, err := h.store.List(c.Request().Context(), c.QueryParam("search"))
	if err != nil {
		return fmt.Errorf("list todos: %w", err)
	}
	return c.JSON(http.StatusOK, todos)
}

func (h *TodoHandler) Create(c echo.Context) error {
	var req CreateTodoRequest
	if err := c.Bind(&req); err != nil {
		return &ValidationError{Problems: []string{"title must be a string", "title should not be empty"}}
	}
	if err := ValidateCreateTodo(req); err != nil {
		return err
	}

	todo, err := h.store.Create(c.Request().Context(), req.Title)
	if err != nil {
		return fmt.Errorf("create todo: %w", err)
	}
	return c.JSON(http.StatusCreated, todo)
}

func (h *TodoHandler) ToggleCompleted(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Validation failed (numeric string is expected)")
	}

	todo, err := h.store.ToggleCompleted(c.Request().Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Todo with ID %d not found", id)).SetInternal(err)
	}
	if err != nil {
		return fmt.Errorf("toggle todo %d: %w", id, err)
	}
	return c.JSON(http.StatusOK, todo)
}
