package services

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newEmulatorService connects to the Firestore emulator under a fresh
// project id so every test starts with an empty database.
func newEmulatorService(t *testing.T) *FirestoreService {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	fs, err := NewFirestoreService(context.Background(), "todo-api-test-"+uuid.NewString()[:8])
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return fs
}

func TestFirestoreService_CreateAndList(t *testing.T) {
	fs := newEmulatorService(t)
	ctx := context.Background()

	milk, err := fs.Create(ctx, "Buy milk")
	require.NoError(t, err)
	assert.Equal(t, int64(1), milk.ID)
	assert.False(t, milk.Completed)

	dog, err := fs.Create(ctx, "Walk dog")
	require.NoError(t, err)
	assert.Equal(t, int64(2), dog.ID)

	todos, err := fs.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy milk", "Walk dog"}, titles(todos))

	todos, err = fs.List(ctx, "DOG")
	require.NoError(t, err)
	assert.Equal(t, []string{"Walk dog"}, titles(todos))
}

func TestFirestoreService_Toggle(t *testing.T) {
	fs := newEmulatorService(t)
	ctx := context.Background()

	_, err := fs.Create(ctx, "Task")
	require.NoError(t, err)

	todo, err := fs.ToggleCompleted(ctx, 1)
	require.NoError(t, err)
	assert.True(t, todo.Completed)

	todo, err = fs.ToggleCompleted(ctx, 1)
	require.NoError(t, err)
	assert.False(t, todo.Completed)

	_, err = fs.ToggleCompleted(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = fs.FindOne(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
