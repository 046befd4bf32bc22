package session

import (
	"context"

	"github.com/relaycode/relay/internal/event"
	"github.com/relaycode/relay/internal/storage"
	"github.com/relaycode/relay/pkg/types"
)

// GetTodos retrieves todos for a session. A session without todos reads as
// an empty list, not an error.
func GetTodos(ctx context.Context, store *storage.Storage, sessionID string) ([]types.TodoInfo, error) {
	var todos []types.TodoInfo
	err := store.Get(ctx, []string{"todo", sessionID}, &todos)
	switch {
	case err == storage.ErrNotFound:
		return []types.TodoInfo{}, nil
	case err != nil:
		return nil, err
	}
	return todos, nil
}

// UpdateTodos replaces a session's todo list and announces the change.
func UpdateTodos(ctx context.Context, store *storage.Storage, sessionID string, todos []types.TodoInfo) error {
	if err := store.Put(ctx, []string{"todo", sessionID}, todos); err != nil {
		return err
	}
	event.Publish(event.Event{
		Type: event.TodoUpdated,
		Data: event.TodoUpdatedData{
			SessionID: sessionID,
			Todos:     todos,
		},
	})
	return nil
}
