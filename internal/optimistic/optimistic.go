// Package optimistic applies a local change before the remote call confirms it
// and reverts the change when the call fails or panics.
package optimistic

import (
	"context"
	"errors"
)

// Action describes one optimistic mutation.
type Action struct {
	// Apply mutates local state immediately.
	Apply func()
	// Commit performs the remote operation.
	Commit func(ctx context.Context) error
	// Rollback restores the state Apply replaced.
	Rollback func()
}

var errIncompleteAction = errors.New("optimistic action requires apply, commit and rollback")

// Do runs Apply then Commit. Rollback runs exactly once when Commit returns an
// error or panics; a panic is re-raised after the rollback.
func Do(ctx context.Context, action Action) (err error) {
	if action.Apply == nil || action.Commit == nil || action.Rollback == nil {
		return errIncompleteAction
	}

	action.Apply()

	committed := false
	defer func() {
		if committed {
			return
		}
		action.Rollback()
		if r := recover(); r != nil {
			panic(r)
		}
	}()

	if err := action.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}
