package cycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotebook/internal/platform/logging"
)

// Action is a staged write against the mirror.
type Action interface {
	// Execute performs the action.
	Execute(ctx context.Context) error

	// Description names the action in logs and errors.
	Description() string
}

// AddAction stages an action for later execution.
func (c *Cycle) AddAction(action Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.committed {
		return ErrAlreadyCommitted
	}

	c.actions = append(c.actions, action)

	return nil
}

// Commit executes the staged actions in order, awaiting each before the
// next. The first failure stops the commit. Executed actions are not undone.
func (c *Cycle) Commit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.committed {
		return ErrAlreadyCommitted
	}

	c.committed = true
	logger := logging.FromContext(ctx)

	for i, action := range c.actions {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("commit interrupted before %q: %w", action.Description(), err)
		}

		logger.Log(ctx, logging.LevelTrace, "executing staged action",
			slog.String("action", action.Description()),
			slog.Int("index", i),
		)

		if err := action.Execute(ctx); err != nil {
			return fmt.Errorf("action %q failed: %w", action.Description(), err)
		}

		c.executed = i + 1
	}

	return nil
}

// Staged returns how many actions were added.
func (c *Cycle) Staged() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.actions)
}

// Executed returns how many actions completed successfully.
func (c *Cycle) Executed() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.executed
}
