package registry

import (
	"errors"
	"fmt"

	"github.com/intelworks/tool-runtime-manager/internal/types"
)

var (
	// ErrToolNotFound is returned when an operation names an unknown tool.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolExists is returned when registering a duplicate tool name.
	ErrToolExists = errors.New("tool already registered")

	// ErrToolInError is returned when a requested transition is not
	// permitted while the tool is in the error state. Only the recovery
	// sweep (or a manual disable) may move a tool out of error.
	ErrToolInError = errors.New("tool is in error state")

	// ErrLockTimeout is returned when a caller's bounded wait for the
	// registry write lock expires.
	ErrLockTimeout = errors.New("timed out waiting for registry lock")
)

// DependencyUnmetError reports an enable attempt on a tool whose
// dependencies are not all enabled. Recoverable: enable the missing
// dependencies first, or let a later auto-scaler tick retry.
type DependencyUnmetError struct {
	Tool    string
	Missing []string
}

func (e *DependencyUnmetError) Error() string {
	return fmt.Sprintf("tool %q has unmet dependencies %v", e.Tool, e.Missing)
}

// InvalidTransitionError reports a lifecycle transition that the state
// machine does not permit.
type InvalidTransitionError struct {
	Tool string
	From types.LifecycleState
	To   types.LifecycleState
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("tool %q cannot transition from %s to %s", e.Tool, e.From, e.To)
}
