// Package protocol owns the text contract between the assistant and the
// language model: the action descriptors the model embeds in its replies
// and the sanitization that keeps them away from the user.
package protocol

import (
	"errors"
	"fmt"
)

// Action names a structured operation the model may request.
type Action string

const (
	ActionCreateTask   Action = "create_task"
	ActionCompleteTask Action = "complete_task"
	ActionUpdateTask   Action = "update_task"
	ActionDeleteTask   Action = "delete_task"
	ActionSearchTasks  Action = "search_tasks"
)

// AllActions is the closed set of actions the assistant will ever run.
var AllActions = []Action{
	ActionCreateTask,
	ActionCompleteTask,
	ActionUpdateTask,
	ActionDeleteTask,
	ActionSearchTasks,
}

// ErrUnknownAction is returned for descriptors whose action is outside AllActions.
var ErrUnknownAction = errors.New("unknown action")

// Valid reports whether a is a member of the closed action set.
func (a Action) Valid() bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}

// Mutating reports whether running a changes stored state.
func (a Action) Mutating() bool {
	return a.Valid() && a != ActionSearchTasks
}

// ActionDescriptor is a structured request extracted from model text.
type ActionDescriptor struct {
	Action  Action         `json:"action"`
	Details map[string]any `json:"details"`
}

// Validate rejects descriptors outside the closed action set.
func (d ActionDescriptor) Validate() error {
	if !d.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownAction, string(d.Action))
	}
	return nil
}

// Clone returns a copy whose Details map can be modified independently.
func (d ActionDescriptor) Clone() ActionDescriptor {
	details := make(map[string]any, len(d.Details))
	for k, v := range d.Details {
		details[k] = v
	}
	return ActionDescriptor{Action: d.Action, Details: details}
}
