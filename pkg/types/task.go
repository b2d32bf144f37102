package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ItemType is the kind of project-management item that emitted an event
type ItemType string

const (
	ItemTypeTask      ItemType = "task"
	ItemTypeUserStory ItemType = "userstory"
)

// Valid reports whether the item type is one the bridge synchronizes
func (t ItemType) Valid() bool {
	return t == ItemTypeTask || t == ItemTypeUserStory
}

// Event actions sent by the tracker webhook
const (
	EventActionCreate = "create"
	EventActionChange = "change"
)

// TaskEvent is a tracker webhook payload for a task or user story
type TaskEvent struct {
	Type   ItemType    `json:"type"`
	Action string      `json:"action"`
	Data   TaskData    `json:"data"`
	Change *TaskChange `json:"change,omitempty"`
}

// TaskData holds the fields of the item that changed
type TaskData struct {
	ID          int64  `json:"id"`
	Ref         Ref    `json:"ref"`
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

// TaskChange describes what changed on the item
type TaskChange struct {
	Diff TaskDiff `json:"diff"`
}

// TaskDiff holds the per-field diff of a change event
type TaskDiff struct {
	Status *StatusTransition `json:"status,omitempty"`
}

// StatusTransition is a from→to status change
type StatusTransition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// StatusTo returns the target status of the change, or "" when the event
// carries no status transition.
func (e *TaskEvent) StatusTo() string {
	if e.Change == nil || e.Change.Diff.Status == nil {
		return ""
	}
	return e.Change.Diff.Status.To
}

// Ref is the human-facing item reference. Taiga sends it as a number,
// other producers as a string.
type Ref string

// UnmarshalJSON accepts a JSON number, string or null
func (r *Ref) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("failed to decode ref: %w", err)
		}
		*r = Ref(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("failed to decode ref: %w", err)
	}
	*r = Ref(n.String())
	return nil
}

func (r Ref) String() string {
	return string(r)
}
