package model

import "time"

type ActionKind string

const (
	ActionTicket ActionKind = "ticket"
	ActionChart  ActionKind = "chart"
)

// ActionTask is the queue envelope for one user interaction.
type ActionTask struct {
	Kind       ActionKind       `json:"kind"`
	Event      InteractionEvent `json:"event"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
}

// InteractionEvent is the subset of a chat interaction callback the
// dispatcher needs.
type InteractionEvent struct {
	Token   string              `json:"token"`
	Type    string              `json:"type,omitempty"`
	Actions []InteractionAction `json:"actions"`
	Channel InteractionChannel  `json:"channel"`
}

type InteractionChannel struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type InteractionAction struct {
	ActionID       string             `json:"action_id,omitempty"`
	Type           string             `json:"type"`
	Value          string             `json:"value,omitempty"`
	Text           *InteractionText   `json:"text,omitempty"`
	SelectedOption *InteractionOption `json:"selected_option,omitempty"`
}

type InteractionText struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text"`
}

type InteractionOption struct {
	Text  InteractionText `json:"text"`
	Value string          `json:"value"`
}

// FirstAction returns actions[0], or nil when the event carries none.
func (e *InteractionEvent) FirstAction() *InteractionAction {
	if len(e.Actions) == 0 {
		return nil
	}
	return &e.Actions[0]
}
