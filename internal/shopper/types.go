// Package shopper defines core types shared across subsystems.
package shopper

import "time"

// ActionType tags what kind of browsing action an Action represents.
type ActionType string

// Action type values persisted in the trace log.
const (
	ActionQueryGoal           ActionType = "QUERY_GOAL"
	ActionBackToSearchResults ActionType = "BACK_TO_SEARCH_RESULTS"
	ActionClickSearchResult   ActionType = "CLICK_SEARCH_RESULT"
	ActionClickRecommended    ActionType = "CLICK_RECOMMENDED"
	ActionBuyNow              ActionType = "BUY_NOW"
)

// Terminal reports whether choosing this action type ends a task.
func (t ActionType) Terminal() bool {
	return t == ActionBuyNow
}

// Action is an immutable candidate (or chosen) browsing step.
type Action struct {
	ID        string     `json:"id"`
	Type      ActionType `json:"type"`
	Context   string     `json:"context"`
	TargetURL string     `json:"target_url,omitempty"`
}

// TraceEntry is one durable row of a task's step log.
type TraceEntry struct {
	TaskID string `json:"task_id"`
	Step   int    `json:"step"`
	Action Action `json:"action"`
}

// PageType classifies a fetched page by its URL shape.
type PageType string

// Page type values.
const (
	PageSearchResults  PageType = "search_results"
	PageProductDetails PageType = "product_details"
)

// TaskStatus represents the lifecycle state of a shopper task.
type TaskStatus string

// Task status values persisted in the task store.
const (
	TaskStatusNotStarted TaskStatus = "not_started"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusFinished   TaskStatus = "finished"
)

// Task represents the metadata persisted for each dispatched browsing task.
type Task struct {
	ID        string     `json:"id"`
	AgentID   string     `json:"agent_id"`
	Goal      string     `json:"goal"`
	Seed      string     `json:"seed,omitempty"`
	Status    TaskStatus `json:"status"`
	ErrorText string     `json:"error_text,omitempty"`
	Submitted time.Time  `json:"submitted_at"`
}

// Profile describes the synthetic consumer a task browses as.
type Profile struct {
	Gender      string   `json:"gender"`
	AgeFrom     int      `json:"age_from"`
	AgeTo       int      `json:"age_to"`
	Location    string   `json:"location"`
	Interests   []string `json:"interests"`
	Description string   `json:"description,omitempty"`
}

// Agent binds a profile to a named synthetic shopper.
type Agent struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Profile Profile `json:"profile"`
}

// Decision is the input handed to the decision oracle for one step.
type Decision struct {
	Goal     string
	Frontier []Action
	History  []Action
	Profile  Profile
	MaxSteps int
}

// CompletionEvent is published when a task leaves the loop.
type CompletionEvent struct {
	TaskID  string     `json:"task_id"`
	AgentID string     `json:"agent_id"`
	Goal    string     `json:"goal"`
	Status  TaskStatus `json:"status"`
	Steps   int        `json:"steps"`
}
