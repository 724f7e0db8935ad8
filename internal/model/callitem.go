package model

import (
	"time"

	"gorm.io/datatypes"
)

// Queue item states. DONE and SKIPPED are terminal.
const (
	ItemStateQueued  = "QUEUED"
	ItemStateCalling = "CALLING"
	ItemStateDone    = "DONE"
	ItemStateSkipped = "SKIPPED"
)

// itemTransitions declares the legal state-machine edges. Completion
// (-> DONE) is not listed here: it only happens through the call log
// completion path, which also sets call_log_id in the same unit of work.
var itemTransitions = map[string]map[string]bool{
	ItemStateQueued: {
		ItemStateCalling: true, // claim / start call
		ItemStateSkipped: true, // skip
	},
	ItemStateCalling: {
		ItemStateQueued: true, // abandon, re-queue without a log
	},
}

// CanTransitionItem reports whether from -> to is a declared edge of the
// queue state machine (excluding completion).
func CanTransitionItem(from, to string) bool {
	return itemTransitions[from][to]
}

// TerminalItemState reports whether state admits no further transitions.
func TerminalItemState(state string) bool {
	return state == ItemStateDone || state == ItemStateSkipped
}

// CompletableItemState reports whether an item in this state may still be
// completed with a call log.
func CompletableItemState(state string) bool {
	return state == ItemStateQueued || state == ItemStateCalling
}

// CallListItem is one queue entry: a student to be called for a given call
// list. call_log_id is set exactly once, on completion, and its presence is
// equivalent to state == DONE.
//
// The pair index is unique only over open states: at most one QUEUED or
// CALLING item may exist per (call list, student), while completed history
// can accumulate several DONE items for the same pair, one per call log.
// Follow-up calls depend on that.
type CallListItem struct {
	ID          string         `json:"id" gorm:"column:id;primaryKey"`
	WorkspaceID string         `json:"workspace_id" gorm:"column:workspace_id;index"`
	CallListID  string         `json:"call_list_id" gorm:"column:call_list_id;index:idx_call_list_items_open_pair,unique,where:state = 'QUEUED' OR state = 'CALLING',priority:1"`
	StudentID   string         `json:"student_id" gorm:"column:student_id;index:idx_call_list_items_open_pair,unique,where:state = 'QUEUED' OR state = 'CALLING',priority:2"`
	AssignedTo  *string        `json:"assigned_to,omitempty" gorm:"column:assigned_to;index"`
	CallLogID   *string        `json:"call_log_id,omitempty" gorm:"column:call_log_id;uniqueIndex"`
	State       string         `json:"state" gorm:"column:state;default:QUEUED;index"`
	Priority    int            `json:"priority" gorm:"column:priority;default:0"`
	Custom      datatypes.JSON `json:"custom,omitempty" gorm:"type:jsonb;column:custom"`
	CreatedAt   time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (CallListItem) TableName() string {
	return "call_list_items"
}

// ItemStats summarizes a bulk queue operation. Duplicates and lost races are
// reported here, never as hard failures.
type ItemStats struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
	Updated int `json:"updated"`
}
