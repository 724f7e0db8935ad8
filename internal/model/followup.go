package model

import "time"

// Follow-up lifecycle statuses.
const (
	FollowUpStatusPending   = "PENDING"
	FollowUpStatusCompleted = "COMPLETED"
	FollowUpStatusCancelled = "CANCELLED"
)

// FollowUp is a dated reminder to call a student again. When it was spawned
// by an earlier call, call_list_id and call_log_id point back at the
// originating engagement so the next caller can pull its context.
type FollowUp struct {
	ID          string     `json:"id" gorm:"column:id;primaryKey"`
	WorkspaceID string     `json:"workspace_id" gorm:"column:workspace_id;index"`
	StudentID   string     `json:"student_id" gorm:"column:student_id;index:idx_follow_ups_student_due,priority:1"`
	GroupID     *string    `json:"group_id,omitempty" gorm:"column:group_id;index"`
	CallListID  *string    `json:"call_list_id,omitempty" gorm:"column:call_list_id;index"`
	CallLogID   *string    `json:"call_log_id,omitempty" gorm:"column:call_log_id"`
	DueDate     time.Time  `json:"due_date" gorm:"column:due_date;index:idx_follow_ups_student_due,priority:2"`
	Note        string     `json:"note,omitempty" gorm:"column:note"`
	Status      string     `json:"status" gorm:"column:status;default:PENDING;index"`
	CompletedAt *time.Time `json:"completed_at,omitempty" gorm:"column:completed_at"`
	CompletedBy *string    `json:"completed_by,omitempty" gorm:"column:completed_by"`
	CreatedAt   time.Time  `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (FollowUp) TableName() string {
	return "follow_ups"
}

// Open reports whether the follow-up still needs action.
func (f *FollowUp) Open() bool {
	return f.Status == FollowUpStatusPending
}

// CallContext is the prior-engagement bundle handed to a caller before a
// follow-up call. Every pointer may be nil: a follow-up created by hand has
// no originating list or log.
type CallContext struct {
	FollowUp    *FollowUp  `json:"follow_up"`
	CallList    *CallList  `json:"call_list,omitempty"`
	LastCallLog *CallLog   `json:"last_call_log,omitempty"`
	Messages    []string   `json:"messages,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
}
