package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Call outcome statuses. Only "completed" means the contact was actually
// reached and the script was worked through.
const (
	CallStatusCompleted = "completed"
	CallStatusMissed    = "missed"
	CallStatusBusy      = "busy"
	CallStatusNoAnswer  = "no_answer"
	CallStatusVoicemail = "voicemail"
	CallStatusOther     = "other"
)

// KnownCallStatus reports whether s is one of the recognized call outcomes.
func KnownCallStatus(s string) bool {
	switch s {
	case CallStatusCompleted, CallStatusMissed, CallStatusBusy, CallStatusNoAnswer, CallStatusVoicemail, CallStatusOther:
		return true
	}
	return false
}

// ContactReached reports whether the outcome status implies the contact
// actually picked up. Script answer requirements only apply when it did.
func ContactReached(status string) bool {
	return status == CallStatusCompleted
}

// Enrichment processing states for the asynchronous AI summary pipeline.
const (
	AIStatusPending   = "PENDING"
	AIStatusProcessed = "PROCESSED"
	AIStatusFailed    = "FAILED"
	AIStatusSkipped   = "SKIPPED"
)

// Answer is one recorded response, denormalized with the question text as it
// read at call time so later script edits cannot rewrite history.
type Answer struct {
	QuestionID string      `json:"question_id"`
	Question   string      `json:"question"`
	Answer     interface{} `json:"answer"`
	AnswerType string      `json:"answer_type"`
}

// CallLog is the immutable-identity record of one call attempt against a
// queue item. Identity and linkage fields never change after insert; answers
// and note channels may be corrected afterwards.
type CallLog struct {
	ID             string         `json:"id" gorm:"column:id;primaryKey"`
	WorkspaceID    string         `json:"workspace_id" gorm:"column:workspace_id;index"`
	CallListItemID string         `json:"call_list_item_id" gorm:"column:call_list_item_id;uniqueIndex"`
	CallListID     string         `json:"call_list_id" gorm:"column:call_list_id;index:idx_call_logs_list_student,priority:1"`
	StudentID      string         `json:"student_id" gorm:"column:student_id;index:idx_call_logs_list_student,priority:2"`
	CallerID       string         `json:"caller_id" gorm:"column:caller_id;index"`
	CallDate       time.Time      `json:"call_date" gorm:"column:call_date;index"`
	CallDuration   *int           `json:"call_duration,omitempty" gorm:"column:call_duration"`
	Status         string         `json:"status" gorm:"column:status"`
	Answers        datatypes.JSON `json:"answers,omitempty" gorm:"type:jsonb;column:answers"`
	Notes          string         `json:"notes,omitempty" gorm:"column:notes"`
	CallerNote     string         `json:"caller_note,omitempty" gorm:"column:caller_note"`
	FollowUpNote   string         `json:"follow_up_note,omitempty" gorm:"column:follow_up_note"`
	SummaryNote    *string        `json:"summary_note,omitempty" gorm:"column:summary_note"`
	Sentiment      *string        `json:"sentiment,omitempty" gorm:"column:sentiment"`
	SentimentScore *float64       `json:"sentiment_score,omitempty" gorm:"column:sentiment_score"`
	AIStatus       string         `json:"ai_status,omitempty" gorm:"column:ai_status;default:PENDING"`
	AIProcessedAt  *time.Time     `json:"ai_processed_at,omitempty" gorm:"column:ai_processed_at"`
	CreatedAt      time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (CallLog) TableName() string {
	return "call_logs"
}

// DecodeAnswers unmarshals the JSONB answers column.
func (c *CallLog) DecodeAnswers() ([]Answer, error) {
	if len(c.Answers) == 0 {
		return nil, nil
	}
	var answers []Answer
	if err := json.Unmarshal(c.Answers, &answers); err != nil {
		return nil, fmt.Errorf("decode call log answers: %w", err)
	}
	return answers, nil
}

// EncodeAnswers marshals answers into a JSONB column value.
func EncodeAnswers(answers []Answer) (datatypes.JSON, error) {
	if answers == nil {
		answers = []Answer{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}
	return datatypes.JSON(data), nil
}
