package model

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Call list lifecycle statuses. Transitions are one-way:
// ACTIVE -> COMPLETED -> ARCHIVED.
const (
	CallListStatusActive    = "ACTIVE"
	CallListStatusCompleted = "COMPLETED"
	CallListStatusArchived  = "ARCHIVED"
)

// Call list membership provenance.
const (
	CallListSourceFilter = "FILTER"
	CallListSourceManual = "MANUAL"
	CallListSourceImport = "IMPORT"
)

// Question types supported by the call script.
const (
	QuestionTypeText           = "text"
	QuestionTypeYesNo          = "yes_no"
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeNumber         = "number"
	QuestionTypeDate           = "date"
)

// KnownQuestionType reports whether t is one of the supported question types.
func KnownQuestionType(t string) bool {
	switch t {
	case QuestionTypeText, QuestionTypeYesNo, QuestionTypeMultipleChoice, QuestionTypeNumber, QuestionTypeDate:
		return true
	}
	return false
}

// Question is one typed entry of a call script. The type discriminant is
// explicit; options are only meaningful for multiple_choice questions.
type Question struct {
	ID       string   `json:"id" validate:"required"`
	Text     string   `json:"text" validate:"required"`
	Type     string   `json:"type" validate:"required,oneof=text yes_no multiple_choice number date"`
	Options  []string `json:"options,omitempty"`
	Required bool     `json:"required"`
	Order    int      `json:"order" validate:"gte=0"`
}

// CallList is a reusable script template: scope, scripted messages read
// verbatim to the contact, and an ordered question set. Questions and
// messages live in JSONB columns; they are only mutated while the list is
// ACTIVE.
type CallList struct {
	ID          string         `json:"id" gorm:"column:id;primaryKey"`
	WorkspaceID string         `json:"workspace_id" gorm:"column:workspace_id;index:idx_call_lists_workspace"`
	GroupID     *string        `json:"group_id,omitempty" gorm:"column:group_id;index"`
	Name        string         `json:"name" gorm:"column:name"`
	Description string         `json:"description,omitempty" gorm:"column:description"`
	Source      string         `json:"source" gorm:"column:source;default:MANUAL"`
	Messages    datatypes.JSON `json:"messages,omitempty" gorm:"type:jsonb;column:messages"`
	Questions   datatypes.JSON `json:"questions,omitempty" gorm:"type:jsonb;column:questions"`
	Status      string         `json:"status" gorm:"column:status;default:ACTIVE;index"`
	CompletedAt *time.Time     `json:"completed_at,omitempty" gorm:"column:completed_at"`
	CompletedBy *string        `json:"completed_by,omitempty" gorm:"column:completed_by"`
	CreatedAt   time.Time      `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (CallList) TableName() string {
	return "call_lists"
}

// IsActive reports whether script fields may still be mutated.
func (l *CallList) IsActive() bool {
	return l.Status == CallListStatusActive
}

// DecodeQuestions unmarshals the JSONB question set.
func (l *CallList) DecodeQuestions() ([]Question, error) {
	if len(l.Questions) == 0 {
		return nil, nil
	}
	var questions []Question
	if err := json.Unmarshal(l.Questions, &questions); err != nil {
		return nil, fmt.Errorf("decode call list questions: %w", err)
	}
	return questions, nil
}

// DecodeMessages unmarshals the JSONB scripted messages.
func (l *CallList) DecodeMessages() ([]string, error) {
	if len(l.Messages) == 0 {
		return nil, nil
	}
	var messages []string
	if err := json.Unmarshal(l.Messages, &messages); err != nil {
		return nil, fmt.Errorf("decode call list messages: %w", err)
	}
	return messages, nil
}

// EncodeQuestions marshals a question set into a JSONB column value.
func EncodeQuestions(questions []Question) (datatypes.JSON, error) {
	if questions == nil {
		questions = []Question{}
	}
	data, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}
	return datatypes.JSON(data), nil
}

// EncodeMessages marshals scripted messages into a JSONB column value.
func EncodeMessages(messages []string) (datatypes.JSON, error) {
	if messages == nil {
		messages = []string{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("encode messages: %w", err)
	}
	return datatypes.JSON(data), nil
}

// CallListStatusRank orders lifecycle statuses so one-way transitions can be
// checked with a comparison. Unknown statuses rank below ACTIVE.
func CallListStatusRank(status string) int {
	switch status {
	case CallListStatusActive:
		return 1
	case CallListStatusCompleted:
		return 2
	case CallListStatusArchived:
		return 3
	}
	return 0
}
