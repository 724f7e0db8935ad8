package model

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// NewQuestion creates a Question with default fake data.
func NewQuestion(overrideDefaults ...*Question) Question {
	base := Question{
		ID:       uuid.NewString(),
		Text:     gofakeit.Question(),
		Type:     gofakeit.RandomString([]string{QuestionTypeText, QuestionTypeYesNo, QuestionTypeNumber, QuestionTypeDate}),
		Required: gofakeit.Bool(),
		Order:    gofakeit.Number(0, 20),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.Text != "" {
			base.Text = ovr.Text
		}
		if ovr.Type != "" {
			base.Type = ovr.Type
		}
		if ovr.Options != nil {
			base.Options = ovr.Options
		}
		base.Required = ovr.Required
		if ovr.Order != 0 {
			base.Order = ovr.Order
		}
	}
	return base
}

// NewCallList creates a CallList with default fake data.
func NewCallList(overrideDefaults ...*CallList) *CallList {
	questions, _ := EncodeQuestions([]Question{
		NewQuestion(&Question{Type: QuestionTypeYesNo, Required: true, Order: 0}),
		NewQuestion(&Question{Type: QuestionTypeText, Order: 1}),
	})
	messages, _ := EncodeMessages([]string{gofakeit.Sentence(8)})

	base := &CallList{
		ID:          uuid.NewString(),
		WorkspaceID: "ws_" + gofakeit.LetterN(10),
		Name:        gofakeit.BuzzWord() + " outreach",
		Description: gofakeit.Sentence(6),
		Source:      CallListSourceManual,
		Messages:    messages,
		Questions:   questions,
		Status:      CallListStatusActive,
		CreatedAt:   utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt:   utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.WorkspaceID != "" {
			base.WorkspaceID = ovr.WorkspaceID
		}
		if ovr.GroupID != nil {
			base.GroupID = ovr.GroupID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.Description != "" {
			base.Description = ovr.Description
		}
		if ovr.Source != "" {
			base.Source = ovr.Source
		}
		if ovr.Messages != nil {
			base.Messages = ovr.Messages
		}
		if ovr.Questions != nil {
			base.Questions = ovr.Questions
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.CompletedAt != nil {
			base.CompletedAt = ovr.CompletedAt
		}
		if ovr.CompletedBy != nil {
			base.CompletedBy = ovr.CompletedBy
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}

// NewCallListItem creates a CallListItem with default fake data.
func NewCallListItem(overrideDefaults ...*CallListItem) *CallListItem {
	base := &CallListItem{
		ID:          uuid.NewString(),
		WorkspaceID: "ws_" + gofakeit.LetterN(10),
		CallListID:  uuid.NewString(),
		StudentID:   uuid.NewString(),
		State:       ItemStateQueued,
		Priority:    gofakeit.Number(0, 100),
		CreatedAt:   utils.Now().Add(-time.Duration(gofakeit.Number(1, 48)) * time.Hour),
		UpdatedAt:   utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.WorkspaceID != "" {
			base.WorkspaceID = ovr.WorkspaceID
		}
		if ovr.CallListID != "" {
			base.CallListID = ovr.CallListID
		}
		if ovr.StudentID != "" {
			base.StudentID = ovr.StudentID
		}
		if ovr.AssignedTo != nil {
			base.AssignedTo = ovr.AssignedTo
		}
		if ovr.CallLogID != nil {
			base.CallLogID = ovr.CallLogID
		}
		if ovr.State != "" {
			base.State = ovr.State
		}
		if ovr.Priority != 0 {
			base.Priority = ovr.Priority
		}
		if ovr.Custom != nil {
			base.Custom = ovr.Custom
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}

// NewCallLog creates a CallLog with default fake data.
func NewCallLog(overrideDefaults ...*CallLog) *CallLog {
	answers, _ := EncodeAnswers([]Answer{
		{
			QuestionID: uuid.NewString(),
			Question:   gofakeit.Question(),
			Answer:     gofakeit.RandomString([]string{"yes", "no"}),
			AnswerType: QuestionTypeYesNo,
		},
	})
	duration := gofakeit.Number(30, 600)

	base := &CallLog{
		ID:             uuid.NewString(),
		WorkspaceID:    "ws_" + gofakeit.LetterN(10),
		CallListItemID: uuid.NewString(),
		CallListID:     uuid.NewString(),
		StudentID:      uuid.NewString(),
		CallerID:       uuid.NewString(),
		CallDate:       utils.Now().Add(-time.Duration(gofakeit.Number(1, 24)) * time.Hour),
		CallDuration:   &duration,
		Status:         CallStatusCompleted,
		Answers:        answers,
		Notes:          gofakeit.Sentence(10),
		AIStatus:       AIStatusPending,
		CreatedAt:      utils.Now(),
		UpdatedAt:      utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.WorkspaceID != "" {
			base.WorkspaceID = ovr.WorkspaceID
		}
		if ovr.CallListItemID != "" {
			base.CallListItemID = ovr.CallListItemID
		}
		if ovr.CallListID != "" {
			base.CallListID = ovr.CallListID
		}
		if ovr.StudentID != "" {
			base.StudentID = ovr.StudentID
		}
		if ovr.CallerID != "" {
			base.CallerID = ovr.CallerID
		}
		if !ovr.CallDate.IsZero() {
			base.CallDate = ovr.CallDate
		}
		if ovr.CallDuration != nil {
			base.CallDuration = ovr.CallDuration
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.Answers != nil {
			base.Answers = ovr.Answers
		}
		if ovr.Notes != "" {
			base.Notes = ovr.Notes
		}
		if ovr.CallerNote != "" {
			base.CallerNote = ovr.CallerNote
		}
		if ovr.FollowUpNote != "" {
			base.FollowUpNote = ovr.FollowUpNote
		}
		if ovr.SummaryNote != nil {
			base.SummaryNote = ovr.SummaryNote
		}
		if ovr.Sentiment != nil {
			base.Sentiment = ovr.Sentiment
		}
		if ovr.SentimentScore != nil {
			base.SentimentScore = ovr.SentimentScore
		}
		if ovr.AIStatus != "" {
			base.AIStatus = ovr.AIStatus
		}
		if ovr.AIProcessedAt != nil {
			base.AIProcessedAt = ovr.AIProcessedAt
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}

// NewFollowUp creates a FollowUp with default fake data.
func NewFollowUp(overrideDefaults ...*FollowUp) *FollowUp {
	base := &FollowUp{
		ID:          uuid.NewString(),
		WorkspaceID: "ws_" + gofakeit.LetterN(10),
		StudentID:   uuid.NewString(),
		DueDate:     utils.DateOnly(utils.Now().Add(72 * time.Hour)),
		Note:        gofakeit.Sentence(8),
		Status:      FollowUpStatusPending,
		CreatedAt:   utils.Now(),
		UpdatedAt:   utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != "" {
			base.ID = ovr.ID
		}
		if ovr.WorkspaceID != "" {
			base.WorkspaceID = ovr.WorkspaceID
		}
		if ovr.StudentID != "" {
			base.StudentID = ovr.StudentID
		}
		if ovr.GroupID != nil {
			base.GroupID = ovr.GroupID
		}
		if ovr.CallListID != nil {
			base.CallListID = ovr.CallListID
		}
		if ovr.CallLogID != nil {
			base.CallLogID = ovr.CallLogID
		}
		if !ovr.DueDate.IsZero() {
			base.DueDate = ovr.DueDate
		}
		if ovr.Note != "" {
			base.Note = ovr.Note
		}
		if ovr.Status != "" {
			base.Status = ovr.Status
		}
		if ovr.CompletedAt != nil {
			base.CompletedAt = ovr.CompletedAt
		}
		if ovr.CompletedBy != nil {
			base.CompletedBy = ovr.CompletedBy
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}
