package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/enrichment"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/observer"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/script"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/storage"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/tenant"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/validator"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/utils"
)

// CompleteCallInput is the payload recording one call attempt.
type CompleteCallInput struct {
	Status           string                   `json:"status" validate:"required"`
	Answers          []script.SubmittedAnswer `json:"answers,omitempty"`
	Notes            string                   `json:"notes,omitempty"`
	CallerNote       string                   `json:"caller_note,omitempty"`
	CallDate         *time.Time               `json:"call_date,omitempty"`
	CallDuration     *int                     `json:"call_duration,omitempty" validate:"omitempty,gte=0"`
	FollowUpRequired bool                     `json:"follow_up_required,omitempty"`
	FollowUpDate     *time.Time               `json:"follow_up_date,omitempty"`
	FollowUpNote     string                   `json:"follow_up_note,omitempty"`
}

// UpdateCallLogInput is an operator correction. Identity and item linkage
// never change; only content fields are patchable.
type UpdateCallLogInput struct {
	Status       *string                   `json:"status,omitempty"`
	Answers      *[]script.SubmittedAnswer `json:"answers,omitempty"`
	Notes        *string                   `json:"notes,omitempty"`
	CallerNote   *string                   `json:"caller_note,omitempty"`
	CallDuration *int                      `json:"call_duration,omitempty"`
	FollowUpNote *string                   `json:"follow_up_note,omitempty"`
}

// CompleteCall records a call attempt against a queue item: it validates
// the answers against the list's script, then atomically inserts the log
// and moves the item to DONE. At most one log ever exists per item; the
// loser of a double-completion race gets ErrConflict and no write happens.
func (s *CallService) CompleteCall(ctx context.Context, actor tenant.Actor, itemID string, input CompleteCallInput) (*model.CallLog, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ActionCompleteCall, itemID); err != nil {
		return nil, err
	}

	log, err := s.completeItem(ctx, actor, itemID, input)
	if err != nil {
		outcome := "error"
		switch {
		case apperrors.IsValidationError(err):
			outcome = "validation_error"
		case apperrors.IsConflictError(err):
			outcome = "conflict"
		case apperrors.IsNotFoundError(err):
			outcome = "not_found"
		}
		observer.IncCallCompletion(actor.WorkspaceID, input.Status, outcome)
		return nil, err
	}
	observer.IncCallCompletion(actor.WorkspaceID, log.Status, "success")

	s.afterCompletion(ctx, actor, log, input)
	return log, nil
}

// completeItem is the synchronous core of CompleteCall: validate, build the
// log, run the transactional write.
func (s *CallService) completeItem(ctx context.Context, actor tenant.Actor, itemID string, input CompleteCallInput) (*model.CallLog, error) {
	if err := validator.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err)
	}
	if !model.KnownCallStatus(input.Status) {
		return nil, newValidationError("status", fmt.Sprintf("unknown call status %q", input.Status))
	}
	if input.FollowUpRequired && input.FollowUpDate == nil {
		return nil, newValidationError("follow_up_date", "follow_up_date is required when follow_up_required is set")
	}

	item, err := s.repo.GetItem(ctx, actor.WorkspaceID, itemID)
	if err != nil {
		return nil, err
	}
	if !model.CompletableItemState(item.State) {
		if item.State == model.ItemStateSkipped {
			return nil, fmt.Errorf("%w: item %s is SKIPPED and cannot be completed", apperrors.ErrInvalidTransition, itemID)
		}
		return nil, fmt.Errorf("%w: item %s is already completed", apperrors.ErrConflict, itemID)
	}

	list, err := s.repo.GetCallList(ctx, actor.WorkspaceID, item.CallListID)
	if err != nil {
		return nil, err
	}
	questions, err := list.DecodeQuestions()
	if err != nil {
		return nil, err
	}

	answers, fieldErrs := script.ValidateAnswers(questions, input.Answers, input.Status)
	if len(fieldErrs) > 0 {
		return nil, &AnswerValidationError{Fields: fieldErrs}
	}
	encodedAnswers, err := model.EncodeAnswers(answers)
	if err != nil {
		return nil, err
	}

	callDate := utils.Now()
	if input.CallDate != nil {
		callDate = input.CallDate.UTC()
	}

	log := &model.CallLog{
		ID:             uuid.NewString(),
		WorkspaceID:    actor.WorkspaceID,
		CallListItemID: item.ID,
		CallListID:     item.CallListID,
		StudentID:      item.StudentID,
		CallerID:       actor.MemberID,
		CallDate:       callDate,
		CallDuration:   input.CallDuration,
		Status:         input.Status,
		Answers:        encodedAnswers,
		Notes:          input.Notes,
		CallerNote:     input.CallerNote,
		FollowUpNote:   input.FollowUpNote,
		AIStatus:       model.AIStatusPending,
		CreatedAt:      utils.Now(),
		UpdatedAt:      utils.Now(),
	}

	if err := s.repo.CompleteItem(ctx, log); err != nil {
		return nil, err
	}
	return log, nil
}

// afterCompletion runs the post-commit side effects: the follow-up record
// and the enrichment dispatch. The log is already durable; failures here
// are logged, never surfaced to the caller.
func (s *CallService) afterCompletion(ctx context.Context, actor tenant.Actor, log *model.CallLog, input CompleteCallInput) {
	ctxLog := logger.FromContext(ctx)

	if input.FollowUpRequired && input.FollowUpDate != nil {
		followUp := &model.FollowUp{
			ID:          uuid.NewString(),
			WorkspaceID: actor.WorkspaceID,
			StudentID:   log.StudentID,
			CallListID:  &log.CallListID,
			CallLogID:   &log.ID,
			DueDate:     utils.DateOnly(*input.FollowUpDate),
			Note:        input.FollowUpNote,
			Status:      model.FollowUpStatusPending,
			CreatedAt:   utils.Now(),
			UpdatedAt:   utils.Now(),
		}
		if list, err := s.repo.GetCallList(ctx, actor.WorkspaceID, log.CallListID); err == nil {
			followUp.GroupID = list.GroupID
		}
		if err := s.repo.CreateFollowUp(ctx, followUp); err != nil {
			ctxLog.Error("Call log committed but follow-up creation failed",
				zap.String("call_log_id", log.ID),
				zap.Error(err))
		} else {
			ctxLog.Info("Scheduled follow-up from call log",
				zap.String("call_log_id", log.ID),
				zap.String("follow_up_id", followUp.ID),
				zap.Time("due_date", followUp.DueDate))
		}
	}

	if s.dispatcher != nil {
		if err := s.dispatcher.SubmitTask(enrichment.TaskData{Ctx: context.WithoutCancel(ctx), Log: *log}); err != nil {
			ctxLog.Warn("Enrichment dispatch submission failed",
				zap.String("call_log_id", log.ID),
				zap.Error(err))
		}
	}
}

// GetCallLog fetches one ledger entry.
func (s *CallService) GetCallLog(ctx context.Context, actor tenant.Actor, id string) (*model.CallLog, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.repo.GetCallLog(ctx, actor.WorkspaceID, id)
}

// ListCallLogs returns a ledger page.
func (s *CallService) ListCallLogs(ctx context.Context, actor tenant.Actor, filter storage.CallLogFilter) ([]model.CallLog, int64, error) {
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	return s.repo.ListCallLogs(ctx, actor.WorkspaceID, filter)
}

// UpdateCallLog applies an operator correction to an existing log. It never
// re-opens the owning item and never creates a second log; answers are
// revalidated against the list's current script.
func (s *CallService) UpdateCallLog(ctx context.Context, actor tenant.Actor, id string, input UpdateCallLogInput) (*model.CallLog, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ActionEditCallLog, id); err != nil {
		return nil, err
	}

	log, err := s.repo.GetCallLog(ctx, actor.WorkspaceID, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}

	status := log.Status
	if input.Status != nil {
		if !model.KnownCallStatus(*input.Status) {
			return nil, newValidationError("status", fmt.Sprintf("unknown call status %q", *input.Status))
		}
		status = *input.Status
		fields["status"] = status
	}
	if input.Answers != nil {
		list, listErr := s.repo.GetCallList(ctx, actor.WorkspaceID, log.CallListID)
		if listErr != nil {
			return nil, listErr
		}
		questions, decErr := list.DecodeQuestions()
		if decErr != nil {
			return nil, decErr
		}
		answers, fieldErrs := script.ValidateAnswers(questions, *input.Answers, status)
		if len(fieldErrs) > 0 {
			return nil, &AnswerValidationError{Fields: fieldErrs}
		}
		encoded, encErr := model.EncodeAnswers(answers)
		if encErr != nil {
			return nil, encErr
		}
		fields["answers"] = encoded
	} else if status != log.Status {
		// A status change alone can break the script rules: the stored
		// answers must still hold up under the new outcome, or a log with
		// no answers could be flipped to "completed".
		list, listErr := s.repo.GetCallList(ctx, actor.WorkspaceID, log.CallListID)
		if listErr != nil {
			return nil, listErr
		}
		questions, decErr := list.DecodeQuestions()
		if decErr != nil {
			return nil, decErr
		}
		stored, decErr := log.DecodeAnswers()
		if decErr != nil {
			return nil, decErr
		}
		submitted := make([]script.SubmittedAnswer, 0, len(stored))
		for _, answer := range stored {
			submitted = append(submitted, script.SubmittedAnswer{QuestionID: answer.QuestionID, Answer: answer.Answer})
		}
		if _, fieldErrs := script.ValidateAnswers(questions, submitted, status); len(fieldErrs) > 0 {
			return nil, &AnswerValidationError{Fields: fieldErrs}
		}
	}
	if input.Notes != nil {
		fields["notes"] = *input.Notes
	}
	if input.CallerNote != nil {
		fields["caller_note"] = *input.CallerNote
	}
	if input.CallDuration != nil {
		if *input.CallDuration < 0 {
			return nil, newValidationError("call_duration", "call_duration cannot be negative")
		}
		fields["call_duration"] = *input.CallDuration
	}
	if input.FollowUpNote != nil {
		fields["follow_up_note"] = *input.FollowUpNote
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateCallLogFields(ctx, actor.WorkspaceID, id, fields); err != nil {
			return nil, err
		}
	}
	return s.repo.GetCallLog(ctx, actor.WorkspaceID, id)
}
