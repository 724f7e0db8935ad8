package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/storage"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/tenant"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/validator"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/utils"
)

// CreateFollowUpInput creates an ad-hoc follow-up reminder. CallListID and
// CallLogID are optional links back to an originating engagement.
type CreateFollowUpInput struct {
	StudentID  string     `json:"student_id" validate:"required"`
	GroupID    *string    `json:"group_id,omitempty"`
	CallListID *string    `json:"call_list_id,omitempty"`
	CallLogID  *string    `json:"call_log_id,omitempty"`
	DueDate    *time.Time `json:"due_date" validate:"required"`
	Note       string     `json:"note,omitempty"`
}

// CompleteFollowUpInput records the follow-up call itself. ItemID pins the
// completion to an explicit queue entry; when empty the service resolves or
// creates one on the originating call list.
type CompleteFollowUpInput struct {
	ItemID string            `json:"item_id,omitempty"`
	Call   CompleteCallInput `json:"call"`
}

// CreateFollowUp records a dated reminder to call a student again.
func (s *CallService) CreateFollowUp(ctx context.Context, actor tenant.Actor, input CreateFollowUpInput) (*model.FollowUp, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	if err := validator.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err)
	}
	if input.CallListID != nil {
		if _, err := s.repo.GetCallList(ctx, actor.WorkspaceID, *input.CallListID); err != nil {
			return nil, err
		}
	}
	if input.CallLogID != nil {
		if _, err := s.repo.GetCallLog(ctx, actor.WorkspaceID, *input.CallLogID); err != nil {
			return nil, err
		}
	}

	followUp := &model.FollowUp{
		ID:          uuid.NewString(),
		WorkspaceID: actor.WorkspaceID,
		StudentID:   input.StudentID,
		GroupID:     input.GroupID,
		CallListID:  input.CallListID,
		CallLogID:   input.CallLogID,
		DueDate:     utils.DateOnly(*input.DueDate),
		Note:        input.Note,
		Status:      model.FollowUpStatusPending,
		CreatedAt:   utils.Now(),
		UpdatedAt:   utils.Now(),
	}
	if err := s.repo.CreateFollowUp(ctx, followUp); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Created follow-up",
		zap.String("follow_up_id", followUp.ID),
		zap.String("student_id", followUp.StudentID),
		zap.Time("due_date", followUp.DueDate))
	return followUp, nil
}

// GetFollowUp fetches one follow-up.
func (s *CallService) GetFollowUp(ctx context.Context, actor tenant.Actor, id string) (*model.FollowUp, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.repo.GetFollowUp(ctx, actor.WorkspaceID, id)
}

// ListFollowUps returns a follow-up page ordered by due date.
func (s *CallService) ListFollowUps(ctx context.Context, actor tenant.Actor, filter storage.FollowUpFilter) ([]model.FollowUp, int64, error) {
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	return s.repo.ListFollowUps(ctx, actor.WorkspaceID, filter)
}

// CancelFollowUp closes a pending follow-up without a call.
func (s *CallService) CancelFollowUp(ctx context.Context, actor tenant.Actor, id string) (*model.FollowUp, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	followUp, err := s.repo.GetFollowUp(ctx, actor.WorkspaceID, id)
	if err != nil {
		return nil, err
	}
	if !followUp.Open() {
		return nil, fmt.Errorf("%w: follow-up %s is %s", apperrors.ErrInvalidTransition, id, followUp.Status)
	}

	fields := map[string]interface{}{
		"status":       model.FollowUpStatusCancelled,
		"completed_at": utils.Now(),
		"completed_by": actor.MemberID,
	}
	if err := s.repo.UpdateFollowUpFields(ctx, actor.WorkspaceID, id, fields); err != nil {
		return nil, err
	}
	return s.repo.GetFollowUp(ctx, actor.WorkspaceID, id)
}

// GetCallContext resolves the prior-engagement bundle for a follow-up call:
// the originating list's script plus the student's most recent log on that
// list. A hand-created follow-up with no originating list yields a context
// with nil list and log; stale links that no longer resolve are tolerated
// the same way.
func (s *CallService) GetCallContext(ctx context.Context, actor tenant.Actor, followUpID string) (*model.CallContext, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	followUp, err := s.repo.GetFollowUp(ctx, actor.WorkspaceID, followUpID)
	if err != nil {
		return nil, err
	}

	callContext := &model.CallContext{FollowUp: followUp}
	if followUp.CallListID == nil {
		return callContext, nil
	}

	list, err := s.repo.GetCallList(ctx, actor.WorkspaceID, *followUp.CallListID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			logger.FromContext(ctx).Warn("Follow-up references a deleted call list",
				zap.String("follow_up_id", followUpID),
				zap.String("call_list_id", *followUp.CallListID))
			return callContext, nil
		}
		return nil, err
	}
	callContext.CallList = list

	if messages, decErr := list.DecodeMessages(); decErr == nil {
		callContext.Messages = messages
	} else {
		logger.FromContext(ctx).Warn("Call list messages column did not decode",
			zap.String("call_list_id", list.ID),
			zap.Error(decErr))
	}
	if questions, decErr := list.DecodeQuestions(); decErr == nil {
		callContext.Questions = questions
	} else {
		logger.FromContext(ctx).Warn("Call list questions column did not decode",
			zap.String("call_list_id", list.ID),
			zap.Error(decErr))
	}

	lastLog, err := s.repo.GetLatestCallLog(ctx, actor.WorkspaceID, list.ID, followUp.StudentID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			return callContext, nil
		}
		return nil, err
	}
	callContext.LastCallLog = lastLog
	return callContext, nil
}

// CompleteFollowUpCall records the follow-up call and closes the follow-up.
// The call itself goes through the regular completion path against a queue
// item: the one named in the input, the student's open item on the
// originating list, or a fresh item created on that list when none is open.
func (s *CallService) CompleteFollowUpCall(ctx context.Context, actor tenant.Actor, followUpID string, input CompleteFollowUpInput) (*model.CallLog, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	followUp, err := s.repo.GetFollowUp(ctx, actor.WorkspaceID, followUpID)
	if err != nil {
		return nil, err
	}
	if !followUp.Open() {
		return nil, fmt.Errorf("%w: follow-up %s is %s", apperrors.ErrConflict, followUpID, followUp.Status)
	}

	itemID := input.ItemID
	if itemID == "" {
		itemID, err = s.resolveFollowUpItem(ctx, actor, followUp)
		if err != nil {
			return nil, err
		}
	} else {
		// An explicit item must belong to the follow-up's student, and to
		// the originating list when the follow-up has one.
		item, getErr := s.repo.GetItem(ctx, actor.WorkspaceID, itemID)
		if getErr != nil {
			return nil, getErr
		}
		if item.StudentID != followUp.StudentID {
			return nil, newValidationError("item_id", fmt.Sprintf("item %s belongs to a different student than follow-up %s", itemID, followUpID))
		}
		if followUp.CallListID != nil && item.CallListID != *followUp.CallListID {
			return nil, newValidationError("item_id", fmt.Sprintf("item %s is not on the call list follow-up %s originated from", itemID, followUpID))
		}
	}

	log, err := s.CompleteCall(ctx, actor, itemID, input.Call)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{
		"status":       model.FollowUpStatusCompleted,
		"completed_at": utils.Now(),
		"completed_by": actor.MemberID,
	}
	if err := s.repo.UpdateFollowUpFields(ctx, actor.WorkspaceID, followUpID, fields); err != nil {
		logger.FromContext(ctx).Error("Follow-up call logged but follow-up close failed",
			zap.String("follow_up_id", followUpID),
			zap.String("call_log_id", log.ID),
			zap.Error(err))
	}
	return log, nil
}

// resolveFollowUpItem finds the student's open queue entry on the follow-up's
// originating list, creating a fresh one when the prior entry already closed.
func (s *CallService) resolveFollowUpItem(ctx context.Context, actor tenant.Actor, followUp *model.FollowUp) (string, error) {
	if followUp.CallListID == nil {
		return "", newValidationError("item_id", "item_id is required for a follow-up with no originating call list")
	}

	item, err := s.repo.FindOpenItemByListAndStudent(ctx, actor.WorkspaceID, *followUp.CallListID, followUp.StudentID)
	if err == nil {
		return item.ID, nil
	}
	if !apperrors.IsNotFoundError(err) {
		return "", err
	}

	now := utils.Now()
	fresh := &model.CallListItem{
		ID:          uuid.NewString(),
		WorkspaceID: actor.WorkspaceID,
		CallListID:  *followUp.CallListID,
		StudentID:   followUp.StudentID,
		State:       model.ItemStateQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	stats, err := s.repo.BulkCreateItems(ctx, actor.WorkspaceID, []*model.CallListItem{fresh})
	if err != nil {
		return "", err
	}
	if stats.Created == 0 {
		// Someone re-queued the student concurrently; pick up their row.
		item, err = s.repo.FindOpenItemByListAndStudent(ctx, actor.WorkspaceID, *followUp.CallListID, followUp.StudentID)
		if err != nil {
			return "", err
		}
		return item.ID, nil
	}

	logger.FromContext(ctx).Info("Created queue entry for follow-up call",
		zap.String("follow_up_id", followUp.ID),
		zap.String("item_id", fresh.ID))
	return fresh.ID, nil
}
