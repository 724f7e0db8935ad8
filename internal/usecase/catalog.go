package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/script"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/storage"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/tenant"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/utils"
)

// CreateCallListInput is the payload for catalog creation.
type CreateCallListInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	GroupID     *string          `json:"group_id,omitempty"`
	Source      string           `json:"source,omitempty"`
	Messages    []string         `json:"messages,omitempty"`
	Questions   []model.Question `json:"questions,omitempty"`
}

// UpdateCallListInput is a partial catalog patch. Nil pointers leave the
// field untouched.
type UpdateCallListInput struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Messages    *[]string         `json:"messages,omitempty"`
	Questions   *[]model.Question `json:"questions,omitempty"`
	Status      *string           `json:"status,omitempty"`
}

func (in *UpdateCallListInput) touchesScript() bool {
	return in.Name != nil || in.Messages != nil || in.Questions != nil
}

// CreateCallList creates a catalog entry after checking the group reference
// and the duplicate-active-name rule.
func (s *CallService) CreateCallList(ctx context.Context, actor tenant.Actor, input CreateCallListInput) (*model.CallList, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ActionAdministerCallList, "call_list"); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, newValidationError("name", "call list name is required")
	}
	if errs := script.ValidateQuestions(input.Questions); len(errs) > 0 {
		return nil, &AnswerValidationError{Fields: errs}
	}
	source := input.Source
	if source == "" {
		source = model.CallListSourceManual
	}
	switch source {
	case model.CallListSourceFilter, model.CallListSourceManual, model.CallListSourceImport:
	default:
		return nil, newValidationError("source", fmt.Sprintf("unknown source %q", source))
	}

	if input.GroupID != nil {
		group, err := s.groups.LookupGroup(ctx, actor.WorkspaceID, *input.GroupID)
		if err != nil {
			return nil, fmt.Errorf("group lookup failed: %w", err)
		}
		if group == nil {
			return nil, fmt.Errorf("%w: group %s does not resolve in workspace", apperrors.ErrNotFound, *input.GroupID)
		}
	}

	// Duplicate active name in the same scope is a conflict.
	if existing, err := s.repo.FindActiveCallListByName(ctx, actor.WorkspaceID, name, input.GroupID); err != nil {
		if !apperrors.IsNotFoundError(err) {
			return nil, err
		}
	} else if existing != nil {
		return nil, fmt.Errorf("%w: an active call list named %q already exists in scope", apperrors.ErrConflict, name)
	}

	questions, err := model.EncodeQuestions(input.Questions)
	if err != nil {
		return nil, err
	}
	messages, err := model.EncodeMessages(input.Messages)
	if err != nil {
		return nil, err
	}

	list := &model.CallList{
		ID:          uuid.NewString(),
		WorkspaceID: actor.WorkspaceID,
		GroupID:     input.GroupID,
		Name:        name,
		Description: input.Description,
		Source:      source,
		Messages:    messages,
		Questions:   questions,
		Status:      model.CallListStatusActive,
		CreatedAt:   utils.Now(),
		UpdatedAt:   utils.Now(),
	}
	if err := s.repo.CreateCallList(ctx, list); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("Created call list",
		zap.String("call_list_id", list.ID),
		zap.String("name", list.Name),
		zap.String("created_by", actor.MemberID))
	return list, nil
}

// GetCallList fetches one catalog entry.
func (s *CallService) GetCallList(ctx context.Context, actor tenant.Actor, id string) (*model.CallList, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.repo.GetCallList(ctx, actor.WorkspaceID, id)
}

// ListCallLists returns a catalog page.
func (s *CallService) ListCallLists(ctx context.Context, actor tenant.Actor, filter storage.CallListFilter) ([]model.CallList, int64, error) {
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	return s.repo.ListCallLists(ctx, actor.WorkspaceID, filter)
}

// UpdateCallList applies a catalog patch. Script fields (name, messages,
// questions) may only change while the list is ACTIVE; status moves only
// forward through ACTIVE -> COMPLETED -> ARCHIVED.
func (s *CallService) UpdateCallList(ctx context.Context, actor tenant.Actor, id string, input UpdateCallListInput) (*model.CallList, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ActionAdministerCallList, id); err != nil {
		return nil, err
	}

	list, err := s.repo.GetCallList(ctx, actor.WorkspaceID, id)
	if err != nil {
		return nil, err
	}

	if input.touchesScript() && !list.IsActive() {
		return nil, fmt.Errorf("%w: call list %s is %s; script fields are frozen", apperrors.ErrConflict, id, list.Status)
	}

	fields := map[string]interface{}{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, newValidationError("name", "call list name cannot be empty")
		}
		if name != list.Name {
			if existing, findErr := s.repo.FindActiveCallListByName(ctx, actor.WorkspaceID, name, list.GroupID); findErr == nil && existing != nil && existing.ID != id {
				return nil, fmt.Errorf("%w: an active call list named %q already exists in scope", apperrors.ErrConflict, name)
			} else if findErr != nil && !apperrors.IsNotFoundError(findErr) {
				return nil, findErr
			}
		}
		fields["name"] = name
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Messages != nil {
		messages, encErr := model.EncodeMessages(*input.Messages)
		if encErr != nil {
			return nil, encErr
		}
		fields["messages"] = messages
	}
	if input.Questions != nil {
		if errs := script.ValidateQuestions(*input.Questions); len(errs) > 0 {
			return nil, &AnswerValidationError{Fields: errs}
		}
		questions, encErr := model.EncodeQuestions(*input.Questions)
		if encErr != nil {
			return nil, encErr
		}
		fields["questions"] = questions
	}

	statusChange := input.Status != nil && *input.Status != list.Status
	if statusChange {
		if model.CallListStatusRank(*input.Status) == 0 {
			return nil, newValidationError("status", fmt.Sprintf("unknown status %q", *input.Status))
		}
		if model.CallListStatusRank(*input.Status) < model.CallListStatusRank(list.Status) {
			return nil, fmt.Errorf("%w: call list status only moves forward, %s -> %s is not allowed", apperrors.ErrInvalidTransition, list.Status, *input.Status)
		}
	}

	// Content fields land before any status transition, so a single patch
	// cannot apply script edits to a list it is about to freeze.
	if len(fields) > 0 {
		if err := s.repo.UpdateCallListFields(ctx, actor.WorkspaceID, id, fields); err != nil {
			return nil, err
		}
	}

	if statusChange {
		switch *input.Status {
		case model.CallListStatusCompleted:
			// Completion has its own guarded path.
			if _, err := s.MarkCallListComplete(ctx, actor, id); err != nil {
				return nil, err
			}
		case model.CallListStatusArchived:
			if err := s.repo.UpdateCallListFields(ctx, actor.WorkspaceID, id, map[string]interface{}{"status": model.CallListStatusArchived}); err != nil {
				return nil, err
			}
		}
	}

	return s.repo.GetCallList(ctx, actor.WorkspaceID, id)
}

// MarkCallListComplete transitions a list to COMPLETED. Repeating the call
// on an already-COMPLETED list is a no-op, not an error, so retrying
// integrations stay happy. An ARCHIVED list cannot be completed.
func (s *CallService) MarkCallListComplete(ctx context.Context, actor tenant.Actor, id string) (*model.CallList, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, actor, ActionAdministerCallList, id); err != nil {
		return nil, err
	}

	updated, err := s.repo.MarkCallListComplete(ctx, actor.WorkspaceID, id, actor.MemberID)
	if err != nil {
		return nil, err
	}

	list, err := s.repo.GetCallList(ctx, actor.WorkspaceID, id)
	if err != nil {
		return nil, err
	}
	if !updated {
		switch list.Status {
		case model.CallListStatusCompleted:
			// Idempotent repeat; nothing changed.
		case model.CallListStatusArchived:
			return nil, fmt.Errorf("%w: call list %s is archived", apperrors.ErrInvalidTransition, id)
		default:
			return nil, fmt.Errorf("%w: call list %s could not be completed from status %s", apperrors.ErrConflict, id, list.Status)
		}
	} else {
		logger.FromContext(ctx).Info("Marked call list completed",
			zap.String("call_list_id", id),
			zap.String("completed_by", actor.MemberID))
	}
	return list, nil
}

// DeleteCallList removes a list and its queue. Lists with recorded call
// logs are never deleted; the ledger survives by archiving instead.
func (s *CallService) DeleteCallList(ctx context.Context, actor tenant.Actor, id string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.authorize(ctx, actor, ActionAdministerCallList, id); err != nil {
		return err
	}

	count, err := s.repo.CountCallLogsForList(ctx, actor.WorkspaceID, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: call list %s has %d call logs; archive it instead of deleting", apperrors.ErrConflict, id, count)
	}

	return s.repo.DeleteCallList(ctx, actor.WorkspaceID, id)
}
