package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/storage"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/tenant"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/utils"
)

// AddItemsInput describes a bulk queue creation: an explicit student set,
// an optional directory filter, or both.
type AddItemsInput struct {
	StudentIDs []string       `json:"student_ids,omitempty"`
	Filter     *StudentFilter `json:"filter,omitempty"`
	Priority   int            `json:"priority,omitempty"`
	AssignedTo *string        `json:"assigned_to,omitempty"`
}

// UpdateItemInput is a partial queue-entry patch. State moves through the
// state machine; priority and the custom bag are plain updates.
type UpdateItemInput struct {
	State    *string         `json:"state,omitempty"`
	Priority *int            `json:"priority,omitempty"`
	Custom   *datatypes.JSON `json:"custom,omitempty"`
}

// AddItems bulk-creates queue entries for a call list. Students that
// already have an open item are skipped and counted, never failed.
func (s *CallService) AddItems(ctx context.Context, actor tenant.Actor, callListID string, input AddItemsInput) (model.ItemStats, error) {
	if err := requireActor(actor); err != nil {
		return model.ItemStats{}, err
	}
	if err := s.authorize(ctx, actor, ActionAdministerCallList, callListID); err != nil {
		return model.ItemStats{}, err
	}

	list, err := s.repo.GetCallList(ctx, actor.WorkspaceID, callListID)
	if err != nil {
		return model.ItemStats{}, err
	}
	if !list.IsActive() {
		return model.ItemStats{}, fmt.Errorf("%w: call list %s is %s; queue entries can only be added while ACTIVE", apperrors.ErrConflict, callListID, list.Status)
	}
	if input.Priority < 0 || input.Priority > 100 {
		return model.ItemStats{}, newValidationError("priority", "priority must be between 0 and 100")
	}

	studentIDs := append([]string(nil), input.StudentIDs...)
	if input.Filter != nil {
		fromDirectory, dirErr := s.students.LookupStudents(ctx, actor.WorkspaceID, *input.Filter)
		if dirErr != nil {
			return model.ItemStats{}, fmt.Errorf("student directory lookup failed: %w", dirErr)
		}
		studentIDs = append(studentIDs, fromDirectory...)
	}
	if len(studentIDs) == 0 {
		return model.ItemStats{}, newValidationError("student_ids", "no students to add; provide student_ids or a filter")
	}

	seen := make(map[string]bool, len(studentIDs))
	items := make([]*model.CallListItem, 0, len(studentIDs))
	now := utils.Now()
	for _, studentID := range studentIDs {
		if studentID == "" || seen[studentID] {
			continue
		}
		seen[studentID] = true
		items = append(items, &model.CallListItem{
			ID:          uuid.NewString(),
			WorkspaceID: actor.WorkspaceID,
			CallListID:  callListID,
			StudentID:   studentID,
			AssignedTo:  input.AssignedTo,
			State:       model.ItemStateQueued,
			Priority:    input.Priority,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	stats, err := s.repo.BulkCreateItems(ctx, actor.WorkspaceID, items)
	if err != nil {
		return model.ItemStats{}, err
	}
	logger.FromContext(ctx).Info("Added queue entries to call list",
		zap.String("call_list_id", callListID),
		zap.Int("created", stats.Created),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// GetItem fetches one queue entry.
func (s *CallService) GetItem(ctx context.Context, actor tenant.Actor, id string) (*model.CallListItem, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.repo.GetItem(ctx, actor.WorkspaceID, id)
}

// ListItems returns a queue page.
func (s *CallService) ListItems(ctx context.Context, actor tenant.Actor, filter storage.ItemFilter) ([]model.CallListItem, int64, error) {
	if err := requireActor(actor); err != nil {
		return nil, 0, err
	}
	return s.repo.ListItems(ctx, actor.WorkspaceID, filter)
}

// StartCall claims an item for calling: QUEUED -> CALLING.
func (s *CallService) StartCall(ctx context.Context, actor tenant.Actor, itemID string) (*model.CallListItem, error) {
	return s.transition(ctx, actor, itemID, model.ItemStateQueued, model.ItemStateCalling)
}

// SkipItem takes an item out of the queue without a call: QUEUED -> SKIPPED.
func (s *CallService) SkipItem(ctx context.Context, actor tenant.Actor, itemID string) (*model.CallListItem, error) {
	return s.transition(ctx, actor, itemID, model.ItemStateQueued, model.ItemStateSkipped)
}

// RequeueItem abandons an in-progress call without a log: CALLING -> QUEUED.
func (s *CallService) RequeueItem(ctx context.Context, actor tenant.Actor, itemID string) (*model.CallListItem, error) {
	return s.transition(ctx, actor, itemID, model.ItemStateCalling, model.ItemStateQueued)
}

// transition runs one state machine edge through the conditional write and
// turns a lost race into a precise error.
func (s *CallService) transition(ctx context.Context, actor tenant.Actor, itemID, fromState, toState string) (*model.CallListItem, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !model.CanTransitionItem(fromState, toState) {
		return nil, fmt.Errorf("%w: %s -> %s is not a legal queue transition", apperrors.ErrInvalidTransition, fromState, toState)
	}

	moved, err := s.repo.TransitionItem(ctx, actor.WorkspaceID, itemID, fromState, toState)
	if err != nil {
		return nil, err
	}
	if !moved {
		item, getErr := s.repo.GetItem(ctx, actor.WorkspaceID, itemID)
		if getErr != nil {
			return nil, getErr
		}
		if model.TerminalItemState(item.State) {
			return nil, fmt.Errorf("%w: item %s is %s and cannot leave that state", apperrors.ErrInvalidTransition, itemID, item.State)
		}
		return nil, fmt.Errorf("%w: item %s is %s, expected %s", apperrors.ErrConflict, itemID, item.State, fromState)
	}

	logger.FromContext(ctx).Info("Queue item transitioned",
		zap.String("item_id", itemID),
		zap.String("from", fromState),
		zap.String("to", toState),
		zap.String("actor", actor.MemberID))
	return s.repo.GetItem(ctx, actor.WorkspaceID, itemID)
}

// UpdateItem applies a queue-entry patch. A state field in the patch is
// routed through the state machine; priority and custom are plain column
// updates.
func (s *CallService) UpdateItem(ctx context.Context, actor tenant.Actor, itemID string, input UpdateItemInput) (*model.CallListItem, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	if input.State != nil {
		item, err := s.repo.GetItem(ctx, actor.WorkspaceID, itemID)
		if err != nil {
			return nil, err
		}
		if *input.State != item.State {
			if *input.State == model.ItemStateDone {
				return nil, fmt.Errorf("%w: items reach DONE only through call completion", apperrors.ErrInvalidTransition)
			}
			if _, err := s.transition(ctx, actor, itemID, item.State, *input.State); err != nil {
				return nil, err
			}
		}
	}

	fields := map[string]interface{}{}
	if input.Priority != nil {
		if *input.Priority < 0 || *input.Priority > 100 {
			return nil, newValidationError("priority", "priority must be between 0 and 100")
		}
		fields["priority"] = *input.Priority
	}
	if input.Custom != nil {
		fields["custom"] = *input.Custom
	}
	if len(fields) > 0 {
		if err := s.repo.UpdateItemFields(ctx, actor.WorkspaceID, itemID, fields); err != nil {
			return nil, err
		}
	}

	return s.repo.GetItem(ctx, actor.WorkspaceID, itemID)
}
