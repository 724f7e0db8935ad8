package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/tenant"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
)

// AssignInput names the queue entries to (re)assign. A nil AssignedTo on
// Assign means self-claim by the acting caller.
type AssignInput struct {
	ItemIDs    []string `json:"item_ids"`
	AssignedTo *string  `json:"assigned_to,omitempty"`
}

// AssignResult reports how many entries actually changed. Items that
// reached a terminal state mid-batch are tolerated lost updates.
type AssignResult struct {
	UpdatedCount int64 `json:"updated_count"`
}

// AssignItems assigns queue entries to a caller. Reassignment over an
// existing assignee is last-writer-wins (supervisor override). The batch is
// authorization-sensitive: one item outside the (workspace, call list)
// scope fails the whole request before anything mutates.
func (s *CallService) AssignItems(ctx context.Context, actor tenant.Actor, callListID string, input AssignInput) (AssignResult, error) {
	if err := requireActor(actor); err != nil {
		return AssignResult{}, err
	}

	itemIDs := dedupe(input.ItemIDs)
	if len(itemIDs) == 0 {
		return AssignResult{}, newValidationError("item_ids", "at least one item id is required")
	}

	assignee := input.AssignedTo
	if assignee == nil {
		// Self-claim: any caller may pull queued work onto themselves.
		memberID := actor.MemberID
		assignee = &memberID
	} else if *assignee != actor.MemberID {
		// Assigning someone else's plate is a supervisor action.
		if err := s.authorize(ctx, actor, ActionAssignItems, callListID); err != nil {
			return AssignResult{}, err
		}
	}

	if err := s.verifyScope(ctx, actor.WorkspaceID, callListID, itemIDs); err != nil {
		return AssignResult{}, err
	}

	updated, err := s.repo.AssignItems(ctx, actor.WorkspaceID, callListID, itemIDs, assignee)
	if err != nil {
		return AssignResult{}, err
	}

	logger.FromContext(ctx).Info("Assigned queue entries",
		zap.String("call_list_id", callListID),
		zap.String("assignee", *assignee),
		zap.Int("requested", len(itemIDs)),
		zap.Int64("updated", updated))
	return AssignResult{UpdatedCount: updated}, nil
}

// UnassignItems clears assignment on the batch, with the same all-or-nothing
// scope rule as AssignItems.
func (s *CallService) UnassignItems(ctx context.Context, actor tenant.Actor, callListID string, input AssignInput) (AssignResult, error) {
	if err := requireActor(actor); err != nil {
		return AssignResult{}, err
	}

	itemIDs := dedupe(input.ItemIDs)
	if len(itemIDs) == 0 {
		return AssignResult{}, newValidationError("item_ids", "at least one item id is required")
	}
	if err := s.authorize(ctx, actor, ActionAssignItems, callListID); err != nil {
		return AssignResult{}, err
	}
	if err := s.verifyScope(ctx, actor.WorkspaceID, callListID, itemIDs); err != nil {
		return AssignResult{}, err
	}

	updated, err := s.repo.AssignItems(ctx, actor.WorkspaceID, callListID, itemIDs, nil)
	if err != nil {
		return AssignResult{}, err
	}

	logger.FromContext(ctx).Info("Unassigned queue entries",
		zap.String("call_list_id", callListID),
		zap.Int("requested", len(itemIDs)),
		zap.Int64("updated", updated))
	return AssignResult{UpdatedCount: updated}, nil
}

// verifyScope fails the whole batch with NotFound when any id does not
// resolve under (workspace, call list).
func (s *CallService) verifyScope(ctx context.Context, workspaceID, callListID string, itemIDs []string) error {
	count, err := s.repo.CountItemsInScope(ctx, workspaceID, callListID, itemIDs)
	if err != nil {
		return err
	}
	if count != int64(len(itemIDs)) {
		return fmt.Errorf("%w: %d of %d items do not resolve in call list %s",
			apperrors.ErrNotFound, int64(len(itemIDs))-count, len(itemIDs), callListID)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
