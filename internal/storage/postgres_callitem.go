package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/observer"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/utils"
)

// Longer timeout for bulk operations.
const bulkCommitRetryMaxElapsedTime = 15 * time.Second

// --- Call List Item Repository Methods ---

// BulkCreateItems inserts queue entries, silently skipping (call list,
// student) pairs that already have an open item. The conflict target is the
// partial unique index over QUEUED/CALLING, so pairs whose history is all
// terminal get a fresh item. The skip count comes from comparing rows
// affected against the batch size.
func (r *PostgresRepo) BulkCreateItems(ctx context.Context, workspaceID string, items []*model.CallListItem) (model.ItemStats, error) {
	stats := model.ItemStats{}
	if len(items) == 0 {
		return stats, nil
	}

	operation := func() error {
		result := r.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:     []clause.Column{{Name: "call_list_id"}, {Name: "student_id"}},
				TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "state = 'QUEUED' OR state = 'CALLING'"}}},
				DoNothing:   true,
			}).
			Create(&items)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		stats.Created = int(result.RowsAffected)
		stats.Skipped = len(items) - stats.Created
		return nil
	}

	policy := newRetryPolicy(ctx, bulkCommitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "BulkCreateItems", operation)
	observer.ObserveDbOperationDuration("bulk_create", "call_list_item", workspaceID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to bulk-create call list items",
			zap.Int("batch_size", len(items)),
			zap.Error(err))
		return model.ItemStats{}, err
	}

	observer.ObserveBulkItemStats(workspaceID, "create", stats.Created, stats.Skipped)
	logger.FromContext(ctx).Info("Bulk-created call list items",
		zap.Int("created", stats.Created),
		zap.Int("skipped", stats.Skipped))
	return stats, nil
}

// GetItem fetches one queue entry scoped to the workspace.
func (r *PostgresRepo) GetItem(ctx context.Context, workspaceID, id string) (*model.CallListItem, error) {
	var item model.CallListItem

	operation := func() error {
		err := r.db.WithContext(ctx).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			First(&item).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: call list item %s", apperrors.ErrNotFound, id)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "GetItem", operation)
	observer.ObserveDbOperationDuration("get", "call_list_item", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindOpenItemByListAndStudent fetches the single QUEUED or CALLING queue
// entry for a (call list, student) pair, or ErrNotFound when the pair has no
// open item.
func (r *PostgresRepo) FindOpenItemByListAndStudent(ctx context.Context, workspaceID, callListID, studentID string) (*model.CallListItem, error) {
	var item model.CallListItem

	operation := func() error {
		err := r.db.WithContext(ctx).
			Where("workspace_id = ? AND call_list_id = ? AND student_id = ? AND state IN ?",
				workspaceID, callListID, studentID,
				[]string{model.ItemStateQueued, model.ItemStateCalling}).
			First(&item).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: open item for list %s student %s", apperrors.ErrNotFound, callListID, studentID)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindOpenItemByListAndStudent", operation)
	observer.ObserveDbOperationDuration("find_open_by_student", "call_list_item", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems returns a page of queue entries, highest priority first, plus
// the unpaged total.
func (r *PostgresRepo) ListItems(ctx context.Context, workspaceID string, filter ItemFilter) ([]model.CallListItem, int64, error) {
	var (
		items []model.CallListItem
		total int64
	)

	operation := func() error {
		query := r.db.WithContext(ctx).Model(&model.CallListItem{}).Where("workspace_id = ?", workspaceID)
		if filter.CallListID != "" {
			query = query.Where("call_list_id = ?", filter.CallListID)
		}
		if filter.State != "" {
			query = query.Where("state = ?", filter.State)
		}
		if filter.AssignedTo != "" {
			query = query.Where("assigned_to = ?", filter.AssignedTo)
		}
		if filter.StudentID != "" {
			query = query.Where("student_id = ?", filter.StudentID)
		}
		if err := query.Count(&total).Error; err != nil {
			return checkConstraintViolation(err)
		}

		query = query.Order("priority DESC, created_at ASC")
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
		if err := query.Find(&items).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "ListItems", operation)
	observer.ObserveDbOperationDuration("list", "call_list_item", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// CountItemsInScope counts how many of the given ids exist under the
// (workspace, call list) scope.
func (r *PostgresRepo) CountItemsInScope(ctx context.Context, workspaceID, callListID string, itemIDs []string) (int64, error) {
	var count int64

	operation := func() error {
		err := r.db.WithContext(ctx).Model(&model.CallListItem{}).
			Where("workspace_id = ? AND call_list_id = ? AND id IN ?", workspaceID, callListID, itemIDs).
			Count(&count).Error
		if err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "CountItemsInScope", operation)
	observer.ObserveDbOperationDuration("count_scope", "call_list_item", workspaceID, time.Since(startTime), err)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// AssignItems sets assigned_to on every non-terminal item in the batch.
// Last writer wins; items that reached DONE or SKIPPED mid-flight are left
// alone and simply reduce the updated count.
func (r *PostgresRepo) AssignItems(ctx context.Context, workspaceID, callListID string, itemIDs []string, assignee *string) (int64, error) {
	var updated int64

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.CallListItem{}).
			Where("workspace_id = ? AND call_list_id = ? AND id IN ? AND state NOT IN ?",
				workspaceID, callListID, itemIDs, []string{model.ItemStateDone, model.ItemStateSkipped}).
			Updates(map[string]interface{}{
				"assigned_to": assignee,
				"updated_at":  utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		updated = result.RowsAffected
		return nil
	}

	policy := newRetryPolicy(ctx, bulkCommitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "AssignItems", operation)
	observer.ObserveDbOperationDuration("assign", "call_list_item", workspaceID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to assign call list items",
			zap.Int("batch_size", len(itemIDs)),
			zap.Error(err))
		return 0, err
	}
	return updated, nil
}

// TransitionItem performs the state machine's conditional write. The guard
// on call_log_id keeps completed items out of reach even if state were
// somehow tampered with.
func (r *PostgresRepo) TransitionItem(ctx context.Context, workspaceID, id, fromState, toState string) (bool, error) {
	var moved bool

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.CallListItem{}).
			Where("id = ? AND workspace_id = ? AND state = ? AND call_log_id IS NULL", id, workspaceID, fromState).
			Updates(map[string]interface{}{
				"state":      toState,
				"updated_at": utils.Now(),
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		moved = result.RowsAffected > 0
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "TransitionItem", operation)
	observer.ObserveDbOperationDuration("transition", "call_list_item", workspaceID, time.Since(startTime), err)
	if err != nil {
		return false, err
	}
	return moved, nil
}

// UpdateItemFields applies a partial update (priority, custom bag) to one
// queue entry. State and log linkage are off-limits here; those move only
// through TransitionItem and CompleteItem.
func (r *PostgresRepo) UpdateItemFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.CallListItem{}).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			Updates(fields)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: call list item %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "UpdateItemFields", operation)
	observer.ObserveDbOperationDuration("update", "call_list_item", workspaceID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update call list item", zap.String("item_id", id), zap.Error(err))
		return err
	}
	return nil
}
