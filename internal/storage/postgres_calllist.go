package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/observer"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/utils"
)

// --- Call List Repository Methods ---

// CreateCallList inserts a new catalog entry.
func (r *PostgresRepo) CreateCallList(ctx context.Context, list *model.CallList) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(list).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "CreateCallList", operation)
	observer.ObserveDbOperationDuration("create", "call_list", list.WorkspaceID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to create call list", zap.String("name", list.Name), zap.Error(err))
		return err
	}
	return nil
}

// GetCallList fetches one catalog entry scoped to the workspace.
func (r *PostgresRepo) GetCallList(ctx context.Context, workspaceID, id string) (*model.CallList, error) {
	var list model.CallList

	operation := func() error {
		err := r.db.WithContext(ctx).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			First(&list).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: call list %s", apperrors.ErrNotFound, id)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "GetCallList", operation)
	observer.ObserveDbOperationDuration("get", "call_list", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// FindActiveCallListByName looks for an ACTIVE list with the given name in
// the same scope (workspace-wide or group-bound). Returns ErrNotFound when
// no such list exists.
func (r *PostgresRepo) FindActiveCallListByName(ctx context.Context, workspaceID, name string, groupID *string) (*model.CallList, error) {
	var list model.CallList

	operation := func() error {
		query := r.db.WithContext(ctx).
			Where("workspace_id = ? AND name = ? AND status = ?", workspaceID, name, model.CallListStatusActive)
		if groupID != nil {
			query = query.Where("group_id = ?", *groupID)
		} else {
			query = query.Where("group_id IS NULL")
		}
		err := query.First(&list).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: active call list named %q", apperrors.ErrNotFound, name)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "FindActiveCallListByName", operation)
	observer.ObserveDbOperationDuration("find_by_name", "call_list", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// ListCallLists returns a page of catalog entries plus the unpaged total.
func (r *PostgresRepo) ListCallLists(ctx context.Context, workspaceID string, filter CallListFilter) ([]model.CallList, int64, error) {
	var (
		lists []model.CallList
		total int64
	)

	operation := func() error {
		query := r.db.WithContext(ctx).Model(&model.CallList{}).Where("workspace_id = ?", workspaceID)
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.GroupID != "" {
			query = query.Where("group_id = ?", filter.GroupID)
		}
		if filter.Name != "" {
			query = query.Where("name ILIKE ?", "%"+filter.Name+"%")
		}
		if err := query.Count(&total).Error; err != nil {
			return checkConstraintViolation(err)
		}

		query = query.Order("created_at DESC")
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
		if err := query.Find(&lists).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "ListCallLists", operation)
	observer.ObserveDbOperationDuration("list", "call_list", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, 0, err
	}
	return lists, total, nil
}

// UpdateCallListFields applies a partial update to one catalog entry.
func (r *PostgresRepo) UpdateCallListFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.CallList{}).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			Updates(fields)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: call list %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "UpdateCallListFields", operation)
	observer.ObserveDbOperationDuration("update", "call_list", workspaceID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update call list", zap.String("call_list_id", id), zap.Error(err))
		return err
	}
	return nil
}

// MarkCallListComplete flips an ACTIVE list to COMPLETED. The guard makes
// repeated calls a no-op at the SQL level: the caller decides whether a
// zero-row update is idempotent success or an error.
func (r *PostgresRepo) MarkCallListComplete(ctx context.Context, workspaceID, id, completedBy string) (bool, error) {
	var updated bool

	operation := func() error {
		now := utils.Now()
		result := r.db.WithContext(ctx).Model(&model.CallList{}).
			Where("id = ? AND workspace_id = ? AND status = ?", id, workspaceID, model.CallListStatusActive).
			Updates(map[string]interface{}{
				"status":       model.CallListStatusCompleted,
				"completed_at": now,
				"completed_by": completedBy,
				"updated_at":   now,
			})
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		updated = result.RowsAffected > 0
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "MarkCallListComplete", operation)
	observer.ObserveDbOperationDuration("complete", "call_list", workspaceID, time.Since(startTime), err)
	if err != nil {
		return false, err
	}
	return updated, nil
}

// DeleteCallList removes a catalog entry and its queue items in one
// transaction. Callers must have already established that no call logs
// reference the list.
func (r *PostgresRepo) DeleteCallList(ctx context.Context, workspaceID, id string) error {
	operation := func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.
				Where("call_list_id = ? AND workspace_id = ?", id, workspaceID).
				Delete(&model.CallListItem{}).Error; err != nil {
				return checkConstraintViolation(err)
			}
			result := tx.
				Where("id = ? AND workspace_id = ?", id, workspaceID).
				Delete(&model.CallList{})
			if result.Error != nil {
				return checkConstraintViolation(result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: call list %s", apperrors.ErrNotFound, id)
			}
			return nil
		})
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "DeleteCallList", operation)
	observer.ObserveDbOperationDuration("delete", "call_list", workspaceID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to delete call list", zap.String("call_list_id", id), zap.Error(err))
		return err
	}
	logger.FromContext(ctx).Info("Deleted call list and its queue items", zap.String("call_list_id", id))
	return nil
}
