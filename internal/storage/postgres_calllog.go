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

// --- Call Log Repository Methods ---

// CompleteItem inserts the call log and flips the owning queue item to DONE
// in a single transaction. Two racers on the same item are serialized by the
// state-guarded update: only one sees a row change, the other rolls back
// with ErrConflict. The unique index on call_list_item_id backstops the
// guard at the constraint level.
func (r *PostgresRepo) CompleteItem(ctx context.Context, log *model.CallLog) error {
	operation := func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(log).Error; err != nil {
				mapped := checkConstraintViolation(err)
				if apperrors.IsDuplicateError(mapped) {
					// A log already owns this item.
					return fmt.Errorf("%w: item %s already has a call log", apperrors.ErrConflict, log.CallListItemID)
				}
				return mapped
			}

			result := tx.Model(&model.CallListItem{}).
				Where("id = ? AND workspace_id = ? AND state IN ? AND call_log_id IS NULL",
					log.CallListItemID, log.WorkspaceID,
					[]string{model.ItemStateQueued, model.ItemStateCalling}).
				Updates(map[string]interface{}{
					"state":       model.ItemStateDone,
					"call_log_id": log.ID,
					"updated_at":  utils.Now(),
				})
			if result.Error != nil {
				return checkConstraintViolation(result.Error)
			}
			if result.RowsAffected == 0 {
				// Classify the loss inside the transaction so the rollback
				// returns a precise error.
				var item model.CallListItem
				err := tx.Where("id = ? AND workspace_id = ?", log.CallListItemID, log.WorkspaceID).
					First(&item).Error
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return fmt.Errorf("%w: call list item %s", apperrors.ErrNotFound, log.CallListItemID)
					}
					return checkConstraintViolation(err)
				}
				if item.State == model.ItemStateSkipped {
					return fmt.Errorf("%w: item %s is SKIPPED and cannot be completed", apperrors.ErrInvalidTransition, item.ID)
				}
				return fmt.Errorf("%w: item %s is already completed", apperrors.ErrConflict, item.ID)
			}
			return nil
		})
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "CompleteItem", operation)
	observer.ObserveDbOperationDuration("complete", "call_log", log.WorkspaceID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Warn("Call completion did not commit",
			zap.String("item_id", log.CallListItemID),
			zap.Error(err))
		return err
	}
	logger.FromContext(ctx).Info("Recorded call log and completed item",
		zap.String("call_log_id", log.ID),
		zap.String("item_id", log.CallListItemID),
		zap.String("call_status", log.Status))
	return nil
}

// GetCallLog fetches one ledger entry scoped to the workspace.
func (r *PostgresRepo) GetCallLog(ctx context.Context, workspaceID, id string) (*model.CallLog, error) {
	var log model.CallLog

	operation := func() error {
		err := r.db.WithContext(ctx).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			First(&log).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: call log %s", apperrors.ErrNotFound, id)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "GetCallLog", operation)
	observer.ObserveDbOperationDuration("get", "call_log", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ListCallLogs returns a page of ledger entries, newest call first, plus the
// unpaged total.
func (r *PostgresRepo) ListCallLogs(ctx context.Context, workspaceID string, filter CallLogFilter) ([]model.CallLog, int64, error) {
	var (
		logs  []model.CallLog
		total int64
	)

	operation := func() error {
		query := r.db.WithContext(ctx).Model(&model.CallLog{}).Where("workspace_id = ?", workspaceID)
		if filter.CallListID != "" {
			query = query.Where("call_list_id = ?", filter.CallListID)
		}
		if filter.StudentID != "" {
			query = query.Where("student_id = ?", filter.StudentID)
		}
		if filter.CallerID != "" {
			query = query.Where("caller_id = ?", filter.CallerID)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if err := query.Count(&total).Error; err != nil {
			return checkConstraintViolation(err)
		}

		query = query.Order("call_date DESC")
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
		if err := query.Find(&logs).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "ListCallLogs", operation)
	observer.ObserveDbOperationDuration("list", "call_log", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// UpdateCallLogFields applies an operator correction to one ledger entry.
// Identity and item linkage columns are never present in fields; the
// service layer strips them before calling here.
func (r *PostgresRepo) UpdateCallLogFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.CallLog{}).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			Updates(fields)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: call log %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "UpdateCallLogFields", operation)
	observer.ObserveDbOperationDuration("update", "call_log", workspaceID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update call log", zap.String("call_log_id", id), zap.Error(err))
		return err
	}
	return nil
}

// GetLatestCallLog returns the most recent ledger entry by call date for a
// (call list, student) pair.
func (r *PostgresRepo) GetLatestCallLog(ctx context.Context, workspaceID, callListID, studentID string) (*model.CallLog, error) {
	var log model.CallLog

	operation := func() error {
		err := r.db.WithContext(ctx).
			Where("workspace_id = ? AND call_list_id = ? AND student_id = ?", workspaceID, callListID, studentID).
			Order("call_date DESC").
			First(&log).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: no call log for list %s student %s", apperrors.ErrNotFound, callListID, studentID)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "GetLatestCallLog", operation)
	observer.ObserveDbOperationDuration("get_latest", "call_log", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// CountCallLogsForList counts ledger entries referencing a call list. Used
// to block catalog deletion once the ledger has content.
func (r *PostgresRepo) CountCallLogsForList(ctx context.Context, workspaceID, callListID string) (int64, error) {
	var count int64

	operation := func() error {
		err := r.db.WithContext(ctx).Model(&model.CallLog{}).
			Where("workspace_id = ? AND call_list_id = ?", workspaceID, callListID).
			Count(&count).Error
		if err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "CountCallLogsForList", operation)
	observer.ObserveDbOperationDuration("count", "call_log", workspaceID, time.Since(startTime), err)
	if err != nil {
		return 0, err
	}
	return count, nil
}
