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

// --- Follow-up Repository Methods ---

// CreateFollowUp inserts a follow-up reminder.
func (r *PostgresRepo) CreateFollowUp(ctx context.Context, followUp *model.FollowUp) error {
	operation := func() error {
		if err := r.db.WithContext(ctx).Create(followUp).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "CreateFollowUp", operation)
	observer.ObserveDbOperationDuration("create", "follow_up", followUp.WorkspaceID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to create follow-up",
			zap.String("student_id", followUp.StudentID),
			zap.Error(err))
		return err
	}
	return nil
}

// GetFollowUp fetches one follow-up scoped to the workspace.
func (r *PostgresRepo) GetFollowUp(ctx context.Context, workspaceID, id string) (*model.FollowUp, error) {
	var followUp model.FollowUp

	operation := func() error {
		err := r.db.WithContext(ctx).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			First(&followUp).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: follow-up %s", apperrors.ErrNotFound, id)
			}
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "GetFollowUp", operation)
	observer.ObserveDbOperationDuration("get", "follow_up", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, err
	}
	return &followUp, nil
}

// ListFollowUps returns a page of follow-ups ordered by due date, plus the
// unpaged total.
func (r *PostgresRepo) ListFollowUps(ctx context.Context, workspaceID string, filter FollowUpFilter) ([]model.FollowUp, int64, error) {
	var (
		followUps []model.FollowUp
		total     int64
	)

	operation := func() error {
		query := r.db.WithContext(ctx).Model(&model.FollowUp{}).Where("workspace_id = ?", workspaceID)
		if filter.StudentID != "" {
			query = query.Where("student_id = ?", filter.StudentID)
		}
		if filter.Status != "" {
			query = query.Where("status = ?", filter.Status)
		}
		if filter.DueBefore != "" {
			query = query.Where("due_date <= ?", filter.DueBefore)
		}
		if err := query.Count(&total).Error; err != nil {
			return checkConstraintViolation(err)
		}

		query = query.Order("due_date ASC")
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		if filter.Offset > 0 {
			query = query.Offset(filter.Offset)
		}
		if err := query.Find(&followUps).Error; err != nil {
			return checkConstraintViolation(err)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "ListFollowUps", operation)
	observer.ObserveDbOperationDuration("list", "follow_up", workspaceID, time.Since(startTime), err)
	if err != nil {
		return nil, 0, err
	}
	return followUps, total, nil
}

// UpdateFollowUpFields applies a partial update to one follow-up.
func (r *PostgresRepo) UpdateFollowUpFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = utils.Now()

	operation := func() error {
		result := r.db.WithContext(ctx).Model(&model.FollowUp{}).
			Where("id = ? AND workspace_id = ?", id, workspaceID).
			Updates(fields)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: follow-up %s", apperrors.ErrNotFound, id)
		}
		return nil
	}

	policy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	err := retryableOperation(ctx, policy, "UpdateFollowUpFields", operation)
	observer.ObserveDbOperationDuration("update", "follow_up", workspaceID, time.Since(startTime), err)
	if err != nil {
		logger.FromContext(ctx).Error("Failed to update follow-up", zap.String("follow_up_id", id), zap.Error(err))
		return err
	}
	return nil
}
