package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
)

func TestAssignItems_SelfClaimSkipsPolicy(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	itemIDs := []string{"item-1", "item-2"}
	self := actor.MemberID
	f.repo.On("CountItemsInScope", tmock.Anything, testWorkspaceID, "cl-1", itemIDs).Return(int64(2), nil)
	f.repo.On("AssignItems", tmock.Anything, testWorkspaceID, "cl-1", itemIDs, &self).Return(int64(2), nil)

	result, err := f.service.AssignItems(context.Background(), actor, "cl-1", AssignInput{
		ItemIDs: itemIDs,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.UpdatedCount)

	f.policy.AssertNotCalled(t, "Allow", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything)
	f.assertExpectations(t)
}

func TestAssignItems_AssigningOthersRequiresPolicy(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	assignee := "member-9"
	f.policy.On("Allow", tmock.Anything, actor, ActionAssignItems, "cl-1").Return(false, nil)

	_, err := f.service.AssignItems(context.Background(), actor, "cl-1", AssignInput{
		ItemIDs:    []string{"item-1"},
		AssignedTo: &assignee,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbiddenError(err))
	f.repo.AssertNotCalled(t, "AssignItems", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestAssignItems_ScopeFailureMutatesNothing(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	itemIDs := []string{"item-1", "item-2", "item-other-list"}
	f.repo.On("CountItemsInScope", tmock.Anything, testWorkspaceID, "cl-1", itemIDs).Return(int64(2), nil)

	_, err := f.service.AssignItems(context.Background(), actor, "cl-1", AssignInput{
		ItemIDs: itemIDs,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
	f.repo.AssertNotCalled(t, "AssignItems", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestAssignItems_ReassignmentIsLastWriterWins(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	assignee := "member-9"
	itemIDs := []string{"item-1"}
	f.policy.On("Allow", tmock.Anything, actor, ActionAssignItems, "cl-1").Return(true, nil)
	f.repo.On("CountItemsInScope", tmock.Anything, testWorkspaceID, "cl-1", itemIDs).Return(int64(1), nil)
	// The repository overwrites any prior assignee unconditionally.
	f.repo.On("AssignItems", tmock.Anything, testWorkspaceID, "cl-1", itemIDs, &assignee).Return(int64(1), nil)

	result, err := f.service.AssignItems(context.Background(), actor, "cl-1", AssignInput{
		ItemIDs:    itemIDs,
		AssignedTo: &assignee,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.UpdatedCount)
	f.assertExpectations(t)
}

func TestAssignItems_TerminalItemsReduceUpdatedCount(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	itemIDs := []string{"item-1", "item-2", "item-3"}
	self := actor.MemberID
	f.repo.On("CountItemsInScope", tmock.Anything, testWorkspaceID, "cl-1", itemIDs).Return(int64(3), nil)
	// One of the three reached DONE between the scope check and the write.
	f.repo.On("AssignItems", tmock.Anything, testWorkspaceID, "cl-1", itemIDs, &self).Return(int64(2), nil)

	result, err := f.service.AssignItems(context.Background(), actor, "cl-1", AssignInput{
		ItemIDs: itemIDs,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.UpdatedCount)
}

func TestAssignItems_EmptyBatchRejected(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	_, err := f.service.AssignItems(context.Background(), actor, "cl-1", AssignInput{
		ItemIDs: []string{"", ""},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestUnassignItems_ClearsAssignment(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	itemIDs := []string{"item-1", "item-2"}
	f.policy.On("Allow", tmock.Anything, actor, ActionAssignItems, "cl-1").Return(true, nil)
	f.repo.On("CountItemsInScope", tmock.Anything, testWorkspaceID, "cl-1", itemIDs).Return(int64(2), nil)
	f.repo.On("AssignItems", tmock.Anything, testWorkspaceID, "cl-1", itemIDs, (*string)(nil)).Return(int64(2), nil)

	result, err := f.service.UnassignItems(context.Background(), actor, "cl-1", AssignInput{
		ItemIDs: itemIDs,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.UpdatedCount)
	f.assertExpectations(t)
}
