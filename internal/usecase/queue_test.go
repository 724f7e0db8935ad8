package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
)

func TestAddItems_MergesFilterAndExplicitIDs(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := model.NewCallList(&model.CallList{WorkspaceID: testWorkspaceID})
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)
	f.directory.On("LookupStudents", tmock.Anything, testWorkspaceID, StudentFilter{GroupID: "grp-7"}).
		Return([]string{"stu-2", "stu-3"}, nil)

	var created []*model.CallListItem
	f.repo.On("BulkCreateItems", tmock.Anything, testWorkspaceID, tmock.AnythingOfType("[]*model.CallListItem")).
		Run(func(args tmock.Arguments) {
			created = args.Get(2).([]*model.CallListItem)
		}).Return(model.ItemStats{Created: 3}, nil)

	stats, err := f.service.AddItems(context.Background(), actor, list.ID, AddItemsInput{
		// stu-2 appears both explicitly and through the filter; it is queued once.
		StudentIDs: []string{"stu-1", "stu-2"},
		Filter:     &StudentFilter{GroupID: "grp-7"},
		Priority:   40,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Created)

	require.Len(t, created, 3)
	students := make([]string, 0, len(created))
	for _, item := range created {
		students = append(students, item.StudentID)
		assert.Equal(t, list.ID, item.CallListID)
		assert.Equal(t, model.ItemStateQueued, item.State)
		assert.Equal(t, 40, item.Priority)
		assert.NotEmpty(t, item.ID)
	}
	assert.Equal(t, []string{"stu-1", "stu-2", "stu-3"}, students)

	f.assertExpectations(t)
}

func TestAddItems_RejectedForInactiveList(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := model.NewCallList(&model.CallList{
		WorkspaceID: testWorkspaceID,
		Status:      model.CallListStatusCompleted,
	})
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)

	_, err := f.service.AddItems(context.Background(), actor, list.ID, AddItemsInput{
		StudentIDs: []string{"stu-1"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	f.repo.AssertNotCalled(t, "BulkCreateItems", tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestAddItems_RequiresStudents(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := model.NewCallList(&model.CallList{WorkspaceID: testWorkspaceID})
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)

	_, err := f.service.AddItems(context.Background(), actor, list.ID, AddItemsInput{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestStartCall_ClaimsQueuedItem(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	item := model.NewCallListItem(&model.CallListItem{
		WorkspaceID: testWorkspaceID,
		State:       model.ItemStateCalling,
	})
	f.repo.On("TransitionItem", tmock.Anything, testWorkspaceID, item.ID, model.ItemStateQueued, model.ItemStateCalling).
		Return(true, nil)
	f.repo.On("GetItem", tmock.Anything, testWorkspaceID, item.ID).Return(item, nil)

	got, err := f.service.StartCall(context.Background(), actor, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStateCalling, got.State)
	f.assertExpectations(t)
}

func TestStartCall_LostRaceClassifiesByCurrentState(t *testing.T) {
	actor := testActor()

	t.Run("item moved to a terminal state", func(t *testing.T) {
		f := newServiceFixture(t)
		item := model.NewCallListItem(&model.CallListItem{
			WorkspaceID: testWorkspaceID,
			State:       model.ItemStateSkipped,
		})
		f.repo.On("TransitionItem", tmock.Anything, testWorkspaceID, item.ID, model.ItemStateQueued, model.ItemStateCalling).
			Return(false, nil)
		f.repo.On("GetItem", tmock.Anything, testWorkspaceID, item.ID).Return(item, nil)

		_, err := f.service.StartCall(context.Background(), actor, item.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	})

	t.Run("item claimed by another caller", func(t *testing.T) {
		f := newServiceFixture(t)
		item := model.NewCallListItem(&model.CallListItem{
			WorkspaceID: testWorkspaceID,
			State:       model.ItemStateCalling,
		})
		f.repo.On("TransitionItem", tmock.Anything, testWorkspaceID, item.ID, model.ItemStateQueued, model.ItemStateCalling).
			Return(false, nil)
		f.repo.On("GetItem", tmock.Anything, testWorkspaceID, item.ID).Return(item, nil)

		_, err := f.service.StartCall(context.Background(), actor, item.ID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrConflict))
	})
}

func TestRequeueItem_AbandonsCall(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	item := model.NewCallListItem(&model.CallListItem{
		WorkspaceID: testWorkspaceID,
		State:       model.ItemStateQueued,
	})
	f.repo.On("TransitionItem", tmock.Anything, testWorkspaceID, item.ID, model.ItemStateCalling, model.ItemStateQueued).
		Return(true, nil)
	f.repo.On("GetItem", tmock.Anything, testWorkspaceID, item.ID).Return(item, nil)

	got, err := f.service.RequeueItem(context.Background(), actor, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStateQueued, got.State)
}

func TestUpdateItem_DoneIsUnreachableByPatch(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	item := model.NewCallListItem(&model.CallListItem{
		WorkspaceID: testWorkspaceID,
		State:       model.ItemStateCalling,
	})
	f.repo.On("GetItem", tmock.Anything, testWorkspaceID, item.ID).Return(item, nil)

	done := model.ItemStateDone
	_, err := f.service.UpdateItem(context.Background(), actor, item.ID, UpdateItemInput{
		State: &done,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	f.repo.AssertNotCalled(t, "TransitionItem", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestUpdateItem_PatchesPriority(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	item := model.NewCallListItem(&model.CallListItem{
		WorkspaceID: testWorkspaceID,
		State:       model.ItemStateQueued,
	})
	f.repo.On("UpdateItemFields", tmock.Anything, testWorkspaceID, item.ID,
		map[string]interface{}{"priority": 90}).Return(nil)
	f.repo.On("GetItem", tmock.Anything, testWorkspaceID, item.ID).Return(item, nil)

	priority := 90
	_, err := f.service.UpdateItem(context.Background(), actor, item.ID, UpdateItemInput{
		Priority: &priority,
	})
	require.NoError(t, err)
	f.assertExpectations(t)
}
