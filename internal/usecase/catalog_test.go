package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
)

func TestCreateCallList_Success(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	var created *model.CallList
	f.repo.On("FindActiveCallListByName", tmock.Anything, testWorkspaceID, "Fall enrollment outreach", (*string)(nil)).
		Return(nil, fmt.Errorf("%w: no active call list", apperrors.ErrNotFound))
	f.repo.On("CreateCallList", tmock.Anything, tmock.AnythingOfType("*model.CallList")).
		Run(func(args tmock.Arguments) {
			created = args.Get(1).(*model.CallList)
		}).Return(nil)

	list, err := f.service.CreateCallList(context.Background(), actor, CreateCallListInput{
		Name: "  Fall enrollment outreach  ",
		Questions: []model.Question{
			{ID: "q1", Text: "Interested in re-enrolling?", Type: model.QuestionTypeYesNo, Required: true, Order: 0},
		},
		Messages: []string{"Hi, this is the enrollment office."},
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "Fall enrollment outreach", list.Name)
	assert.Equal(t, model.CallListStatusActive, list.Status)
	assert.Equal(t, model.CallListSourceManual, list.Source)
	assert.Equal(t, testWorkspaceID, list.WorkspaceID)
	assert.NotEmpty(t, list.ID)

	f.assertExpectations(t)
}

func TestCreateCallList_DuplicateActiveName(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	existing := model.NewCallList(&model.CallList{WorkspaceID: testWorkspaceID, Name: "Spring check-in"})
	f.repo.On("FindActiveCallListByName", tmock.Anything, testWorkspaceID, "Spring check-in", (*string)(nil)).
		Return(existing, nil)

	_, err := f.service.CreateCallList(context.Background(), actor, CreateCallListInput{
		Name: "Spring check-in",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	f.repo.AssertNotCalled(t, "CreateCallList", tmock.Anything, tmock.Anything)
}

func TestCreateCallList_UnresolvedGroup(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	groupID := "grp-missing"
	f.groups.On("LookupGroup", tmock.Anything, testWorkspaceID, groupID).Return(nil, nil)

	_, err := f.service.CreateCallList(context.Background(), actor, CreateCallListInput{
		Name:    "Group outreach",
		GroupID: &groupID,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestCreateCallList_RejectsBadScript(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	_, err := f.service.CreateCallList(context.Background(), actor, CreateCallListInput{
		Name: "Broken script",
		Questions: []model.Question{
			{ID: "q1", Text: "Pick one", Type: model.QuestionTypeMultipleChoice, Options: []string{"only-one"}},
		},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestUpdateCallList_ScriptFrozenWhenCompleted(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := model.NewCallList(&model.CallList{
		WorkspaceID: testWorkspaceID,
		Status:      model.CallListStatusCompleted,
	})
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)

	newName := "renamed"
	_, err := f.service.UpdateCallList(context.Background(), actor, list.ID, UpdateCallListInput{
		Name: &newName,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	f.repo.AssertNotCalled(t, "UpdateCallListFields", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestUpdateCallList_ArchivesCompletedList(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := model.NewCallList(&model.CallList{
		WorkspaceID: testWorkspaceID,
		Status:      model.CallListStatusCompleted,
	})
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)
	f.repo.On("UpdateCallListFields", tmock.Anything, testWorkspaceID, list.ID, map[string]interface{}{
		"status": model.CallListStatusArchived,
	}).Return(nil)

	archived := model.CallListStatusArchived
	_, err := f.service.UpdateCallList(context.Background(), actor, list.ID, UpdateCallListInput{
		Status: &archived,
	})
	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestUpdateCallList_StatusNeverMovesBackward(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := model.NewCallList(&model.CallList{
		WorkspaceID: testWorkspaceID,
		Status:      model.CallListStatusArchived,
	})
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)

	active := model.CallListStatusActive
	_, err := f.service.UpdateCallList(context.Background(), actor, list.ID, UpdateCallListInput{
		Status: &active,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestUpdateCallList_ScriptPatchLandsBeforeCompletion(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := model.NewCallList(&model.CallList{
		WorkspaceID: testWorkspaceID,
		Status:      model.CallListStatusActive,
	})
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)

	// A single patch may carry script edits and the COMPLETED transition;
	// the edits must land while the list is still ACTIVE.
	var order []string
	f.repo.On("UpdateCallListFields", tmock.Anything, testWorkspaceID, list.ID, tmock.Anything).
		Run(func(args tmock.Arguments) { order = append(order, "fields") }).Return(nil)
	f.repo.On("MarkCallListComplete", tmock.Anything, testWorkspaceID, list.ID, actor.MemberID).
		Run(func(args tmock.Arguments) { order = append(order, "complete") }).Return(true, nil)

	questions := []model.Question{
		{ID: "q1", Text: "Anything left to confirm?", Type: model.QuestionTypeYesNo, Order: 0},
	}
	completed := model.CallListStatusCompleted
	_, err := f.service.UpdateCallList(context.Background(), actor, list.ID, UpdateCallListInput{
		Questions: &questions,
		Status:    &completed,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fields", "complete"}, order)
}

func TestMarkCallListComplete_Idempotent(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := model.NewCallList(&model.CallList{
		WorkspaceID: testWorkspaceID,
		Status:      model.CallListStatusCompleted,
	})

	// Guarded update misses because the list is already COMPLETED; repeating
	// the call is a no-op, not an error.
	f.repo.On("MarkCallListComplete", tmock.Anything, testWorkspaceID, list.ID, actor.MemberID).Return(false, nil)
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)

	got, err := f.service.MarkCallListComplete(context.Background(), actor, list.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CallListStatusCompleted, got.Status)
	f.assertExpectations(t)
}

func TestMarkCallListComplete_ArchivedIsInvalid(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := model.NewCallList(&model.CallList{
		WorkspaceID: testWorkspaceID,
		Status:      model.CallListStatusArchived,
	})
	f.repo.On("MarkCallListComplete", tmock.Anything, testWorkspaceID, list.ID, actor.MemberID).Return(false, nil)
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)

	_, err := f.service.MarkCallListComplete(context.Background(), actor, list.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
}

func TestDeleteCallList_RefusedWhenLogsExist(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	f.repo.On("CountCallLogsForList", tmock.Anything, testWorkspaceID, "cl-1").Return(int64(4), nil)

	err := f.service.DeleteCallList(context.Background(), actor, "cl-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	f.repo.AssertNotCalled(t, "DeleteCallList", tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestDeleteCallList_RemovesEmptyList(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	f.repo.On("CountCallLogsForList", tmock.Anything, testWorkspaceID, "cl-1").Return(int64(0), nil)
	f.repo.On("DeleteCallList", tmock.Anything, testWorkspaceID, "cl-1").Return(nil)

	require.NoError(t, f.service.DeleteCallList(context.Background(), actor, "cl-1"))
	f.assertExpectations(t)
}
