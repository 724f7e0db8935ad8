package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
)

func TestGetCallContext_ResolvesListAndLatestLog(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	questions := []model.Question{
		{ID: "q1", Text: "Still interested?", Type: model.QuestionTypeYesNo, Required: true, Order: 0},
	}
	list := scriptedList(t, questions)
	followUp := model.NewFollowUp(&model.FollowUp{
		WorkspaceID: testWorkspaceID,
		CallListID:  &list.ID,
	})
	lastLog := model.NewCallLog(&model.CallLog{
		WorkspaceID: testWorkspaceID,
		CallListID:  list.ID,
		StudentID:   followUp.StudentID,
	})

	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)
	f.repo.On("GetLatestCallLog", tmock.Anything, testWorkspaceID, list.ID, followUp.StudentID).Return(lastLog, nil)

	callContext, err := f.service.GetCallContext(context.Background(), actor, followUp.ID)
	require.NoError(t, err)

	assert.Equal(t, followUp.ID, callContext.FollowUp.ID)
	require.NotNil(t, callContext.CallList)
	assert.Equal(t, list.ID, callContext.CallList.ID)
	require.NotNil(t, callContext.LastCallLog)
	assert.Equal(t, lastLog.ID, callContext.LastCallLog.ID)
	require.Len(t, callContext.Questions, 1)
	assert.Equal(t, "q1", callContext.Questions[0].ID)

	f.assertExpectations(t)
}

func TestGetCallContext_AdHocFollowUpHasNullContext(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	followUp := model.NewFollowUp(&model.FollowUp{WorkspaceID: testWorkspaceID})
	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)

	callContext, err := f.service.GetCallContext(context.Background(), actor, followUp.ID)
	require.NoError(t, err)

	assert.Nil(t, callContext.CallList)
	assert.Nil(t, callContext.LastCallLog)
	assert.Empty(t, callContext.Questions)
	f.repo.AssertNotCalled(t, "GetCallList", tmock.Anything, tmock.Anything, tmock.Anything)
}

func TestGetCallContext_FirstCallOnListHasNoLog(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	list := scriptedList(t, nil)
	followUp := model.NewFollowUp(&model.FollowUp{
		WorkspaceID: testWorkspaceID,
		CallListID:  &list.ID,
	})

	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)
	f.repo.On("GetLatestCallLog", tmock.Anything, testWorkspaceID, list.ID, followUp.StudentID).
		Return(nil, fmt.Errorf("%w: no call log", apperrors.ErrNotFound))

	callContext, err := f.service.GetCallContext(context.Background(), actor, followUp.ID)
	require.NoError(t, err)
	require.NotNil(t, callContext.CallList)
	assert.Nil(t, callContext.LastCallLog)
}

func TestGetCallContext_CorruptScriptColumnsTolerated(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	list := model.NewCallList(&model.CallList{
		WorkspaceID: testWorkspaceID,
		Messages:    datatypes.JSON(`{"not an array`),
		Questions:   datatypes.JSON(`{"not an array`),
	})
	followUp := model.NewFollowUp(&model.FollowUp{
		WorkspaceID: testWorkspaceID,
		CallListID:  &list.ID,
	})

	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)
	f.repo.On("GetLatestCallLog", tmock.Anything, testWorkspaceID, list.ID, followUp.StudentID).
		Return(nil, fmt.Errorf("%w: no call log", apperrors.ErrNotFound))

	callContext, err := f.service.GetCallContext(context.Background(), actor, followUp.ID)
	require.NoError(t, err)
	require.NotNil(t, callContext.CallList)
	assert.Empty(t, callContext.Messages)
	assert.Empty(t, callContext.Questions)
}

func TestCreateFollowUp_Success(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	list := scriptedList(t, nil)
	dueDate := model.NewFollowUp().DueDate

	var created *model.FollowUp
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)
	f.repo.On("CreateFollowUp", tmock.Anything, tmock.AnythingOfType("*model.FollowUp")).
		Run(func(args tmock.Arguments) {
			created = args.Get(1).(*model.FollowUp)
		}).Return(nil)

	followUp, err := f.service.CreateFollowUp(context.Background(), actor, CreateFollowUpInput{
		StudentID:  "stu-1",
		CallListID: &list.ID,
		DueDate:    &dueDate,
		Note:       "call after exam week",
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, model.FollowUpStatusPending, followUp.Status)
	assert.Equal(t, "stu-1", followUp.StudentID)
	f.assertExpectations(t)
}

func TestCreateFollowUp_RequiresDueDate(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	_, err := f.service.CreateFollowUp(context.Background(), actor, CreateFollowUpInput{
		StudentID: "stu-1",
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestCompleteFollowUpCall_ReusesOpenItem(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := scriptedList(t, nil)
	followUp := model.NewFollowUp(&model.FollowUp{
		WorkspaceID: testWorkspaceID,
		CallListID:  &list.ID,
	})
	openItem := model.NewCallListItem(&model.CallListItem{
		WorkspaceID: testWorkspaceID,
		CallListID:  list.ID,
		StudentID:   followUp.StudentID,
		State:       model.ItemStateQueued,
	})

	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)
	f.repo.On("FindOpenItemByListAndStudent", tmock.Anything, testWorkspaceID, list.ID, followUp.StudentID).
		Return(openItem, nil)
	f.repo.On("GetItem", tmock.Anything, testWorkspaceID, openItem.ID).Return(openItem, nil)
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)
	f.repo.On("CompleteItem", tmock.Anything, tmock.AnythingOfType("*model.CallLog")).Return(nil)
	f.repo.On("UpdateFollowUpFields", tmock.Anything, testWorkspaceID, followUp.ID, tmock.Anything).Return(nil)
	f.dispatcher.On("SubmitTask", tmock.AnythingOfType("enrichment.TaskData")).Return(nil)

	log, err := f.service.CompleteFollowUpCall(context.Background(), actor, followUp.ID, CompleteFollowUpInput{
		Call: CompleteCallInput{Status: model.CallStatusMissed},
	})
	require.NoError(t, err)
	assert.Equal(t, openItem.ID, log.CallListItemID)
	f.assertExpectations(t)
}

func TestCompleteFollowUpCall_CreatesFreshItemWhenNoneOpen(t *testing.T) {
	f := newServiceFixture(t)
	f.allowAll()
	actor := testActor()

	list := scriptedList(t, nil)
	followUp := model.NewFollowUp(&model.FollowUp{
		WorkspaceID: testWorkspaceID,
		CallListID:  &list.ID,
	})

	var freshItem *model.CallListItem
	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)
	f.repo.On("FindOpenItemByListAndStudent", tmock.Anything, testWorkspaceID, list.ID, followUp.StudentID).
		Return(nil, fmt.Errorf("%w: no open item", apperrors.ErrNotFound))
	f.repo.On("BulkCreateItems", tmock.Anything, testWorkspaceID, tmock.AnythingOfType("[]*model.CallListItem")).
		Run(func(args tmock.Arguments) {
			items := args.Get(2).([]*model.CallListItem)
			freshItem = items[0]
			f.repo.On("GetItem", tmock.Anything, testWorkspaceID, freshItem.ID).Return(freshItem, nil)
		}).Return(model.ItemStats{Created: 1}, nil)
	f.repo.On("GetCallList", tmock.Anything, testWorkspaceID, list.ID).Return(list, nil)
	f.repo.On("CompleteItem", tmock.Anything, tmock.AnythingOfType("*model.CallLog")).Return(nil)
	f.repo.On("UpdateFollowUpFields", tmock.Anything, testWorkspaceID, followUp.ID, tmock.Anything).Return(nil)
	f.dispatcher.On("SubmitTask", tmock.AnythingOfType("enrichment.TaskData")).Return(nil)

	log, err := f.service.CompleteFollowUpCall(context.Background(), actor, followUp.ID, CompleteFollowUpInput{
		Call: CompleteCallInput{Status: model.CallStatusVoicemail},
	})
	require.NoError(t, err)
	require.NotNil(t, freshItem)
	assert.Equal(t, followUp.StudentID, freshItem.StudentID)
	assert.Equal(t, list.ID, freshItem.CallListID)
	assert.Equal(t, freshItem.ID, log.CallListItemID)
}

func TestCompleteFollowUpCall_AdHocNeedsExplicitItem(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	followUp := model.NewFollowUp(&model.FollowUp{WorkspaceID: testWorkspaceID})
	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)

	_, err := f.service.CompleteFollowUpCall(context.Background(), actor, followUp.ID, CompleteFollowUpInput{
		Call: CompleteCallInput{Status: model.CallStatusCompleted},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestCompleteFollowUpCall_RejectsItemForAnotherStudent(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	followUp := model.NewFollowUp(&model.FollowUp{WorkspaceID: testWorkspaceID})
	foreign := model.NewCallListItem(&model.CallListItem{WorkspaceID: testWorkspaceID})

	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)
	f.repo.On("GetItem", tmock.Anything, testWorkspaceID, foreign.ID).Return(foreign, nil)

	_, err := f.service.CompleteFollowUpCall(context.Background(), actor, followUp.ID, CompleteFollowUpInput{
		ItemID: foreign.ID,
		Call:   CompleteCallInput{Status: model.CallStatusCompleted},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	f.repo.AssertNotCalled(t, "CompleteItem", tmock.Anything, tmock.Anything)
}

func TestCompleteFollowUpCall_RejectsItemFromAnotherList(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	list := scriptedList(t, nil)
	followUp := model.NewFollowUp(&model.FollowUp{
		WorkspaceID: testWorkspaceID,
		CallListID:  &list.ID,
	})
	elsewhere := model.NewCallListItem(&model.CallListItem{
		WorkspaceID: testWorkspaceID,
		StudentID:   followUp.StudentID,
	})

	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)
	f.repo.On("GetItem", tmock.Anything, testWorkspaceID, elsewhere.ID).Return(elsewhere, nil)

	_, err := f.service.CompleteFollowUpCall(context.Background(), actor, followUp.ID, CompleteFollowUpInput{
		ItemID: elsewhere.ID,
		Call:   CompleteCallInput{Status: model.CallStatusCompleted},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	f.repo.AssertNotCalled(t, "CompleteItem", tmock.Anything, tmock.Anything)
}

func TestCompleteFollowUpCall_ClosedFollowUpConflicts(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	followUp := model.NewFollowUp(&model.FollowUp{
		WorkspaceID: testWorkspaceID,
		Status:      model.FollowUpStatusCompleted,
	})
	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)

	_, err := f.service.CompleteFollowUpCall(context.Background(), actor, followUp.ID, CompleteFollowUpInput{
		Call: CompleteCallInput{Status: model.CallStatusCompleted},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
}

func TestCancelFollowUp_OnlyPendingCanCancel(t *testing.T) {
	f := newServiceFixture(t)
	actor := testActor()

	followUp := model.NewFollowUp(&model.FollowUp{
		WorkspaceID: testWorkspaceID,
		Status:      model.FollowUpStatusCancelled,
	})
	f.repo.On("GetFollowUp", tmock.Anything, testWorkspaceID, followUp.ID).Return(followUp, nil)

	_, err := f.service.CancelFollowUp(context.Background(), actor, followUp.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsConflictError(err))
	f.repo.AssertNotCalled(t, "UpdateFollowUpFields", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything)
}
