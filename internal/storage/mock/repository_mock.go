package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/storage"
)

// RepositoryMock mocks the combined storage.Repository interface.
type RepositoryMock struct {
	mock.Mock
}

// --- Call List methods ---

func (m *RepositoryMock) CreateCallList(ctx context.Context, list *model.CallList) error {
	args := m.Called(ctx, list)
	return args.Error(0)
}

func (m *RepositoryMock) GetCallList(ctx context.Context, workspaceID, id string) (*model.CallList, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallList), args.Error(1)
}

func (m *RepositoryMock) FindActiveCallListByName(ctx context.Context, workspaceID, name string, groupID *string) (*model.CallList, error) {
	args := m.Called(ctx, workspaceID, name, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallList), args.Error(1)
}

func (m *RepositoryMock) ListCallLists(ctx context.Context, workspaceID string, filter storage.CallListFilter) ([]model.CallList, int64, error) {
	args := m.Called(ctx, workspaceID, filter)
	var lists []model.CallList
	if args.Get(0) != nil {
		lists = args.Get(0).([]model.CallList)
	}
	return lists, args.Get(1).(int64), args.Error(2)
}

func (m *RepositoryMock) UpdateCallListFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error {
	args := m.Called(ctx, workspaceID, id, fields)
	return args.Error(0)
}

func (m *RepositoryMock) MarkCallListComplete(ctx context.Context, workspaceID, id, completedBy string) (bool, error) {
	args := m.Called(ctx, workspaceID, id, completedBy)
	return args.Bool(0), args.Error(1)
}

func (m *RepositoryMock) DeleteCallList(ctx context.Context, workspaceID, id string) error {
	args := m.Called(ctx, workspaceID, id)
	return args.Error(0)
}

// --- Call List Item methods ---

func (m *RepositoryMock) BulkCreateItems(ctx context.Context, workspaceID string, items []*model.CallListItem) (model.ItemStats, error) {
	args := m.Called(ctx, workspaceID, items)
	return args.Get(0).(model.ItemStats), args.Error(1)
}

func (m *RepositoryMock) GetItem(ctx context.Context, workspaceID, id string) (*model.CallListItem, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallListItem), args.Error(1)
}

func (m *RepositoryMock) FindOpenItemByListAndStudent(ctx context.Context, workspaceID, callListID, studentID string) (*model.CallListItem, error) {
	args := m.Called(ctx, workspaceID, callListID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallListItem), args.Error(1)
}

func (m *RepositoryMock) ListItems(ctx context.Context, workspaceID string, filter storage.ItemFilter) ([]model.CallListItem, int64, error) {
	args := m.Called(ctx, workspaceID, filter)
	var items []model.CallListItem
	if args.Get(0) != nil {
		items = args.Get(0).([]model.CallListItem)
	}
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *RepositoryMock) CountItemsInScope(ctx context.Context, workspaceID, callListID string, itemIDs []string) (int64, error) {
	args := m.Called(ctx, workspaceID, callListID, itemIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepositoryMock) AssignItems(ctx context.Context, workspaceID, callListID string, itemIDs []string, assignee *string) (int64, error) {
	args := m.Called(ctx, workspaceID, callListID, itemIDs, assignee)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RepositoryMock) TransitionItem(ctx context.Context, workspaceID, id, fromState, toState string) (bool, error) {
	args := m.Called(ctx, workspaceID, id, fromState, toState)
	return args.Bool(0), args.Error(1)
}

func (m *RepositoryMock) UpdateItemFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error {
	args := m.Called(ctx, workspaceID, id, fields)
	return args.Error(0)
}

// --- Call Log methods ---

func (m *RepositoryMock) CompleteItem(ctx context.Context, log *model.CallLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *RepositoryMock) GetCallLog(ctx context.Context, workspaceID, id string) (*model.CallLog, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallLog), args.Error(1)
}

func (m *RepositoryMock) ListCallLogs(ctx context.Context, workspaceID string, filter storage.CallLogFilter) ([]model.CallLog, int64, error) {
	args := m.Called(ctx, workspaceID, filter)
	var logs []model.CallLog
	if args.Get(0) != nil {
		logs = args.Get(0).([]model.CallLog)
	}
	return logs, args.Get(1).(int64), args.Error(2)
}

func (m *RepositoryMock) UpdateCallLogFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error {
	args := m.Called(ctx, workspaceID, id, fields)
	return args.Error(0)
}

func (m *RepositoryMock) GetLatestCallLog(ctx context.Context, workspaceID, callListID, studentID string) (*model.CallLog, error) {
	args := m.Called(ctx, workspaceID, callListID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CallLog), args.Error(1)
}

func (m *RepositoryMock) CountCallLogsForList(ctx context.Context, workspaceID, callListID string) (int64, error) {
	args := m.Called(ctx, workspaceID, callListID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Follow-up methods ---

func (m *RepositoryMock) CreateFollowUp(ctx context.Context, followUp *model.FollowUp) error {
	args := m.Called(ctx, followUp)
	return args.Error(0)
}

func (m *RepositoryMock) GetFollowUp(ctx context.Context, workspaceID, id string) (*model.FollowUp, error) {
	args := m.Called(ctx, workspaceID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FollowUp), args.Error(1)
}

func (m *RepositoryMock) ListFollowUps(ctx context.Context, workspaceID string, filter storage.FollowUpFilter) ([]model.FollowUp, int64, error) {
	args := m.Called(ctx, workspaceID, filter)
	var followUps []model.FollowUp
	if args.Get(0) != nil {
		followUps = args.Get(0).([]model.FollowUp)
	}
	return followUps, args.Get(1).(int64), args.Error(2)
}

func (m *RepositoryMock) UpdateFollowUpFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error {
	args := m.Called(ctx, workspaceID, id, fields)
	return args.Error(0)
}

// Close mocks the Close method.
func (m *RepositoryMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
