package usecase

import (
	"context"
	"testing"

	tmock "github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/enrichment"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/storage/mock"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/tenant"
	"gitlab.com/stellar-edu/api/outreach-call-service/pkg/logger"
)

const testWorkspaceID = "ws-test-123"

func testActor() tenant.Actor {
	return tenant.Actor{
		WorkspaceID: testWorkspaceID,
		MemberID:    "member-1",
		Role:        tenant.RoleSupervisor,
	}
}

// --- Collaborator mocks ---

type policyMock struct {
	tmock.Mock
}

func (m *policyMock) Allow(ctx context.Context, actor tenant.Actor, action, resource string) (bool, error) {
	args := m.Called(ctx, actor, action, resource)
	return args.Bool(0), args.Error(1)
}

type directoryMock struct {
	tmock.Mock
}

func (m *directoryMock) LookupStudents(ctx context.Context, workspaceID string, filter StudentFilter) ([]string, error) {
	args := m.Called(ctx, workspaceID, filter)
	var ids []string
	if args.Get(0) != nil {
		ids = args.Get(0).([]string)
	}
	return ids, args.Error(1)
}

type groupCatalogMock struct {
	tmock.Mock
}

func (m *groupCatalogMock) LookupGroup(ctx context.Context, workspaceID, groupID string) (*Group, error) {
	args := m.Called(ctx, workspaceID, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Group), args.Error(1)
}

type dispatcherMock struct {
	tmock.Mock
}

func (m *dispatcherMock) SubmitTask(taskData enrichment.TaskData) error {
	args := m.Called(taskData)
	return args.Error(0)
}

func (m *dispatcherMock) Stop() {
	m.Called()
}

type serviceFixture struct {
	service    *CallService
	repo       *mock.RepositoryMock
	policy     *policyMock
	directory  *directoryMock
	groups     *groupCatalogMock
	dispatcher *dispatcherMock
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	logger.Log = zaptest.NewLogger(t).Named("test")
	f := &serviceFixture{
		repo:       new(mock.RepositoryMock),
		policy:     new(policyMock),
		directory:  new(directoryMock),
		groups:     new(groupCatalogMock),
		dispatcher: new(dispatcherMock),
	}
	f.service = NewCallService(f.repo, f.directory, f.groups, f.policy, f.dispatcher, zaptest.NewLogger(t))
	return f
}

func (f *serviceFixture) allowAll() {
	f.policy.On("Allow", tmock.Anything, tmock.Anything, tmock.Anything, tmock.Anything).Return(true, nil)
}

func (f *serviceFixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.repo.AssertExpectations(t)
	f.policy.AssertExpectations(t)
	f.directory.AssertExpectations(t)
	f.groups.AssertExpectations(t)
	f.dispatcher.AssertExpectations(t)
}
