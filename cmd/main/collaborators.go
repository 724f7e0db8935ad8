package main

import (
	"context"

	"go.uber.org/zap"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/tenant"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/usecase"
)

// The student directory, group catalog and policy evaluation are owned by
// other services. These are the standalone-deployment stand-ins wired when
// no collaborator endpoints are configured.

// rolePolicy grants permissions from the role header alone: admins and
// supervisors administer and assign, every resolved member completes and
// edits their calls.
type rolePolicy struct{}

func (rolePolicy) Allow(_ context.Context, actor tenant.Actor, action, _ string) (bool, error) {
	switch action {
	case usecase.ActionAdministerCallList, usecase.ActionAssignItems:
		return actor.CanAdminister(), nil
	case usecase.ActionCompleteCall, usecase.ActionEditCallLog:
		return actor.Valid(), nil
	}
	return false, nil
}

// emptyDirectory resolves no students; callers must name student ids
// explicitly until a directory endpoint is wired.
type emptyDirectory struct {
	logger *zap.Logger
}

func (d emptyDirectory) LookupStudents(_ context.Context, workspaceID string, filter usecase.StudentFilter) ([]string, error) {
	d.logger.Warn("Student directory not configured; filter resolved to zero students",
		zap.String("workspace_id", workspaceID),
		zap.String("group_id", filter.GroupID))
	return nil, nil
}

// trustingGroupCatalog accepts any group reference as existing. Group
// integrity is enforced by the owning service.
type trustingGroupCatalog struct{}

func (trustingGroupCatalog) LookupGroup(_ context.Context, _, groupID string) (*usecase.Group, error) {
	return &usecase.Group{ID: groupID}, nil
}
