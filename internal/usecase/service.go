// Package usecase implements the outreach-call workflows: catalog
// management, queue state transitions, assignment, call completion and
// follow-up context resolution. Every operation takes an explicit
// tenant.Actor; nothing here reads ambient identity.
package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/apperrors"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/enrichment"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/script"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/storage"
	"gitlab.com/stellar-edu/api/outreach-call-service/internal/tenant"
)

// Actions checked against the policy collaborator.
const (
	ActionAdministerCallList = "call_list:administer"
	ActionAssignItems        = "call_list_item:assign"
	ActionCompleteCall       = "call_log:complete"
	ActionEditCallLog        = "call_log:edit"
)

// StudentFilter selects students from the external directory.
type StudentFilter struct {
	GroupID string   `json:"group_id,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Group is the slice of the external group catalog this core cares about.
type Group struct {
	ID   string
	Name string
}

// StudentDirectory resolves student sets; student records are owned
// elsewhere.
type StudentDirectory interface {
	LookupStudents(ctx context.Context, workspaceID string, filter StudentFilter) ([]string, error)
}

// GroupCatalog validates group references; returns nil when the group does
// not resolve in the workspace.
type GroupCatalog interface {
	LookupGroup(ctx context.Context, workspaceID, groupID string) (*Group, error)
}

// PolicyGuard answers permission questions. The core records who acted but
// never evaluates roles itself.
type PolicyGuard interface {
	Allow(ctx context.Context, actor tenant.Actor, action, resource string) (bool, error)
}

// CallService coordinates the outbound-call workflows on top of the
// repository and the external collaborators.
type CallService struct {
	repo       storage.Repository
	students   StudentDirectory
	groups     GroupCatalog
	policy     PolicyGuard
	dispatcher enrichment.IDispatcher
	baseLogger *zap.Logger
}

// NewCallService wires the service. dispatcher may be nil when enrichment
// dispatch is disabled.
func NewCallService(
	repo storage.Repository,
	students StudentDirectory,
	groups GroupCatalog,
	policy PolicyGuard,
	dispatcher enrichment.IDispatcher,
	baseLogger *zap.Logger,
) *CallService {
	return &CallService{
		repo:       repo,
		students:   students,
		groups:     groups,
		policy:     policy,
		dispatcher: dispatcher,
		baseLogger: baseLogger.Named("call_service"),
	}
}

// requireActor rejects operations with an unresolved identity.
func requireActor(actor tenant.Actor) error {
	if !actor.Valid() {
		return fmt.Errorf("%w: operation requires a resolved workspace actor", apperrors.ErrUnauthorized)
	}
	return nil
}

// authorize consults the policy collaborator and maps denial to Forbidden.
func (s *CallService) authorize(ctx context.Context, actor tenant.Actor, action, resource string) error {
	allowed, err := s.policy.Allow(ctx, actor, action, resource)
	if err != nil {
		return fmt.Errorf("policy check for %s failed: %w", action, err)
	}
	if !allowed {
		return fmt.Errorf("%w: actor %s may not %s on %s", apperrors.ErrForbidden, actor.MemberID, action, resource)
	}
	return nil
}

// AnswerValidationError carries the field-addressed schema violations from
// a rejected completion payload.
type AnswerValidationError struct {
	Fields []script.FieldError
}

func (e *AnswerValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Error())
	}
	return fmt.Sprintf("%v: %s", apperrors.ErrValidation, strings.Join(msgs, "; "))
}

// Unwrap makes the error match apperrors.ErrValidation.
func (e *AnswerValidationError) Unwrap() error {
	return apperrors.ErrValidation
}

func newValidationError(field, message string) error {
	return &AnswerValidationError{Fields: []script.FieldError{{Field: field, Message: message}}}
}
