package storage

import (
	"context"

	"gitlab.com/stellar-edu/api/outreach-call-service/internal/model"
)

// CallListFilter narrows call list catalog queries.
type CallListFilter struct {
	Status  string
	GroupID string
	Name    string
	Limit   int
	Offset  int
}

// ItemFilter narrows queue listings. Zero values mean "no constraint".
type ItemFilter struct {
	CallListID string
	State      string
	AssignedTo string
	StudentID  string
	Limit      int
	Offset     int
}

// CallLogFilter narrows ledger listings.
type CallLogFilter struct {
	CallListID string
	StudentID  string
	CallerID   string
	Status     string
	Limit      int
	Offset     int
}

// FollowUpFilter narrows follow-up listings. DueBefore is compared against
// the due date inclusively.
type FollowUpFilter struct {
	StudentID string
	Status    string
	DueBefore string
	Limit     int
	Offset    int
}

// CallListRepository persists catalog entries.
type CallListRepository interface {
	CreateCallList(ctx context.Context, list *model.CallList) error
	GetCallList(ctx context.Context, workspaceID, id string) (*model.CallList, error)
	FindActiveCallListByName(ctx context.Context, workspaceID, name string, groupID *string) (*model.CallList, error)
	ListCallLists(ctx context.Context, workspaceID string, filter CallListFilter) ([]model.CallList, int64, error)
	UpdateCallListFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error
	// MarkCallListComplete is a guarded transition: it only fires while the
	// list is still ACTIVE and reports whether a row changed.
	MarkCallListComplete(ctx context.Context, workspaceID, id, completedBy string) (bool, error)
	DeleteCallList(ctx context.Context, workspaceID, id string) error
}

// CallItemRepository persists queue entries and runs the state machine's
// conditional writes.
type CallItemRepository interface {
	BulkCreateItems(ctx context.Context, workspaceID string, items []*model.CallListItem) (model.ItemStats, error)
	GetItem(ctx context.Context, workspaceID, id string) (*model.CallListItem, error)
	// FindOpenItemByListAndStudent returns the single QUEUED or CALLING
	// item for a (call list, student) pair, or ErrNotFound.
	FindOpenItemByListAndStudent(ctx context.Context, workspaceID, callListID, studentID string) (*model.CallListItem, error)
	ListItems(ctx context.Context, workspaceID string, filter ItemFilter) ([]model.CallListItem, int64, error)
	// CountItemsInScope verifies every id belongs to (workspace, list);
	// bulk authorization-sensitive writes use it for all-or-nothing checks.
	CountItemsInScope(ctx context.Context, workspaceID, callListID string, itemIDs []string) (int64, error)
	AssignItems(ctx context.Context, workspaceID, callListID string, itemIDs []string, assignee *string) (int64, error)
	// TransitionItem performs a state-guarded update; it reports false when
	// the row was not in fromState anymore (lost race or illegal move).
	TransitionItem(ctx context.Context, workspaceID, id, fromState, toState string) (bool, error)
	UpdateItemFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error
}

// CallLogRepository persists the append-only ledger. CompleteItem is the
// only write path that moves an item to DONE.
type CallLogRepository interface {
	// CompleteItem inserts the log and flips the owning item to DONE in one
	// transaction. A lost race or an already-completed item yields
	// ErrConflict; a terminal SKIPPED item yields ErrInvalidTransition.
	CompleteItem(ctx context.Context, log *model.CallLog) error
	GetCallLog(ctx context.Context, workspaceID, id string) (*model.CallLog, error)
	ListCallLogs(ctx context.Context, workspaceID string, filter CallLogFilter) ([]model.CallLog, int64, error)
	UpdateCallLogFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error
	// GetLatestCallLog returns the most recent log by call date for a
	// (call list, student) pair, or ErrNotFound.
	GetLatestCallLog(ctx context.Context, workspaceID, callListID, studentID string) (*model.CallLog, error)
	CountCallLogsForList(ctx context.Context, workspaceID, callListID string) (int64, error)
}

// FollowUpRepository persists follow-up reminders.
type FollowUpRepository interface {
	CreateFollowUp(ctx context.Context, followUp *model.FollowUp) error
	GetFollowUp(ctx context.Context, workspaceID, id string) (*model.FollowUp, error)
	ListFollowUps(ctx context.Context, workspaceID string, filter FollowUpFilter) ([]model.FollowUp, int64, error)
	UpdateFollowUpFields(ctx context.Context, workspaceID, id string, fields map[string]interface{}) error
}

// Repository aggregates all persistence concerns behind one handle.
type Repository interface {
	CallListRepository
	CallItemRepository
	CallLogRepository
	FollowUpRepository
	Close(ctx context.Context) error
}
