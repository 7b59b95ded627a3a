package list

import (
	"context"
	"fmt"
)

// Backend is the authoritative mutation interface the views reconcile
// against. Every method round-trips to the backing store; a nil error is a
// commit, any error is a rollback. Structured server failures arrive as
// *BackendError; transport failures and timeouts arrive as plain errors and
// are handled identically.
type Backend interface {
	// Snapshot supply. The views call these only on a full refresh.
	FetchLists(ctx context.Context) ([]List, error)
	FetchList(ctx context.Context, listID string) (*List, error)

	// List lifecycle (owner only, except LeaveList).
	CreateList(ctx context.Context, title string) (*List, error)
	RenameList(ctx context.Context, listID, title string) error
	DeleteList(ctx context.Context, listID string) error
	LeaveList(ctx context.Context, listID string) error

	// Item lifecycle (owner or shared user).
	AddItem(ctx context.Context, listID, name string) (*Item, error)
	RenameItem(ctx context.Context, listID, itemID, name string) error
	SetItemCompleted(ctx context.Context, listID, itemID string, completed bool) error
	DeleteItem(ctx context.Context, listID, itemID string) error

	// Sharing (owner only).
	InviteUser(ctx context.Context, listID, email string) (*SharedUser, error)
	RevokeShare(ctx context.Context, listID, userID string) error
}

// BackendError is a structured failure outcome reported by the server, as
// opposed to a transport-level failure. Reason carries the server's stable
// reason code; Message is human-readable.
type BackendError struct {
	Reason  string
	Message string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed: %s", e.Reason)
}
