package list

import (
	"context"
	"log/slog"

	"github.com/shoplist/shoplist-go/internal/optimistic"
)

// ListsView is the reconciled list-of-lists for one signed-in user. New
// lists are optimistically prepended (most-recent-first); the authoritative
// sort order takes over on the next Refresh.
type ListsView struct {
	backend Backend
	self    UserRef
	store   *optimistic.Store[List]
	co      *optimistic.Coordinator
	opts    viewOpts
	logger  *slog.Logger
}

// NewListsView creates a view seeded with the authoritative snapshot.
func NewListsView(backend Backend, self UserRef, snapshot []List, opts ...Option) *ListsView {
	o := buildOpts(opts)
	return &ListsView{
		backend: backend,
		self:    self,
		store:   optimistic.NewStore(snapshot),
		co:      o.coordinator(),
		opts:    o,
		logger:  o.logger,
	}
}

// Lists returns the current reconciled collection.
func (v *ListsView) Lists() []List { return v.store.View() }

// Get returns the list with the given id from the current view.
func (v *ListsView) Get(id string) (List, bool) { return v.store.Get(id) }

// Busy reports whether a mutation for the given list id is unresolved.
// The rendering layer disables the list's controls while true.
func (v *ListsView) Busy(id string) bool { return v.co.InFlight(id) }

// Refresh replaces the view wholesale with the authoritative snapshot.
func (v *ListsView) Refresh(ctx context.Context) error {
	lists, err := v.backend.FetchLists(ctx)
	if err != nil {
		return err
	}
	v.store.Reset(lists)
	return nil
}

// CreateList adds a list optimistically and round-trips the create. The
// tentative entity carries the acting user as owner and empty item/share
// collections so it renders plausibly before the server confirms it. On
// success the authoritative record is returned; on failure the tentative
// entry is removed and the error returned so the input can keep its text.
func (v *ListsView) CreateList(ctx context.Context, title string) (List, error) {
	if err := ValidateTitle(title); err != nil {
		return List{}, err
	}

	tentative := List{
		ID:      NewTempID(),
		Title:   title,
		OwnerID: v.self.ID,
		Owner:   v.self,
	}

	var created *List
	_, err := v.co.Run(ctx, optimistic.Mutation{
		Op:       "create-list",
		EntityID: tentative.ID,
		Apply: func() {
			v.store.Apply(optimistic.Add[List]{Entity: tentative, At: optimistic.Head})
		},
		Call: func(ctx context.Context) error {
			l, err := v.backend.CreateList(ctx, title)
			created = l
			return err
		},
		Commit: func() {
			v.store.Apply(optimistic.Replace[List]{ID: tentative.ID, Entity: *created})
		},
		Rollback: func() {
			v.store.Apply(optimistic.Delete[List]{ID: tentative.ID})
		},
	})
	if err != nil {
		return List{}, err
	}
	return *created, nil
}

// RenameList changes a list's title optimistically, reverting to the
// original title when the server reports failure (e.g. a non-owner rename).
func (v *ListsView) RenameList(ctx context.Context, listID, title string) error {
	if err := ValidateTitle(title); err != nil {
		return err
	}
	prev, ok := v.store.Get(listID)
	if !ok {
		return ErrNotInView
	}

	_, err := v.co.Run(ctx, optimistic.Mutation{
		Op:       "rename-list",
		EntityID: listID,
		Apply: func() {
			v.store.Apply(optimistic.Update[List]{ID: listID, Fn: func(l List) List {
				l.Title = title
				return l
			}})
		},
		Call: func(ctx context.Context) error {
			return v.backend.RenameList(ctx, listID, title)
		},
		Rollback: func() {
			v.store.Apply(optimistic.Update[List]{ID: listID, Fn: func(l List) List {
				l.Title = prev.Title
				return l
			}})
		},
	})
	return err
}

// DeleteList removes a list optimistically. The rollback restores the exact
// pre-deletion value captured here, nested items and shares included, at the
// list's original snapshot position.
func (v *ListsView) DeleteList(ctx context.Context, listID string) error {
	return v.remove(ctx, "delete-list", listID, v.backend.DeleteList)
}

// LeaveList removes a shared list from the viewer's list-of-lists. Same
// optimistic shape as DeleteList with a different authorization predicate on
// the server: any shared user may leave, only the owner may delete.
func (v *ListsView) LeaveList(ctx context.Context, listID string) error {
	return v.remove(ctx, "leave-list", listID, v.backend.LeaveList)
}

func (v *ListsView) remove(ctx context.Context, op, listID string, call func(context.Context, string) error) error {
	prev, ok := v.store.Get(listID)
	if !ok {
		return ErrNotInView
	}

	_, err := v.co.Run(ctx, optimistic.Mutation{
		Op:       op,
		EntityID: listID,
		Apply: func() {
			v.store.Apply(optimistic.Delete[List]{ID: listID})
		},
		Call: func(ctx context.Context) error {
			return call(ctx, listID)
		},
		Rollback: func() {
			v.store.Apply(optimistic.Restore[List]{ID: listID, Entity: prev})
		},
	})
	return err
}

// OpenList creates a single-list view over the given list's items and shared
// users, inheriting this view's options.
func (v *ListsView) OpenList(l List, opts ...Option) *ListView {
	merged := append([]Option{
		WithTimeout(v.opts.timeout),
		WithLogger(v.opts.logger),
	}, opts...)
	if v.opts.notify != nil {
		merged = append([]Option{WithNoticeFunc(v.opts.notify)}, merged...)
	}
	return NewListView(v.backend, v.self, l, merged...)
}
