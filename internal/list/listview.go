package list

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shoplist/shoplist-go/internal/optimistic"
)

// ListView is the reconciled single-list page: the list's items (creation
// order, new items appended) and its shared users. The item store and the
// shared-user store are independently optimistic.
type ListView struct {
	backend Backend
	self    UserRef
	listID  string
	owner   UserRef
	items   *optimistic.Store[Item]
	shares  *optimistic.Store[SharedUser]
	co      *optimistic.Coordinator
	logger  *slog.Logger
}

// NewListView creates a view over one list, seeded from its snapshot.
func NewListView(backend Backend, self UserRef, l List, opts ...Option) *ListView {
	o := buildOpts(opts)
	return &ListView{
		backend: backend,
		self:    self,
		listID:  l.ID,
		owner:   l.Owner,
		items:   optimistic.NewStore(l.Items),
		shares:  optimistic.NewStore(l.Shared),
		co:      o.coordinator(),
		logger:  o.logger,
	}
}

// ListID returns the id of the list this view is bound to.
func (v *ListView) ListID() string { return v.listID }

// Items returns the current reconciled item collection.
func (v *ListView) Items() []Item { return v.items.View() }

// SharedUsers returns the current reconciled shared-user collection.
func (v *ListView) SharedUsers() []SharedUser { return v.shares.View() }

// Busy reports whether a mutation for the given entity id is unresolved.
func (v *ListView) Busy(id string) bool { return v.co.InFlight(id) }

// Refresh replaces both stores wholesale with the authoritative snapshot.
func (v *ListView) Refresh(ctx context.Context) error {
	l, err := v.backend.FetchList(ctx, v.listID)
	if err != nil {
		return err
	}
	v.owner = l.Owner
	v.items.Reset(l.Items)
	v.shares.Reset(l.Shared)
	return nil
}

// AddItem appends an item optimistically, attributed to the acting user, and
// round-trips the create. On success the tentative entity is replaced in
// place by the authoritative record; on failure it is removed so the input
// can restore the typed text.
func (v *ListView) AddItem(ctx context.Context, name string) (Item, error) {
	if err := ValidateItemName(name); err != nil {
		return Item{}, err
	}

	addedBy := v.self
	tentative := Item{
		ID:      NewTempID(),
		ListID:  v.listID,
		Name:    name,
		AddedBy: &addedBy,
	}

	var created *Item
	_, err := v.co.Run(ctx, optimistic.Mutation{
		Op:       "add-item",
		EntityID: tentative.ID,
		Apply: func() {
			v.items.Apply(optimistic.Add[Item]{Entity: tentative, At: optimistic.Tail})
		},
		Call: func(ctx context.Context) error {
			it, err := v.backend.AddItem(ctx, v.listID, name)
			created = it
			return err
		},
		Commit: func() {
			v.items.Apply(optimistic.Replace[Item]{ID: tentative.ID, Entity: *created})
		},
		Rollback: func() {
			v.items.Apply(optimistic.Delete[Item]{ID: tentative.ID})
		},
	})
	if err != nil {
		return Item{}, err
	}
	return *created, nil
}

// RenameItem changes an item's name optimistically with a compensating
// rename on failure.
func (v *ListView) RenameItem(ctx context.Context, itemID, name string) error {
	if err := ValidateItemName(name); err != nil {
		return err
	}
	prev, ok := v.items.Get(itemID)
	if !ok {
		return ErrNotInView
	}

	_, err := v.co.Run(ctx, optimistic.Mutation{
		Op:       "rename-item",
		EntityID: itemID,
		Apply: func() {
			v.items.Apply(optimistic.Update[Item]{ID: itemID, Fn: func(i Item) Item {
				i.Name = name
				return i
			}})
		},
		Call: func(ctx context.Context) error {
			return v.backend.RenameItem(ctx, v.listID, itemID, name)
		},
		Rollback: func() {
			v.items.Apply(optimistic.Update[Item]{ID: itemID, Fn: func(i Item) Item {
				i.Name = prev.Name
				return i
			}})
		},
	})
	return err
}

// ToggleItem flips an item's completed flag optimistically. Rapid repeated
// toggles on the same item are serialized by the coordinator latch; callers
// should disable the control while Busy(itemID) is true.
func (v *ListView) ToggleItem(ctx context.Context, itemID string) error {
	prev, ok := v.items.Get(itemID)
	if !ok {
		return ErrNotInView
	}
	target := !prev.Completed

	_, err := v.co.Run(ctx, optimistic.Mutation{
		Op:       "toggle-item",
		EntityID: itemID,
		Apply: func() {
			v.items.Apply(optimistic.Update[Item]{ID: itemID, Fn: func(i Item) Item {
				i.Completed = target
				return i
			}})
		},
		Call: func(ctx context.Context) error {
			return v.backend.SetItemCompleted(ctx, v.listID, itemID, target)
		},
		Rollback: func() {
			v.items.Apply(optimistic.Update[Item]{ID: itemID, Fn: func(i Item) Item {
				i.Completed = prev.Completed
				return i
			}})
		},
	})
	return err
}

// DeleteItem removes an item optimistically, restoring the exact captured
// value at its original position on failure.
func (v *ListView) DeleteItem(ctx context.Context, itemID string) error {
	prev, ok := v.items.Get(itemID)
	if !ok {
		return ErrNotInView
	}

	_, err := v.co.Run(ctx, optimistic.Mutation{
		Op:       "delete-item",
		EntityID: itemID,
		Apply: func() {
			v.items.Apply(optimistic.Delete[Item]{ID: itemID})
		},
		Call: func(ctx context.Context) error {
			return v.backend.DeleteItem(ctx, v.listID, itemID)
		},
		Rollback: func() {
			v.items.Apply(optimistic.Restore[Item]{ID: itemID, Entity: prev})
		},
	})
	return err
}

// Invite grants a user access by email. The invite is rejected locally when
// it targets the owner or a user already in the shared set, so rapid
// repeated submission cannot produce duplicate tentative entries. The
// tentative entity is keyed by lowercased email until the server resolves
// the registered user, then replaced in place by the id-keyed record.
func (v *ListView) Invite(ctx context.Context, email string) (SharedUser, error) {
	if err := ValidateEmail(email); err != nil {
		return SharedUser{}, err
	}
	email = strings.TrimSpace(email)
	if strings.EqualFold(email, v.owner.Email) {
		return SharedUser{}, ErrSelfInvite
	}
	if v.alreadyShared(email) {
		return SharedUser{}, ErrAlreadyShared
	}

	tentative := SharedUser{Email: email}
	key := tentative.EntityID()

	var resolved *SharedUser
	_, err := v.co.Run(ctx, optimistic.Mutation{
		Op:       "invite-share",
		EntityID: key,
		Apply: func() {
			v.shares.Apply(optimistic.Add[SharedUser]{Entity: tentative, At: optimistic.Tail})
		},
		Call: func(ctx context.Context) error {
			su, err := v.backend.InviteUser(ctx, v.listID, email)
			resolved = su
			return err
		},
		Commit: func() {
			v.shares.Apply(optimistic.Replace[SharedUser]{ID: key, Entity: *resolved})
		},
		Rollback: func() {
			v.shares.Apply(optimistic.Delete[SharedUser]{ID: key})
		},
	})
	if err != nil {
		return SharedUser{}, err
	}
	return *resolved, nil
}

// Revoke removes a shared user (owner action), restoring the entry on
// failure.
func (v *ListView) Revoke(ctx context.Context, userID string) error {
	prev, ok := v.shares.Get(userID)
	if !ok {
		return ErrNotInView
	}

	_, err := v.co.Run(ctx, optimistic.Mutation{
		Op:       "revoke-share",
		EntityID: userID,
		Apply: func() {
			v.shares.Apply(optimistic.Delete[SharedUser]{ID: userID})
		},
		Call: func(ctx context.Context) error {
			return v.backend.RevokeShare(ctx, v.listID, userID)
		},
		Rollback: func() {
			v.shares.Apply(optimistic.Restore[SharedUser]{ID: userID, Entity: prev})
		},
	})
	return err
}

// alreadyShared reports whether the email matches an entry in the current
// view, by identity key or by stored email.
func (v *ListView) alreadyShared(email string) bool {
	key := strings.ToLower(email)
	for _, su := range v.shares.View() {
		if su.EntityID() == key || strings.EqualFold(su.Email, email) {
			return true
		}
	}
	return false
}
