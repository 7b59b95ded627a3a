package list_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shoplist/shoplist-go/internal/list"
	"github.com/shoplist/shoplist-go/internal/optimistic"
)

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func itemNames(items []list.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestAddItem_AppendsAndCommits(t *testing.T) {
	backend := &fakeBackend{}
	v := list.NewListView(backend, alice, groceries())

	created, err := v.AddItem(context.Background(), "Butter")
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if created.Pending() {
		t.Errorf("committed item must carry an authoritative id, got %q", created.ID)
	}

	items := v.Items()
	if len(items) != 3 || items[2].ID != created.ID {
		t.Fatalf("expected item appended at tail, got %v", itemNames(items))
	}
	if items[2].AddedBy == nil || items[2].AddedBy.ID != alice.ID {
		t.Errorf("expected item attributed to the acting user: %+v", items[2])
	}
}

func TestAddItem_RollbackOnFailure(t *testing.T) {
	backend := &fakeBackend{err: &list.BackendError{Reason: "bad_request", Message: "item limit reached"}}
	log := optimistic.NewNoticeLog()
	v := list.NewListView(backend, alice, groceries(), list.WithNoticeFunc(log.Record))

	_, err := v.AddItem(context.Background(), "Flour")
	if err == nil {
		t.Fatal("expected failure")
	}

	if got := itemNames(v.Items()); len(got) != 2 {
		t.Errorf("expected tentative item removed, view has %v", got)
	}
	notices := log.Drain()
	if len(notices) != 1 || notices[0].Op != "add-item" {
		t.Fatalf("expected one add-item notice, got %+v", notices)
	}
}

func TestAddItem_TentativeVisibleWhilePending(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	v := list.NewListView(backend, alice, groceries())

	done := make(chan struct{})
	go func() {
		defer close(done)
		v.AddItem(context.Background(), "Butter")
	}()

	waitFor(t, func() bool { return len(v.Items()) == 3 })
	pending := v.Items()[2]
	if !pending.Pending() {
		t.Errorf("expected tentative item marked pending, id %q", pending.ID)
	}
	if !v.Busy(pending.ID) {
		t.Error("expected pending item latched")
	}

	close(backend.gate)
	<-done
	if v.Items()[2].Pending() {
		t.Error("expected tentative id replaced after commit")
	}
}

func TestToggleItem_RollbackRestoresFlag(t *testing.T) {
	backend := &fakeBackend{err: errors.New("connection reset")}
	v := list.NewListView(backend, alice, groceries())

	if err := v.ToggleItem(context.Background(), "item-1"); err == nil {
		t.Fatal("expected failure")
	}

	items := v.Items()
	if items[0].Completed {
		t.Error("expected completed flag reverted")
	}
	// Unrelated item untouched.
	if !items[1].Completed {
		t.Error("unrelated item changed by rollback")
	}
}

func TestRenameItem_CompensatingRollback(t *testing.T) {
	backend := &fakeBackend{err: &list.BackendError{Reason: "not_found", Message: "item vanished"}}
	v := list.NewListView(backend, alice, groceries())

	if err := v.RenameItem(context.Background(), "item-2", "Duck Eggs"); err == nil {
		t.Fatal("expected failure")
	}
	for _, it := range v.Items() {
		if it.ID == "item-2" && it.Name != "Eggs" {
			t.Errorf("expected name reverted to Eggs, got %q", it.Name)
		}
	}
}

func TestDeleteItem_RestoreKeepsPosition(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	v := list.NewListView(backend, alice, groceries())

	if err := v.DeleteItem(context.Background(), "item-1"); err == nil {
		t.Fatal("expected failure")
	}

	got := itemNames(v.Items())
	if len(got) != 2 || got[0] != "Milk" || got[1] != "Eggs" {
		t.Fatalf("expected item restored at original position, got %v", got)
	}
}

func TestInvite_ResolvesTentativeEntry(t *testing.T) {
	backend := &fakeBackend{}
	v := list.NewListView(backend, alice, groceries())

	su, err := v.Invite(context.Background(), "carol@example.com")
	if err != nil {
		t.Fatalf("invite failed: %v", err)
	}
	if su.Pending() {
		t.Error("resolved shared user must carry a user id")
	}

	shares := v.SharedUsers()
	if len(shares) != 2 || shares[1].ID != su.ID {
		t.Fatalf("expected resolved entry appended, got %+v", shares)
	}
}

func TestInvite_DuplicateGuard(t *testing.T) {
	backend := &fakeBackend{}
	v := list.NewListView(backend, alice, groceries())

	// Same identity as the existing share, different case.
	_, err := v.Invite(context.Background(), "Bob@Example.com")
	if !errors.Is(err, list.ErrAlreadyShared) {
		t.Fatalf("expected ErrAlreadyShared, got %v", err)
	}
	if len(v.SharedUsers()) != 1 {
		t.Error("duplicate invite must not produce a second entry")
	}
	if backend.callCount("invite-share") != 0 {
		t.Error("duplicate invite must not round-trip")
	}
}

func TestInvite_SelfInviteRejected(t *testing.T) {
	backend := &fakeBackend{}
	v := list.NewListView(backend, alice, groceries())

	if _, err := v.Invite(context.Background(), alice.Email); !errors.Is(err, list.ErrSelfInvite) {
		t.Fatalf("expected ErrSelfInvite, got %v", err)
	}
	if len(v.SharedUsers()) != 1 {
		t.Error("self-invite must not produce an entry")
	}
}

func TestInvite_RollbackRemovesTentativeEntry(t *testing.T) {
	backend := &fakeBackend{err: &list.BackendError{Reason: "not_found", Message: "no registered user with that email"}}
	v := list.NewListView(backend, alice, groceries())

	if _, err := v.Invite(context.Background(), "nobody@example.com"); err == nil {
		t.Fatal("expected failure")
	}
	if len(v.SharedUsers()) != 1 {
		t.Errorf("expected tentative entry removed, got %+v", v.SharedUsers())
	}
}

func TestRevoke_RestoresOnFailure(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	v := list.NewListView(backend, alice, groceries())

	if err := v.Revoke(context.Background(), bob.ID); err == nil {
		t.Fatal("expected failure")
	}
	shares := v.SharedUsers()
	if len(shares) != 1 || shares[0].ID != bob.ID {
		t.Fatalf("expected share restored, got %+v", shares)
	}
}

func TestConcurrentUnrelatedMutations(t *testing.T) {
	// Renaming item A while deleting item B: each instance touches only its
	// own id, so both reconcile independently.
	backend := &fakeBackend{gate: make(chan struct{})}
	v := list.NewListView(backend, alice, groceries())

	renameDone := make(chan error, 1)
	deleteDone := make(chan error, 1)
	go func() { renameDone <- v.RenameItem(context.Background(), "item-1", "Oat Milk") }()
	go func() { deleteDone <- v.DeleteItem(context.Background(), "item-2") }()

	waitFor(t, func() bool {
		items := v.Items()
		return len(items) == 1 && items[0].Name == "Oat Milk"
	})

	close(backend.gate)
	if err := <-renameDone; err != nil {
		t.Errorf("rename failed: %v", err)
	}
	if err := <-deleteDone; err != nil {
		t.Errorf("delete failed: %v", err)
	}

	got := itemNames(v.Items())
	if len(got) != 1 || got[0] != "Oat Milk" {
		t.Fatalf("expected [Oat Milk], got %v", got)
	}
}

func TestRefresh_ResetsBothStores(t *testing.T) {
	l := groceries()
	backend := &fakeBackend{lists: []list.List{l}}
	v := list.NewListView(backend, alice, list.List{ID: l.ID, Owner: alice})

	if err := v.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if len(v.Items()) != 2 || len(v.SharedUsers()) != 1 {
		t.Fatalf("expected snapshot loaded, items=%d shares=%d", len(v.Items()), len(v.SharedUsers()))
	}
}
