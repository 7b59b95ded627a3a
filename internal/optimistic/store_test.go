package optimistic_test

import (
	"testing"

	"github.com/shoplist/shoplist-go/internal/optimistic"
)

// note is a minimal entity for store tests.
type note struct {
	id   string
	text string
	done bool
}

func (n note) EntityID() string { return n.id }

func snapshot() []note {
	return []note{
		{id: "a", text: "apples"},
		{id: "b", text: "bread"},
		{id: "c", text: "cheese"},
	}
}

func ids(view []note) []string {
	out := make([]string, len(view))
	for i, n := range view {
		out[i] = n.id
	}
	return out
}

func wantOrder(t *testing.T, view []note, want ...string) {
	t.Helper()
	got := ids(view)
	if len(got) != len(want) {
		t.Fatalf("expected %d entities %v, got %v", len(want), want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, got)
		}
	}
}

func TestAdd_HeadAndTail(t *testing.T) {
	s := optimistic.NewStore(snapshot())

	s.Apply(optimistic.Add[note]{Entity: note{id: "h", text: "honey"}, At: optimistic.Head})
	s.Apply(optimistic.Add[note]{Entity: note{id: "t", text: "tea"}, At: optimistic.Tail})

	wantOrder(t, s.View(), "h", "a", "b", "c", "t")
}

func TestAdd_DuplicateIsNoOp(t *testing.T) {
	s := optimistic.NewStore(snapshot())

	s.Apply(optimistic.Add[note]{Entity: note{id: "b", text: "bagels"}, At: optimistic.Tail})

	wantOrder(t, s.View(), "a", "b", "c")
	got, _ := s.Get("b")
	if got.text != "bread" {
		t.Errorf("duplicate add must not overwrite: got %q", got.text)
	}
}

func TestDelete_Idempotent(t *testing.T) {
	s := optimistic.NewStore(snapshot())

	s.Apply(optimistic.Delete[note]{ID: "b"})
	once := ids(s.View())

	s.Apply(optimistic.Delete[note]{ID: "b"})
	twice := ids(s.View())

	if len(once) != 2 || len(twice) != 2 {
		t.Fatalf("expected 2 entities after delete, got %v then %v", once, twice)
	}
	wantOrder(t, s.View(), "a", "c")
}

func TestRestore_InverseOfDelete(t *testing.T) {
	s := optimistic.NewStore(snapshot())

	deleted, ok := s.Get("b")
	if !ok {
		t.Fatal("expected b in snapshot")
	}
	s.Apply(optimistic.Delete[note]{ID: "b"})
	s.Apply(optimistic.Restore[note]{ID: "b", Entity: deleted})

	// Positionally and content-equal to the snapshot.
	wantOrder(t, s.View(), "a", "b", "c")
	got, _ := s.Get("b")
	if got != deleted {
		t.Errorf("restore changed entity value: got %+v want %+v", got, deleted)
	}
}

func TestRestore_OriginalIndexNotCurrent(t *testing.T) {
	s := optimistic.NewStore(snapshot())

	// Delete b, then prepend an unrelated tentative entity. Restore must use
	// b's snapshot index, not its position in the mutated view.
	s.Apply(optimistic.Delete[note]{ID: "b"})
	s.Apply(optimistic.Add[note]{Entity: note{id: "x", text: "oranges"}, At: optimistic.Head})
	s.Apply(optimistic.Restore[note]{ID: "b", Entity: note{id: "b", text: "bread"}})

	wantOrder(t, s.View(), "x", "b", "a", "c")
}

func TestRestore_UnknownAppends(t *testing.T) {
	s := optimistic.NewStore(snapshot())

	s.Apply(optimistic.Restore[note]{ID: "z", Entity: note{id: "z", text: "zucchini"}})

	wantOrder(t, s.View(), "a", "b", "c", "z")
}

func TestRestore_PresentIsNoOp(t *testing.T) {
	s := optimistic.NewStore(snapshot())

	s.Apply(optimistic.Delete[note]{ID: "c"})
	s.Apply(optimistic.Restore[note]{ID: "c", Entity: note{id: "c", text: "cheese"}})
	// Replayed rollback must not double-insert.
	s.Apply(optimistic.Restore[note]{ID: "c", Entity: note{id: "c", text: "cheese"}})

	wantOrder(t, s.View(), "a", "b", "c")
}

func TestReplace_PreservesPosition(t *testing.T) {
	s := optimistic.NewStore(snapshot())
	s.Apply(optimistic.Add[note]{Entity: note{id: "tmp-1", text: "tomatoes"}, At: optimistic.Tail})

	s.Apply(optimistic.Replace[note]{ID: "tmp-1", Entity: note{id: "real-9", text: "tomatoes"}})

	wantOrder(t, s.View(), "a", "b", "c", "real-9")
	if _, ok := s.Get("tmp-1"); ok {
		t.Error("tentative id must not coexist with authoritative id")
	}
}

func TestReplace_AbsentIsNoOp(t *testing.T) {
	s := optimistic.NewStore(snapshot())

	s.Apply(optimistic.Replace[note]{ID: "nope", Entity: note{id: "real-9"}})

	wantOrder(t, s.View(), "a", "b", "c")
}

func TestUpdate_TransformsOnlyTarget(t *testing.T) {
	s := optimistic.NewStore(snapshot())
	before := s.View()

	s.Apply(optimistic.Update[note]{ID: "b", Fn: func(n note) note {
		n.done = !n.done
		return n
	}})

	after := s.View()
	wantOrder(t, after, "a", "b", "c")
	for i, n := range after {
		if n.id == "b" {
			if !n.done {
				t.Error("expected b toggled")
			}
			continue
		}
		if n != before[i] {
			t.Errorf("unrelated entity %s changed: %+v -> %+v", n.id, before[i], n)
		}
	}
}

func TestReset_SupersedesOverlay(t *testing.T) {
	s := optimistic.NewStore(snapshot())
	s.Apply(optimistic.Add[note]{Entity: note{id: "tmp-1", text: "pending"}, At: optimistic.Head})
	s.Apply(optimistic.Delete[note]{ID: "a"})

	s.Reset([]note{{id: "c", text: "cheese"}, {id: "d", text: "dates"}})

	wantOrder(t, s.View(), "c", "d")

	// Restore after reset uses the new baseline's indexes.
	s.Apply(optimistic.Delete[note]{ID: "c"})
	s.Apply(optimistic.Restore[note]{ID: "c", Entity: note{id: "c", text: "cheese"}})
	wantOrder(t, s.View(), "c", "d")
}

func TestView_ReturnsCopy(t *testing.T) {
	s := optimistic.NewStore(snapshot())

	view := s.View()
	view[0] = note{id: "mutated"}

	if got, _ := s.Get("a"); got.text != "apples" {
		t.Error("mutating a returned view must not affect the store")
	}
}

func TestLen(t *testing.T) {
	s := optimistic.NewStore(snapshot())
	if s.Len() != 3 {
		t.Fatalf("expected 3, got %d", s.Len())
	}
	s.Apply(optimistic.Delete[note]{ID: "a"})
	if s.Len() != 2 {
		t.Fatalf("expected 2, got %d", s.Len())
	}
}
