package optimistic_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shoplist/shoplist-go/internal/optimistic"
)

func TestRun_CommitFlow(t *testing.T) {
	s := optimistic.NewStore([]note{})
	co := optimistic.New()

	tentative := note{id: "tmp-1", text: "milk"}
	authoritative := note{id: "real-1", text: "milk"}

	state, err := co.Run(context.Background(), optimistic.Mutation{
		Op:       "add-note",
		EntityID: tentative.id,
		Apply: func() {
			s.Apply(optimistic.Add[note]{Entity: tentative, At: optimistic.Tail})
		},
		Call: func(ctx context.Context) error { return nil },
		Commit: func() {
			s.Apply(optimistic.Replace[note]{ID: tentative.id, Entity: authoritative})
		},
		Rollback: func() {
			s.Apply(optimistic.Delete[note]{ID: tentative.id})
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != optimistic.StateCommitted {
		t.Fatalf("expected committed, got %s", state)
	}

	wantOrder(t, s.View(), "real-1")
	if co.InFlight(tentative.id) {
		t.Error("latch must be released after commit")
	}
}

func TestRun_RollbackRaisesOneNotice(t *testing.T) {
	s := optimistic.NewStore([]note{})
	log := optimistic.NewNoticeLog()
	co := optimistic.New(optimistic.WithNotice(log.Record))

	tentative := note{id: "tmp-1", text: "milk"}
	state, err := co.Run(context.Background(), optimistic.Mutation{
		Op:       "add-note",
		EntityID: tentative.id,
		Apply: func() {
			s.Apply(optimistic.Add[note]{Entity: tentative, At: optimistic.Tail})
		},
		Call: func(ctx context.Context) error { return errors.New("name too long") },
		Rollback: func() {
			s.Apply(optimistic.Delete[note]{ID: tentative.id})
		},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if state != optimistic.StateRolledBack {
		t.Fatalf("expected rolled_back, got %s", state)
	}
	if s.Len() != 0 {
		t.Errorf("expected rollback to remove tentative entity, view has %d", s.Len())
	}

	notices := log.Drain()
	if len(notices) != 1 {
		t.Fatalf("expected exactly one notice, got %d", len(notices))
	}
	if notices[0].Op != "add-note" || notices[0].Timeout {
		t.Errorf("unexpected notice: %+v", notices[0])
	}
}

func TestRun_TimeoutForcesRollback(t *testing.T) {
	s := optimistic.NewStore(snapshot())
	log := optimistic.NewNoticeLog()
	co := optimistic.New(
		optimistic.WithTimeout(20*time.Millisecond),
		optimistic.WithNotice(log.Record),
	)

	prev, _ := s.Get("b")
	state, err := co.Run(context.Background(), optimistic.Mutation{
		Op:       "delete-note",
		EntityID: "b",
		Apply: func() {
			s.Apply(optimistic.Delete[note]{ID: "b"})
		},
		Call: func(ctx context.Context) error {
			// Hung transport: never resolves on its own.
			<-ctx.Done()
			return ctx.Err()
		},
		Rollback: func() {
			s.Apply(optimistic.Restore[note]{ID: "b", Entity: prev})
		},
	})
	if state != optimistic.StateRolledBack {
		t.Fatalf("expected rolled_back, got %s", state)
	}
	if !errors.Is(err, optimistic.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	wantOrder(t, s.View(), "a", "b", "c")

	notices := log.Drain()
	if len(notices) != 1 || !notices[0].Timeout {
		t.Fatalf("expected one timeout notice, got %+v", notices)
	}
}

func TestRun_LatchRejectsSameEntityOverlap(t *testing.T) {
	s := optimistic.NewStore(snapshot())
	co := optimistic.New(optimistic.WithTimeout(0))

	gate := make(chan struct{})
	started := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		co.Run(context.Background(), optimistic.Mutation{
			Op:       "toggle-note",
			EntityID: "a",
			Apply: func() {
				s.Apply(optimistic.Update[note]{ID: "a", Fn: func(n note) note { n.done = true; return n }})
			},
			Call: func(ctx context.Context) error {
				close(started)
				<-gate
				return nil
			},
			Rollback: func() {
				s.Apply(optimistic.Update[note]{ID: "a", Fn: func(n note) note { n.done = false; return n }})
			},
		})
	}()
	<-started

	if !co.InFlight("a") {
		t.Fatal("expected entity a latched while call is pending")
	}

	// Second toggle on the same entity: rejected before any optimistic edit.
	applied := false
	state, err := co.Run(context.Background(), optimistic.Mutation{
		Op:       "toggle-note",
		EntityID: "a",
		Apply:    func() { applied = true },
		Call:     func(ctx context.Context) error { return nil },
		Rollback: func() {},
	})
	if !errors.Is(err, optimistic.ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	if state != optimistic.StateIdle {
		t.Fatalf("expected idle, got %s", state)
	}
	if applied {
		t.Error("rejected mutation must not apply an optimistic edit")
	}

	// Unrelated entity is not blocked by the latch.
	state, err = co.Run(context.Background(), optimistic.Mutation{
		Op:       "toggle-note",
		EntityID: "b",
		Apply: func() {
			s.Apply(optimistic.Update[note]{ID: "b", Fn: func(n note) note { n.done = true; return n }})
		},
		Call:     func(ctx context.Context) error { return nil },
		Rollback: func() {},
	})
	if err != nil || state != optimistic.StateCommitted {
		t.Fatalf("independent mutation should commit, got %s / %v", state, err)
	}

	close(gate)
	wg.Wait()
	if co.InFlight("a") {
		t.Error("latch must be released after resolution")
	}
}

func TestRun_OptimisticStateVisibleBeforeResolution(t *testing.T) {
	s := optimistic.NewStore([]note{})
	co := optimistic.New(optimistic.WithTimeout(0))

	gate := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		co.Run(context.Background(), optimistic.Mutation{
			Op:       "add-note",
			EntityID: "tmp-1",
			Apply: func() {
				s.Apply(optimistic.Add[note]{Entity: note{id: "tmp-1", text: "milk"}, At: optimistic.Tail})
			},
			Call: func(ctx context.Context) error {
				close(started)
				<-gate
				return nil
			},
			Commit: func() {
				s.Apply(optimistic.Replace[note]{ID: "tmp-1", Entity: note{id: "real-1", text: "milk"}})
			},
			Rollback: func() {
				s.Apply(optimistic.Delete[note]{ID: "tmp-1"})
			},
		})
	}()
	<-started

	// The tentative entity is readable while the call is unresolved.
	if _, ok := s.Get("tmp-1"); !ok {
		t.Fatal("expected tentative entity visible before the call resolves")
	}

	close(gate)
	<-done
	if _, ok := s.Get("real-1"); !ok {
		t.Fatal("expected authoritative entity after commit")
	}
}

func TestRun_OutOfOrderResolutionIsIsolated(t *testing.T) {
	s := optimistic.NewStore(snapshot())
	co := optimistic.New(optimistic.WithTimeout(0))

	gateA := make(chan struct{})
	gateB := make(chan struct{})
	startedA := make(chan struct{})
	startedB := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	// Rename a (will fail), delete c (will succeed); c resolves first even
	// though a started first.
	go func() {
		defer wg.Done()
		co.Run(context.Background(), optimistic.Mutation{
			Op:       "rename-note",
			EntityID: "a",
			Apply: func() {
				s.Apply(optimistic.Update[note]{ID: "a", Fn: func(n note) note { n.text = "apricots"; return n }})
			},
			Call: func(ctx context.Context) error {
				close(startedA)
				<-gateA
				return errors.New("not allowed")
			},
			Rollback: func() {
				s.Apply(optimistic.Update[note]{ID: "a", Fn: func(n note) note { n.text = "apples"; return n }})
			},
		})
	}()
	<-startedA

	go func() {
		defer wg.Done()
		co.Run(context.Background(), optimistic.Mutation{
			Op:       "delete-note",
			EntityID: "c",
			Apply:    func() { s.Apply(optimistic.Delete[note]{ID: "c"}) },
			Call: func(ctx context.Context) error {
				close(startedB)
				<-gateB
				return nil
			},
			Rollback: func() {
				s.Apply(optimistic.Restore[note]{ID: "c", Entity: note{id: "c", text: "cheese"}})
			},
		})
	}()
	<-startedB

	close(gateB) // c commits first
	close(gateA) // then a rolls back
	wg.Wait()

	// c's commit survived, a's rollback restored the original text.
	wantOrder(t, s.View(), "a", "b")
	got, _ := s.Get("a")
	if got.text != "apples" {
		t.Errorf("expected rename rolled back to apples, got %q", got.text)
	}
}

func TestRun_IncompleteMutation(t *testing.T) {
	co := optimistic.New()

	_, err := co.Run(context.Background(), optimistic.Mutation{Op: "broken"})
	if !errors.Is(err, optimistic.ErrIncompleteMutation) {
		t.Fatalf("expected ErrIncompleteMutation, got %v", err)
	}
}
