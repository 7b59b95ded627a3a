package optimistic

// Position controls where Add inserts a new entity.
type Position int

const (
	// Head inserts at the front of the collection (most-recent-first views).
	Head Position = iota

	// Tail appends at the end (creation-order views).
	Tail
)

// Action is the closed set of transforms a Store understands. Each variant
// targets at most one entity by id; Store.Apply matches exhaustively, so a
// new action kind is a compile-time-checked addition.
type Action[E Entity] interface {
	isAction()
}

// Add inserts an entity at the given position.
// No-op when an entity with the same id already exists (duplicate-submission guard).
type Add[E Entity] struct {
	Entity E
	At     Position
}

// Delete removes the entity with the given id. No-op when absent.
type Delete[E Entity] struct {
	ID string
}

// Restore re-inserts an entity at its original position in the last
// authoritative snapshot, not the current mutated view. When the entity was
// not part of that snapshot it is appended. No-op when an entity with the id
// is already present, so replayed rollbacks cannot double-insert.
type Restore[E Entity] struct {
	ID     string
	Entity E
}

// Replace substitutes the entity with the given id in place, keeping its
// position. Used to swap a tentative entity for its authoritative value.
// No-op when absent.
type Replace[E Entity] struct {
	ID     string
	Entity E
}

// Update transforms the matching entity's value via Fn, leaving its position
// and every other entity untouched. Used for toggle and rename edits.
// No-op when absent.
type Update[E Entity] struct {
	ID string
	Fn func(E) E
}

func (Add[E]) isAction()     {}
func (Delete[E]) isAction()  {}
func (Restore[E]) isAction() {}
func (Replace[E]) isAction() {}
func (Update[E]) isAction()  {}
