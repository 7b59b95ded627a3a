// Package testutil provides shared test helpers for store driver tests.
package testutil

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shoplist/shoplist-go/internal/store"
)

// TestUser creates a test user record.
func TestUser() *store.UserRecord {
	return &store.UserRecord{
		ID:           "user-alice",
		Email:        "alice@example.com",
		DisplayName:  "Alice",
		PasswordHash: "$2a$10$notarealhash",
		CreatedAt:    time.Now().Unix(),
	}
}

// TestList creates a test list record.
func TestList() *store.ListRecord {
	return &store.ListRecord{
		ID:        "list-groceries",
		Title:     "Groceries",
		OwnerID:   "user-alice",
		CreatedAt: time.Now().Unix(),
		UpdatedAt: time.Now().Unix(),
	}
}

// TestItem creates a test item record on the test list.
func TestItem(id, name string, createdAt int64) *store.ItemRecord {
	return &store.ItemRecord{
		ID:        id,
		ListID:    "list-groceries",
		Name:      name,
		AddedByID: "user-alice",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// RunDriverTests runs the standard test suite against a driver.
func RunDriverTests(t *testing.T, driverName string, cfg *store.DriverConfig) {
	ctx := context.Background()

	driver, err := store.New(cfg)
	if err != nil {
		t.Fatalf("failed to create %s driver: %v", driverName, err)
	}
	defer driver.Close()

	if err := driver.Init(ctx); err != nil {
		t.Fatalf("failed to init %s driver: %v", driverName, err)
	}

	if driver.Name() != driverName {
		t.Errorf("expected driver name %q, got %q", driverName, driver.Name())
	}

	t.Run("UserCRUD", func(t *testing.T) { testUserCRUD(t, ctx, driver) })
	t.Run("ListCRUD", func(t *testing.T) { testListCRUD(t, ctx, driver) })
	t.Run("ItemOrder", func(t *testing.T) { testItemOrder(t, ctx, driver) })
	t.Run("Shares", func(t *testing.T) { testShares(t, ctx, driver) })
	t.Run("CascadeDelete", func(t *testing.T) { testCascadeDelete(t, ctx, driver) })
}

func testUserCRUD(t *testing.T, ctx context.Context, d store.Driver) {
	user := TestUser()
	if err := d.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := d.CreateUser(ctx, TestUser()); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("duplicate create: expected ErrAlreadyExists, got %v", err)
	}

	got, err := d.GetUserByEmail(ctx, "Alice@Example.com")
	if err != nil {
		t.Fatalf("get by email (case-insensitive): %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("got user %q, want %q", got.ID, user.ID)
	}

	got.DisplayName = "Alice B."
	if err := d.UpdateUser(ctx, got); err != nil {
		t.Fatalf("update user: %v", err)
	}
	again, _ := d.GetUser(ctx, user.ID)
	if again.DisplayName != "Alice B." {
		t.Errorf("update not persisted: %q", again.DisplayName)
	}

	if _, err := d.GetUser(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func testListCRUD(t *testing.T, ctx context.Context, d store.Driver) {
	list := TestList()
	if err := d.CreateList(ctx, list); err != nil {
		t.Fatalf("create list: %v", err)
	}

	got, err := d.GetList(ctx, list.ID)
	if err != nil {
		t.Fatalf("get list: %v", err)
	}
	if got.Title != "Groceries" {
		t.Errorf("got title %q", got.Title)
	}

	got.Title = "Weekend Groceries"
	if err := d.UpdateList(ctx, got); err != nil {
		t.Fatalf("update list: %v", err)
	}

	lists, err := d.ListsForUser(ctx, "user-alice")
	if err != nil {
		t.Fatalf("lists for user: %v", err)
	}
	if len(lists) != 1 || lists[0].Title != "Weekend Groceries" {
		t.Errorf("unexpected lists: %+v", lists)
	}

	if lists, _ := d.ListsForUser(ctx, "user-nobody"); len(lists) != 0 {
		t.Errorf("stranger sees lists: %+v", lists)
	}
}

func testItemOrder(t *testing.T, ctx context.Context, d store.Driver) {
	base := time.Now().Unix()
	for i, name := range []string{"Milk", "Eggs", "Bread"} {
		item := TestItem("item-"+name, name, base+int64(i))
		if err := d.CreateItem(ctx, item); err != nil {
			t.Fatalf("create item %s: %v", name, err)
		}
	}

	items, err := d.ListItems(ctx, "list-groceries")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	for i, want := range []string{"Milk", "Eggs", "Bread"} {
		if items[i].Name != want {
			t.Errorf("position %d: got %q, want %q", i, items[i].Name, want)
		}
	}

	mid := items[1]
	mid.Completed = true
	if err := d.UpdateItem(ctx, mid); err != nil {
		t.Fatalf("update item: %v", err)
	}
	if err := d.DeleteItem(ctx, "item-Milk"); err != nil {
		t.Fatalf("delete item: %v", err)
	}

	items, _ = d.ListItems(ctx, "list-groceries")
	if len(items) != 2 || items[0].Name != "Eggs" || !items[0].Completed {
		t.Errorf("unexpected items after delete: %+v", items)
	}
}

func testShares(t *testing.T, ctx context.Context, d store.Driver) {
	share := &store.ShareRecord{ListID: "list-groceries", UserID: "user-bob", CreatedAt: time.Now().Unix()}
	if err := d.CreateShare(ctx, share); err != nil {
		t.Fatalf("create share: %v", err)
	}
	if err := d.CreateShare(ctx, share); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("duplicate share: expected ErrAlreadyExists, got %v", err)
	}

	// Shared user now sees the list.
	lists, err := d.ListsForUser(ctx, "user-bob")
	if err != nil {
		t.Fatalf("lists for shared user: %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("shared user sees %d lists, want 1", len(lists))
	}

	shares, _ := d.ListShares(ctx, "list-groceries")
	if len(shares) != 1 || shares[0].UserID != "user-bob" {
		t.Errorf("unexpected shares: %+v", shares)
	}

	if err := d.DeleteShare(ctx, "list-groceries", "user-bob"); err != nil {
		t.Fatalf("delete share: %v", err)
	}
	if lists, _ := d.ListsForUser(ctx, "user-bob"); len(lists) != 0 {
		t.Error("revoked user still sees the list")
	}
}

func testCascadeDelete(t *testing.T, ctx context.Context, d store.Driver) {
	// Re-grant a share so the cascade has something to remove.
	d.CreateShare(ctx, &store.ShareRecord{ListID: "list-groceries", UserID: "user-bob", CreatedAt: time.Now().Unix()})

	if err := d.DeleteList(ctx, "list-groceries"); err != nil {
		t.Fatalf("delete list: %v", err)
	}

	if _, err := d.GetList(ctx, "list-groceries"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for deleted list, got %v", err)
	}
	if items, _ := d.ListItems(ctx, "list-groceries"); len(items) != 0 {
		t.Errorf("items survived cascade: %+v", items)
	}
	if shares, _ := d.ListShares(ctx, "list-groceries"); len(shares) != 0 {
		t.Errorf("shares survived cascade: %+v", shares)
	}

	if err := d.DeleteList(ctx, "list-groceries"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}
