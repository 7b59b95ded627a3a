package json_test

import (
	"context"
	"testing"

	"github.com/shoplist/shoplist-go/internal/store"
	_ "github.com/shoplist/shoplist-go/internal/store/json"
	"github.com/shoplist/shoplist-go/internal/store/testutil"
)

func TestJSONDriver(t *testing.T) {
	cfg := &store.DriverConfig{
		Driver:  "json",
		DataDir: t.TempDir(),
	}

	testutil.RunDriverTests(t, "json", cfg)
}

func TestJSONDriverPersistsAcrossRestart(t *testing.T) {
	ctx := context.Background()
	cfg := &store.DriverConfig{
		Driver:  "json",
		DataDir: t.TempDir(),
	}

	driver, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}

	user := testutil.TestUser()
	list := testutil.TestList()
	if err := driver.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	if err := driver.CreateList(ctx, list); err != nil {
		t.Fatal(err)
	}
	if err := driver.CreateItem(ctx, testutil.TestItem("item-1", "Milk", 1)); err != nil {
		t.Fatal(err)
	}
	driver.Close()

	// Reload driver - data should survive
	driver2, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := driver2.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer driver2.Close()

	got, err := driver2.GetUserByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("user not found after restart: %v", err)
	}
	if got.DisplayName != user.DisplayName {
		t.Errorf("got %q, want %q", got.DisplayName, user.DisplayName)
	}

	items, err := driver2.ListItems(ctx, list.ID)
	if err != nil || len(items) != 1 {
		t.Fatalf("items not restored: %v (%d items)", err, len(items))
	}
}

func TestJSONDriverClosed(t *testing.T) {
	ctx := context.Background()
	cfg := &store.DriverConfig{
		Driver:  "json",
		DataDir: t.TempDir(),
	}

	driver, err := store.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := driver.Init(ctx); err != nil {
		t.Fatal(err)
	}
	driver.Close()

	if err := driver.CreateList(ctx, testutil.TestList()); err != store.ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
