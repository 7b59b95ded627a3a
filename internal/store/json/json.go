// Package json implements a JSON file-based persistence driver.
// It uses atomic writes (temp file + fsync + rename) and in-process locking.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/shoplist/shoplist-go/internal/store"
)

func init() {
	store.Register("json", NewDriver)
}

// Driver implements the store.Driver interface using JSON files.
type Driver struct {
	dataDir string
	mu      sync.RWMutex
	closed  bool

	// In-memory state loaded from JSON
	users  map[string]*store.UserRecord  // keyed by id
	lists  map[string]*store.ListRecord  // keyed by id
	items  map[string]*store.ItemRecord  // keyed by id
	shares map[string]*store.ShareRecord // keyed by listID:userID

	// Secondary indexes
	emailIndex  map[string]string   // lowercased email -> user id
	itemsByList map[string][]string // list id -> item ids in creation order
}

// NewDriver creates a new JSON driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for json driver")
	}

	return &Driver{
		dataDir:     cfg.DataDir,
		users:       make(map[string]*store.UserRecord),
		lists:       make(map[string]*store.ListRecord),
		items:       make(map[string]*store.ItemRecord),
		shares:      make(map[string]*store.ShareRecord),
		emailIndex:  make(map[string]string),
		itemsByList: make(map[string][]string),
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "json"
}

// Init loads data from JSON files.
func (d *Driver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	if err := d.loadFile("users.json", &d.users); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load users: %w", err)
	}
	if err := d.loadFile("lists.json", &d.lists); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load lists: %w", err)
	}
	if err := d.loadFile("items.json", &d.items); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load items: %w", err)
	}
	if err := d.loadFile("shares.json", &d.shares); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load shares: %w", err)
	}

	d.rebuildIndexes()

	return nil
}

// Close releases resources.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// loadFile loads a JSON file into the target map.
func (d *Driver) loadFile(filename string, target interface{}) error {
	path := filepath.Join(d.dataDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// saveFile atomically writes data to a JSON file.
// Pattern: write to temp file, fsync, rename.
func (d *Driver) saveFile(filename string, data interface{}) error {
	path := filepath.Join(d.dataDir, filename)
	tempPath := path + ".tmp"

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(jsonData); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// rebuildIndexes rebuilds secondary indexes from primary data.
func (d *Driver) rebuildIndexes() {
	d.emailIndex = make(map[string]string)
	d.itemsByList = make(map[string][]string)

	for id, user := range d.users {
		d.emailIndex[strings.ToLower(user.Email)] = id
	}

	for id, item := range d.items {
		d.itemsByList[item.ListID] = append(d.itemsByList[item.ListID], id)
	}
	// Creation order within a list
	for listID, ids := range d.itemsByList {
		sort.Slice(ids, func(i, j int) bool {
			a, b := d.items[ids[i]], d.items[ids[j]]
			if a.CreatedAt != b.CreatedAt {
				return a.CreatedAt < b.CreatedAt
			}
			return a.ID < b.ID
		})
		d.itemsByList[listID] = ids
	}
}

// shareKey creates a lookup key for shares.
func shareKey(listID, userID string) string {
	return listID + ":" + userID
}

// UserStore implementation

func (d *Driver) CreateUser(ctx context.Context, user *store.UserRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	email := strings.ToLower(user.Email)
	if _, exists := d.emailIndex[email]; exists {
		return store.ErrAlreadyExists
	}
	if _, exists := d.users[user.ID]; exists {
		return store.ErrAlreadyExists
	}

	d.users[user.ID] = user
	d.emailIndex[email] = user.ID

	return d.saveFile("users.json", d.users)
}

func (d *Driver) GetUser(ctx context.Context, id string) (*store.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}

	user, ok := d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (d *Driver) GetUserByEmail(ctx context.Context, email string) (*store.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}

	id, ok := d.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return d.users[id], nil
}

func (d *Driver) UpdateUser(ctx context.Context, user *store.UserRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	existing, ok := d.users[user.ID]
	if !ok {
		return store.ErrNotFound
	}

	if existing.Email != user.Email {
		delete(d.emailIndex, strings.ToLower(existing.Email))
		d.emailIndex[strings.ToLower(user.Email)] = user.ID
	}

	d.users[user.ID] = user
	return d.saveFile("users.json", d.users)
}

func (d *Driver) DeleteUser(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	user, ok := d.users[id]
	if !ok {
		return store.ErrNotFound
	}

	delete(d.emailIndex, strings.ToLower(user.Email))
	delete(d.users, id)
	return d.saveFile("users.json", d.users)
}

func (d *Driver) ListUsers(ctx context.Context) ([]*store.UserRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}

	result := make([]*store.UserRecord, 0, len(d.users))
	for _, user := range d.users {
		result = append(result, user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt < result[j].CreatedAt })
	return result, nil
}

// ListStore implementation

func (d *Driver) CreateList(ctx context.Context, list *store.ListRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	if _, exists := d.lists[list.ID]; exists {
		return store.ErrAlreadyExists
	}

	d.lists[list.ID] = list
	return d.saveFile("lists.json", d.lists)
}

func (d *Driver) GetList(ctx context.Context, id string) (*store.ListRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}

	list, ok := d.lists[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return list, nil
}

func (d *Driver) UpdateList(ctx context.Context, list *store.ListRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	if _, ok := d.lists[list.ID]; !ok {
		return store.ErrNotFound
	}

	d.lists[list.ID] = list
	return d.saveFile("lists.json", d.lists)
}

func (d *Driver) DeleteList(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	if _, ok := d.lists[id]; !ok {
		return store.ErrNotFound
	}

	delete(d.lists, id)

	// Cascade: items and shares go with the list.
	for _, itemID := range d.itemsByList[id] {
		delete(d.items, itemID)
	}
	delete(d.itemsByList, id)
	for key, share := range d.shares {
		if share.ListID == id {
			delete(d.shares, key)
		}
	}

	if err := d.saveFile("lists.json", d.lists); err != nil {
		return err
	}
	if err := d.saveFile("items.json", d.items); err != nil {
		return err
	}
	return d.saveFile("shares.json", d.shares)
}

func (d *Driver) ListsForUser(ctx context.Context, userID string) ([]*store.ListRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}

	var result []*store.ListRecord
	for _, list := range d.lists {
		if list.OwnerID == userID {
			result = append(result, list)
			continue
		}
		if _, shared := d.shares[shareKey(list.ID, userID)]; shared {
			result = append(result, list)
		}
	}
	// Most recent first
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (d *Driver) CreateItem(ctx context.Context, item *store.ItemRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	if _, exists := d.items[item.ID]; exists {
		return store.ErrAlreadyExists
	}
	if _, ok := d.lists[item.ListID]; !ok {
		return store.ErrNotFound
	}

	d.items[item.ID] = item
	d.itemsByList[item.ListID] = append(d.itemsByList[item.ListID], item.ID)
	return d.saveFile("items.json", d.items)
}

func (d *Driver) GetItem(ctx context.Context, id string) (*store.ItemRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}

	item, ok := d.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return item, nil
}

func (d *Driver) UpdateItem(ctx context.Context, item *store.ItemRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	if _, ok := d.items[item.ID]; !ok {
		return store.ErrNotFound
	}

	d.items[item.ID] = item
	return d.saveFile("items.json", d.items)
}

func (d *Driver) DeleteItem(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	item, ok := d.items[id]
	if !ok {
		return store.ErrNotFound
	}

	delete(d.items, id)
	ids := d.itemsByList[item.ListID]
	for i, itemID := range ids {
		if itemID == id {
			d.itemsByList[item.ListID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	return d.saveFile("items.json", d.items)
}

func (d *Driver) ListItems(ctx context.Context, listID string) ([]*store.ItemRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}

	ids := d.itemsByList[listID]
	result := make([]*store.ItemRecord, 0, len(ids))
	for _, id := range ids {
		result = append(result, d.items[id])
	}
	return result, nil
}

func (d *Driver) CreateShare(ctx context.Context, share *store.ShareRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	key := shareKey(share.ListID, share.UserID)
	if _, exists := d.shares[key]; exists {
		return store.ErrAlreadyExists
	}
	if _, ok := d.lists[share.ListID]; !ok {
		return store.ErrNotFound
	}

	d.shares[key] = share
	return d.saveFile("shares.json", d.shares)
}

func (d *Driver) GetShare(ctx context.Context, listID, userID string) (*store.ShareRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}

	share, ok := d.shares[shareKey(listID, userID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return share, nil
}

func (d *Driver) DeleteShare(ctx context.Context, listID, userID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	key := shareKey(listID, userID)
	if _, ok := d.shares[key]; !ok {
		return store.ErrNotFound
	}

	delete(d.shares, key)
	return d.saveFile("shares.json", d.shares)
}

func (d *Driver) ListShares(ctx context.Context, listID string) ([]*store.ShareRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}

	var result []*store.ShareRecord
	for _, share := range d.shares {
		if share.ListID == listID {
			result = append(result, share)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].UserID < result[j].UserID
	})
	return result, nil
}

func (d *Driver) ListSharesForUser(ctx context.Context, userID string) ([]*store.ShareRecord, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}

	var result []*store.ShareRecord
	for _, share := range d.shares {
		if share.UserID == userID {
			result = append(result, share)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ListID < result[j].ListID })
	return result, nil
}

var _ store.Driver = (*Driver)(nil)
