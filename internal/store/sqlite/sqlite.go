// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/shoplist/shoplist-go/internal/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Driver implements the store.Driver interface using SQLite via GORM.
type Driver struct {
	dataDir string
	db      *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}

	return &Driver{dataDir: cfg.DataDir}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init initializes the SQLite database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	dbPath := filepath.Join(d.dataDir, "shoplist.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db

	if err := db.AutoMigrate(
		&store.UserRecord{},
		&store.ListRecord{},
		&store.ItemRecord{},
		&store.ShareRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UserStore implementation

func (d *Driver) CreateUser(ctx context.Context, user *store.UserRecord) error {
	result := d.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return store.ErrAlreadyExists
		}
		return result.Error
	}
	return nil
}

func (d *Driver) GetUser(ctx context.Context, id string) (*store.UserRecord, error) {
	var user store.UserRecord
	result := d.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (d *Driver) GetUserByEmail(ctx context.Context, email string) (*store.UserRecord, error) {
	var user store.UserRecord
	result := d.db.WithContext(ctx).First(&user, "email = ?", strings.ToLower(email))
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (d *Driver) UpdateUser(ctx context.Context, user *store.UserRecord) error {
	result := d.db.WithContext(ctx).Save(user)
	return result.Error
}

func (d *Driver) DeleteUser(ctx context.Context, id string) error {
	result := d.db.WithContext(ctx).Delete(&store.UserRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *Driver) ListUsers(ctx context.Context) ([]*store.UserRecord, error) {
	var users []*store.UserRecord
	result := d.db.WithContext(ctx).Order("created_at").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

// ListStore implementation

func (d *Driver) CreateList(ctx context.Context, list *store.ListRecord) error {
	result := d.db.WithContext(ctx).Create(list)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return store.ErrAlreadyExists
		}
		return result.Error
	}
	return nil
}

func (d *Driver) GetList(ctx context.Context, id string) (*store.ListRecord, error) {
	var list store.ListRecord
	result := d.db.WithContext(ctx).First(&list, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &list, nil
}

func (d *Driver) UpdateList(ctx context.Context, list *store.ListRecord) error {
	result := d.db.WithContext(ctx).Save(list)
	return result.Error
}

// DeleteList removes the list and cascades to its items and shares in one
// transaction.
func (d *Driver) DeleteList(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&store.ListRecord{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if err := tx.Delete(&store.ItemRecord{}, "list_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&store.ShareRecord{}, "list_id = ?", id).Error
	})
}

func (d *Driver) ListsForUser(ctx context.Context, userID string) ([]*store.ListRecord, error) {
	var lists []*store.ListRecord
	result := d.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Or("id IN (?)", d.db.Model(&store.ShareRecord{}).Select("list_id").Where("user_id = ?", userID)).
		Order("created_at DESC, id").
		Find(&lists)
	if result.Error != nil {
		return nil, result.Error
	}
	return lists, nil
}

func (d *Driver) CreateItem(ctx context.Context, item *store.ItemRecord) error {
	result := d.db.WithContext(ctx).Create(item)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return store.ErrAlreadyExists
		}
		return result.Error
	}
	return nil
}

func (d *Driver) GetItem(ctx context.Context, id string) (*store.ItemRecord, error) {
	var item store.ItemRecord
	result := d.db.WithContext(ctx).First(&item, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &item, nil
}

func (d *Driver) UpdateItem(ctx context.Context, item *store.ItemRecord) error {
	result := d.db.WithContext(ctx).Save(item)
	return result.Error
}

func (d *Driver) DeleteItem(ctx context.Context, id string) error {
	result := d.db.WithContext(ctx).Delete(&store.ItemRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *Driver) ListItems(ctx context.Context, listID string) ([]*store.ItemRecord, error) {
	var items []*store.ItemRecord
	result := d.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order("created_at, id").
		Find(&items)
	if result.Error != nil {
		return nil, result.Error
	}
	return items, nil
}

func (d *Driver) CreateShare(ctx context.Context, share *store.ShareRecord) error {
	result := d.db.WithContext(ctx).Create(share)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return store.ErrAlreadyExists
		}
		return result.Error
	}
	return nil
}

func (d *Driver) GetShare(ctx context.Context, listID, userID string) (*store.ShareRecord, error) {
	var share store.ShareRecord
	result := d.db.WithContext(ctx).First(&share, "list_id = ? AND user_id = ?", listID, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &share, nil
}

func (d *Driver) DeleteShare(ctx context.Context, listID, userID string) error {
	result := d.db.WithContext(ctx).Delete(&store.ShareRecord{}, "list_id = ? AND user_id = ?", listID, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (d *Driver) ListShares(ctx context.Context, listID string) ([]*store.ShareRecord, error) {
	var shares []*store.ShareRecord
	result := d.db.WithContext(ctx).
		Where("list_id = ?", listID).
		Order("created_at, user_id").
		Find(&shares)
	if result.Error != nil {
		return nil, result.Error
	}
	return shares, nil
}

func (d *Driver) ListSharesForUser(ctx context.Context, userID string) ([]*store.ShareRecord, error) {
	var shares []*store.ShareRecord
	result := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("list_id").
		Find(&shares)
	if result.Error != nil {
		return nil, result.Error
	}
	return shares, nil
}

// isUniqueViolation reports whether the error is a unique constraint failure.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

var _ store.Driver = (*Driver)(nil)
