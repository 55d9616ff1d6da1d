package characters

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Store persists characters through gorm.
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open gorm handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the Characters table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Character{}); err != nil {
		return fmt.Errorf("migrating %s: %w", Character{}.TableName(), err)
	}
	return nil
}

// Ping checks the underlying connection pool.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// HasCharacterTable reports whether the Characters table exists.
func (s *Store) HasCharacterTable(ctx context.Context) bool {
	return s.db.WithContext(ctx).Migrator().HasTable(&Character{})
}

func (s *Store) List(ctx context.Context) ([]Character, error) {
	out := []Character{}
	if err := s.db.WithContext(ctx).Order(`"Id"`).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, id uint) (*Character, error) {
	var c Character
	err := s.db.WithContext(ctx).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading character %d: %w", id, err)
	}
	return &c, nil
}

func (s *Store) Create(ctx context.Context, c *Character) error {
	c.ID = 0
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("creating character: %w", err)
	}
	return nil
}

// Update overwrites every column of the row identified by c.ID.
func (s *Store) Update(ctx context.Context, c *Character) error {
	res := s.db.WithContext(ctx).Model(&Character{ID: c.ID}).
		Select("Nume", "Poza", "Health", "Armor", "Mana").
		Updates(c)
	if res.Error != nil {
		return fmt.Errorf("updating character %d: %w", c.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&Character{}, id)
	if res.Error != nil {
		return fmt.Errorf("deleting character %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reset deletes every character and inserts rows in one transaction.
func (s *Store) Reset(ctx context.Context, rows []Character) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Character{}).Error; err != nil {
			return fmt.Errorf("deleting characters: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("inserting seed characters: %w", err)
		}
		return nil
	})
}

// Count returns the number of stored characters.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Character{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting characters: %w", err)
	}
	return n, nil
}
