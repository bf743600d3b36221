package store

import (
	"context"
	"errors"
	"time"

	"github.com/asitisdev/noticewatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("subscription not found")
	ErrConflict = errors.New("endpoint already registered")
)

// Store persists subscriptions. Every call goes straight to the database;
// there is no in-memory state, so concurrent invocations only coordinate
// through the storage layer itself.
type Store struct {
	log *zap.Logger
	db  *gorm.DB
}

func NewStore(lc fx.Lifecycle, log *zap.Logger, db *gorm.DB) *Store {
	return &Store{log, db}
}

func (s *Store) Get(ctx context.Context, endpoint string) (*models.Subscription, error) {
	sub := &models.Subscription{}
	tx := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(sub)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}
	return sub, nil
}

// Create inserts the subscription, relying on the unique index on endpoint
// to arbitrate duplicates: of two concurrent creates for the same endpoint
// exactly one inserts, the other observes zero affected rows.
func (s *Store) Create(ctx context.Context, sub *models.Subscription) error {
	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sub)
	if err := tx.Error; err != nil {
		return err
	}
	if tx.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateWatermark advances the watermark to the given id. The guard keeps
// the watermark monotone when a triggered refresh races the scheduled sweep.
func (s *Store) UpdateWatermark(ctx context.Context, endpoint string, watermark int64) error {
	tx := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("endpoint = ?", endpoint).
		Where("watermark < ?", watermark).
		Update("watermark", watermark)
	if err := tx.Error; err != nil {
		return err
	}
	if tx.RowsAffected == 0 {
		// Either the row is gone or another sync already moved past us.
		if _, err := s.Get(ctx, endpoint); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) TouchLastSync(ctx context.Context, endpoint string, at time.Time) error {
	tx := s.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("endpoint = ?", endpoint).
		Update("last_sync_time", at)
	return tx.Error
}

func (s *Store) Delete(ctx context.Context, endpoint string) error {
	tx := s.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&models.Subscription{})
	if err := tx.Error; err != nil {
		return err
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListAll returns every subscription; used by the scheduled sweep only.
func (s *Store) ListAll(ctx context.Context) (models.Subscriptions, error) {
	var subs models.Subscriptions
	tx := s.db.WithContext(ctx).Order("id").Find(&subs)
	if err := tx.Error; err != nil {
		return nil, err
	}
	return subs, nil
}
