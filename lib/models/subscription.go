package models

import (
	"database/sql"
	"time"
)

// Subscription maps one webhook endpoint to a notice filter and the id of
// the newest notice already accounted for (the watermark). The endpoint is
// the identity: it cannot be changed, only deleted and re-registered, so
// the model carries no DeletedAt (a soft-deleted row would keep holding the
// unique index and block re-registration).
type Subscription struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Endpoint     string `gorm:"uniqueIndex"`
	Category     string
	Department   string
	Search       string
	Watermark    int64
	LastSyncTime sql.NullTime
}

type Subscriptions []Subscription

func (s *Subscription) Filter() Filter {
	return Filter{
		Category:   s.Category,
		Department: s.Department,
		Search:     s.Search,
	}
}
