package app

import (
	"database/sql"
	"time"

	"github.com/asitisdev/noticewatch/lib/models"
)

type SubscriptionView struct {
	Endpoint     string     `json:"endpoint"`
	Filter       FilterView `json:"filter"`
	Watermark    int64      `json:"watermark"`
	CreatedAt    string     `json:"created_at"`
	LastSyncTime *string    `json:"last_sync_time"`
}

type FilterView struct {
	Category   string `json:"category"`
	Department string `json:"department"`
	Search     string `json:"search"`
}

func (view SubscriptionView) From(entity *models.Subscription) SubscriptionView {
	return SubscriptionView{
		Endpoint: entity.Endpoint,
		Filter: FilterView{
			Category:   entity.Category,
			Department: entity.Department,
			Search:     entity.Search,
		},
		Watermark:    entity.Watermark,
		CreatedAt:    entity.CreatedAt.UTC().Format(time.RFC3339),
		LastSyncTime: isoformat(entity.LastSyncTime),
	}
}

func isoformat(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := t.Time.UTC().Format(time.RFC3339)
	return &s
}
