package models

import (
	"time"

	"github.com/magabrotheeeer/beatstore/internal/tier"
)

// SubscriptionDownload — запись журнала загрузок по подписке. Записи только добавляются.
type SubscriptionDownload struct {
	ID             string
	UserID         string
	BeatID         string
	SubscriptionID string
	LicenseType    tier.LicenseType
	DownloadedAt   time.Time
}

// DownloadedBeat — загрузка текущего месяца для экрана статуса.
type DownloadedBeat struct {
	BeatID       string           `json:"beat_id"`
	Title        string           `json:"title"`
	LicenseType  tier.LicenseType `json:"license_type"`
	DownloadedAt time.Time        `json:"downloaded_at"`
}

// DummyDownload — тело запроса на загрузку бита.
type DummyDownload struct {
	BeatID string `json:"beat_id" validate:"required,uuid"`
}
