package postgres

import "time"

// StatusRecord is the latest reported state of one client. There is exactly one row per
// client; every reporting interval overwrites it.
type StatusRecord struct {
	ID uint `gorm:"primaryKey"`

	ClientID string `gorm:"type:text;not null;uniqueIndex:idx_status_client_id"`

	Connected      bool    `gorm:"not null"`
	MessagesPerSec int64   `gorm:"not null"`
	TotalMessages  int64   `gorm:"not null"`
	AvgLatencyMs   float64 `gorm:"type:double precision;not null"`

	LastSymbol string  `gorm:"type:varchar(16)"`
	LastPrice  float64 `gorm:"type:double precision"`
	LastTickAt *time.Time

	ReportedAt time.Time `gorm:"not null;index:idx_status_reported_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the default table name for GORM.
func (StatusRecord) TableName() string {
	return "client_status"
}
