package postgres

import (
	"context"

	"gorm.io/gorm/clause"
)

var statusUpdateColumns = []string{
	"connected",
	"messages_per_sec",
	"total_messages",
	"avg_latency_ms",
	"last_symbol",
	"last_price",
	"last_tick_at",
	"reported_at",
	"updated_at",
}

// UpsertStatus inserts the record or overwrites the existing row for the same client.
func (p *PostgresClient) UpsertStatus(ctx context.Context, record *StatusRecord) error {
	return p.DB.WithContext(ctx).Clauses(upsertClause()).Create(record).Error
}

func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "client_id"}},
		DoUpdates: clause.AssignmentColumns(statusUpdateColumns),
	}
}

// SetConnected flips only the connection flag of an existing row.
func (p *PostgresClient) SetConnected(ctx context.Context, clientID string, connected bool) error {
	return p.DB.WithContext(ctx).
		Model(&StatusRecord{}).
		Where("client_id = ?", clientID).
		Update("connected", connected).Error
}

func (p *PostgresClient) GetStatus(ctx context.Context, clientID string) (*StatusRecord, error) {
	var rec StatusRecord
	err := p.DB.WithContext(ctx).
		Where("client_id = ?", clientID).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *PostgresClient) DeleteStatus(ctx context.Context, clientID string) error {
	return p.DB.WithContext(ctx).
		Where("client_id = ?", clientID).
		Delete(&StatusRecord{}).Error
}
