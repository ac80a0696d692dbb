package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// go test -v --run TestUpsertStatusSQL
func TestUpsertStatusSQL(t *testing.T) {
	db, err := gorm.Open(pgdriver.New(pgdriver.Config{
		DSN: "host=localhost user=dry dbname=dry sslmode=disable",
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	rec := &StatusRecord{ClientID: "dry", ReportedAt: time.Now()}

	tx := db.WithContext(context.Background()).Clauses(upsertClause()).Create(rec)
	require.NoError(t, tx.Error)

	sql := tx.Statement.SQL.String()
	assert.Contains(t, sql, `INSERT INTO "client_status"`)
	assert.Contains(t, sql, `ON CONFLICT ("client_id") DO UPDATE SET`)
	assert.Contains(t, sql, `"total_messages"="excluded"."total_messages"`)
}
