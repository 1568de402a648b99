package history

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/suPer8Hu/tg-gpt-bridge/internal/db"
)

const tableName = "chat_history"

type ChatHistory struct {
	ChatID  int64          `gorm:"primaryKey;autoIncrement:false"`
	History datatypes.JSON `gorm:"not null"`
}

func (ChatHistory) TableName() string { return tableName }

var schemaDDL = map[string]string{
	"postgres": `CREATE TABLE IF NOT EXISTS chat_history (
	chat_id BIGINT PRIMARY KEY,
	history JSONB NOT NULL DEFAULT '[]'::jsonb
)`,
	"mysql": `CREATE TABLE IF NOT EXISTS chat_history (
	chat_id BIGINT PRIMARY KEY,
	history JSON NOT NULL DEFAULT (JSON_ARRAY())
)`,
	"sqlite": `CREATE TABLE IF NOT EXISTS chat_history (
	chat_id INTEGER PRIMARY KEY,
	history TEXT NOT NULL DEFAULT '[]'
)`,
}

// SQLStore keeps histories in a single relational table, one row per chat.
type SQLStore struct {
	pool *db.Pool
	log  *zap.SugaredLogger
}

func NewSQLStore(pool *db.Pool, log *zap.SugaredLogger) *SQLStore {
	return &SQLStore{pool: pool, log: log}
}

func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	gdb := s.pool.DB()
	if gdb == nil {
		return db.ErrPoolNotInitialized
	}
	dialect := gdb.Dialector.Name()
	ddl, ok := schemaDDL[dialect]
	if !ok {
		return fmt.Errorf("no chat_history schema for dialect %q", dialect)
	}
	if err := gdb.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("create chat_history: %w", err)
	}
	s.log.Infow("table chat_history checked", "dialect", dialect)
	return nil
}

func (s *SQLStore) Get(ctx context.Context, chatID int64) Lookup {
	gdb := s.pool.DB()
	if gdb == nil {
		return degraded(s.log, chatID, db.ErrPoolNotInitialized)
	}

	// raw bytes so a malformed value surfaces as a decode problem, not a scan error
	var rows []struct {
		History []byte
	}
	err := gdb.WithContext(ctx).
		Table(tableName).
		Select("history").
		Where("chat_id = ?", chatID).
		Limit(1).
		Scan(&rows).Error
	if err != nil {
		return degraded(s.log, chatID, fmt.Errorf("read history: %w", err))
	}
	if len(rows) == 0 || rows[0].History == nil {
		return empty()
	}
	return decodeLookup(s.log, chatID, rows[0].History)
}

func (s *SQLStore) Save(ctx context.Context, chatID int64, msgs []Message) error {
	gdb := s.pool.DB()
	if gdb == nil {
		return db.ErrPoolNotInitialized
	}
	payload, err := Encode(msgs)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	row := ChatHistory{ChatID: chatID, History: datatypes.JSON(payload)}
	err = gdb.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chat_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"history"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, chatID int64) error {
	gdb := s.pool.DB()
	if gdb == nil {
		return db.ErrPoolNotInitialized
	}
	if err := gdb.WithContext(ctx).Where("chat_id = ?", chatID).Delete(&ChatHistory{}).Error; err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}
