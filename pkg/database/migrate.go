package database

import (
	"fmt"

	"relaydesk/internal/domain/channel"
	"relaydesk/internal/domain/message"
	"relaydesk/internal/domain/thread"
)

// rawIndexes are constraints GORM's AutoMigrate cannot express. The
// partial unique index on conversation_threads is what makes the
// single-active-segment rule hold under concurrent writers.
var rawIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_whatsapp_threads_channel_phone
		ON whatsapp_threads (channel_id, remote_phone_number)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_email_threads_channel_token
		ON email_threads (channel_id, token)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_conversation_threads_single_active
		ON conversation_threads (whatsapp_thread_id) WHERE ended_at IS NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_whatsapp_messages_idempotency
		ON whatsapp_messages (thread_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_email_messages_idempotency
		ON email_messages (thread_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_whatsapp_messages_thread_created
		ON whatsapp_messages (thread_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_email_messages_thread_created
		ON email_messages (thread_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_whatsapp_messages_provider_id
		ON whatsapp_messages (provider_message_id)`,
	`CREATE INDEX IF NOT EXISTS idx_email_messages_provider_id
		ON email_messages (provider_message_id)`,
}

// Migrate creates the schema: GORM tables first, then the raw indexes.
func Migrate() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}

	if err := DB.AutoMigrate(
		&channel.Channel{},
		&thread.EmailThread{},
		&thread.WhatsAppThread{},
		&thread.ConversationThread{},
		&message.WhatsAppMessage{},
		&message.EmailMessage{},
		&message.Attachment{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	for _, stmt := range rawIndexes {
		if err := DB.Exec(stmt).Error; err != nil {
			return fmt.Errorf("raw index: %w", err)
		}
	}
	return nil
}

func Ping() error {
	if DB == nil {
		return fmt.Errorf("database not connected")
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func Close() {
	if DB == nil {
		return
	}
	if sqlDB, err := DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func TableExists(name string) (bool, error) {
	if DB == nil {
		return false, fmt.Errorf("database not connected")
	}
	return DB.Migrator().HasTable(name), nil
}

func TableCount(name string) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not connected")
	}
	var count int64
	err := DB.Table(name).Count(&count).Error
	return count, err
}
