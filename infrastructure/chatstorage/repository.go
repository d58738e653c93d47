package chatstorage

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	domainChat "github.com/wabridge/wabridge/domains/chat"
	"github.com/wabridge/wabridge/pkg/utils"
	"github.com/wabridge/wabridge/session"
)

const maxChatListSize = 50

// SQLiteRepository maintains the chat index: one row per chat, updated from
// every message the session observes. It backs the chat listing endpoint
// and doubles as the coordinator's message indexer.
type SQLiteRepository struct {
	db *sql.DB
}

var _ session.MessageIndexer = (*SQLiteRepository)(nil)
var _ domainChat.IChatRepository = (*SQLiteRepository)(nil)

func NewStorageRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Open connects to the chat index database and runs the schema migration.
func Open(uri string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, err
	}

	repo := NewStorageRepository(db)
	if err := repo.InitializeSchema(); err != nil {
		logrus.Errorf("[CHATSTORAGE] Failed to initialize schema: %v", err)
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) InitializeSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS chats (
			jid TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			last_message TEXT NOT NULL DEFAULT '',
			last_message_time INTEGER NOT NULL DEFAULT 0,
			unread_count INTEGER NOT NULL DEFAULT 0,
			is_group INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_chats_last_message_time ON chats(last_message_time DESC);
	`)
	return err
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// RecordMessage upserts the chat row for msg. Incoming messages bump the
// unread counter, our own reset it.
func (r *SQLiteRepository) RecordMessage(ctx context.Context, msg *session.MessageEvent) error {
	chatJID := msg.ChatJID()
	if chatJID == "" {
		return nil
	}

	name := ""
	if !msg.FromMe && !msg.IsGroup {
		name = msg.SenderName
	}

	unreadDelta := 1
	if msg.FromMe {
		unreadDelta = 0
	}

	isGroup := 0
	if msg.IsGroup || utils.IsGroupJID(chatJID) {
		isGroup = 1
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chats (jid, name, last_message, last_message_time, unread_count, is_group)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(jid) DO UPDATE SET
			name = CASE WHEN excluded.name != '' THEN excluded.name ELSE chats.name END,
			last_message = excluded.last_message,
			last_message_time = MAX(chats.last_message_time, excluded.last_message_time),
			unread_count = CASE WHEN ? = 0 THEN 0 ELSE chats.unread_count + 1 END,
			is_group = excluded.is_group
	`, chatJID, name, msg.Body, msg.Timestamp, unreadDelta, isGroup, unreadDelta)
	return err
}

// RecordAck resets the unread counter once a chat is read (level 3+).
func (r *SQLiteRepository) RecordAck(ctx context.Context, ack *session.AckEvent) error {
	if ack.Ack < 3 || ack.ChatJID == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `UPDATE chats SET unread_count = 0 WHERE jid = ?`, ack.ChatJID)
	return err
}

// ListChats returns the most recently active chats, newest first. limit is
// capped at 50.
func (r *SQLiteRepository) ListChats(ctx context.Context, limit int) ([]domainChat.Chat, error) {
	if limit <= 0 || limit > maxChatListSize {
		limit = maxChatListSize
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT jid, name, last_message, last_message_time, unread_count, is_group
		FROM chats
		ORDER BY last_message_time DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := make([]domainChat.Chat, 0, limit)
	for rows.Next() {
		var c domainChat.Chat
		var isGroup int
		if err := rows.Scan(&c.JID, &c.Name, &c.LastMessage, &c.LastMessageTime, &c.UnreadCount, &isGroup); err != nil {
			return nil, err
		}
		c.IsGroup = isGroup == 1
		chats = append(chats, c)
	}
	return chats, rows.Err()
}
