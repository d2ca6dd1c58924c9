package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 200

	messageColumns = "m.id, m.conversation_id, m.content, m.is_read, m.created_at, " +
		"a.id, a.username, a.email, a.first_name, a.last_name, a.phone_number, a.is_online, a.created_at, a.updated_at"
	messageFrom = "FROM messages m JOIN accounts a ON a.id = m.sender_id"
)

func scanMessage(row scanner) (Message, error) {
	var msg Message
	err := row.Scan(
		&msg.Id,
		&msg.ConversationId,
		&msg.Content,
		&msg.IsRead,
		&msg.Timestamp,
		&msg.Sender.Id,
		&msg.Sender.Username,
		&msg.Sender.EmailAddress,
		&msg.Sender.FirstName,
		&msg.Sender.LastName,
		&msg.Sender.PhoneNumber,
		&msg.Sender.IsOnline,
		&msg.Sender.CreatedAt,
		&msg.Sender.UpdatedAt,
	)

	return msg, err
}

// CreateMessage stores the message and bumps the conversation's updated_at in
// the same transaction.
func (db *PgChatRepository) CreateMessage(ctx context.Context, params CreateMessageParams) (Message, error) {
	var msg Message
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		var id int
		err := tx.QueryRowContext(ctx,
			"INSERT INTO messages (conversation_id, sender_id, content, is_read, created_at) "+
				"VALUES ($1, $2, $3, FALSE, $4) RETURNING id",
			params.ConversationId,
			params.SenderId,
			params.Content,
			now,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert message: %w", translateError(err))
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE conversations SET updated_at = $2 WHERE id = $1",
			params.ConversationId,
			now,
		)
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}

		msg, err = getMessage(ctx, tx, id)
		return err
	})

	return msg, err
}

func (db *PgChatRepository) GetMessage(ctx context.Context, id int) (Message, error) {
	return getMessage(ctx, db.conn, id)
}

func getMessage(ctx context.Context, q queryer, id int) (Message, error) {
	return scanMessage(q.QueryRowContext(ctx,
		"SELECT "+messageColumns+" "+messageFrom+" WHERE m.id = $1",
		id,
	))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultMessageLimit
	}
	if limit > maxMessageLimit {
		return maxMessageLimit
	}
	return limit
}

// ListMessages returns the most recent messages visible to params.UserId in
// ascending timestamp order.
func (db *PgChatRepository) ListMessages(ctx context.Context, params ListMessagesParams) ([]Message, error) {
	limit := clampLimit(params.Limit)

	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+messageColumns+" FROM ("+
			"SELECT mm.* FROM messages mm "+
			"JOIN conversation_participants p ON p.conversation_id = mm.conversation_id AND p.user_id = $1 "+
			"WHERE ($2::integer = 0 OR mm.conversation_id = $2::integer) "+
			"ORDER BY mm.created_at DESC, mm.id DESC LIMIT $3"+
			") m JOIN accounts a ON a.id = m.sender_id "+
			"ORDER BY m.created_at ASC, m.id ASC",
		params.UserId,
		params.ConversationId,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}

// UpdateMessage replaces the content. MarkRead can only move is_read from false
// to true.
func (db *PgChatRepository) UpdateMessage(ctx context.Context, params UpdateMessageParams) (Message, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET content = $2, is_read = (is_read OR $3) WHERE id = $1",
		params.MessageId,
		params.Content,
		params.MarkRead,
	)
	if err != nil {
		return Message{}, fmt.Errorf("update message: %w", err)
	}
	if err := expectRows(res); err != nil {
		return Message{}, err
	}

	return db.GetMessage(ctx, params.MessageId)
}

func (db *PgChatRepository) DeleteMessage(ctx context.Context, id int) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM messages WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}

	return expectRows(res)
}

func (db *PgChatRepository) MarkMessageRead(ctx context.Context, id int) error {
	res, err := db.conn.ExecContext(ctx, "UPDATE messages SET is_read = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}

	return expectRows(res)
}

// MarkConversationRead flips is_read on every unread message in the
// conversation that readerId did not send. It runs as a single statement, so
// readers never observe a partially updated conversation.
func (db *PgChatRepository) MarkConversationRead(ctx context.Context, conversationId, readerId int) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE messages SET is_read = TRUE "+
			"WHERE conversation_id = $1 AND sender_id <> $2 AND NOT is_read",
		conversationId,
		readerId,
	)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}

	return res.RowsAffected()
}
