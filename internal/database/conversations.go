package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const conversationSelect = "SELECT c.id, c.name, c.created_at, c.updated_at, " +
	"(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id) FROM conversations c"

func scanConversation(row scanner) (Conversation, error) {
	var c Conversation
	err := row.Scan(
		&c.Id,
		&c.Name,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.MessageCount,
	)

	return c, err
}

// CreateConversation inserts the conversation and its memberships in one
// transaction. Every participant id must resolve to an account, otherwise an
// error wrapping ErrUnknownUsers is returned and nothing is written.
func (db *PgChatRepository) CreateConversation(ctx context.Context, params CreateConversationParams) (Conversation, error) {
	ids := uniqueIds(params.ParticipantIds)
	if len(ids) == 0 {
		return Conversation{}, fmt.Errorf("%w: no participants given", ErrUnknownUsers)
	}

	var conv Conversation
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var found int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM accounts WHERE id = ANY($1)",
			pq.Array(int64s(ids)),
		).Scan(&found)
		if err != nil {
			return fmt.Errorf("count participants: %w", err)
		}
		if found != len(ids) {
			return fmt.Errorf("%w: %d of %d participant ids do not exist", ErrUnknownUsers, len(ids)-found, len(ids))
		}

		now := time.Now().UTC()
		var id int
		err = tx.QueryRowContext(ctx,
			"INSERT INTO conversations (name, created_at, updated_at) VALUES ($1, $2, $3) RETURNING id",
			params.Name,
			now,
			now,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO conversation_participants (conversation_id, user_id, joined_at) "+
				"SELECT $1::integer, unnest($2::integer[]), $3::timestamptz",
			id,
			pq.Array(int64s(ids)),
			now,
		)
		if err != nil {
			return fmt.Errorf("insert participants: %w", translateError(err))
		}

		conv, err = db.getConversation(ctx, tx, id)
		return err
	})

	return conv, err
}

func (db *PgChatRepository) GetConversation(ctx context.Context, id int) (Conversation, error) {
	return db.getConversation(ctx, db.conn, id)
}

func (db *PgChatRepository) getConversation(ctx context.Context, q queryer, id int) (Conversation, error) {
	conv, err := scanConversation(q.QueryRowContext(ctx, conversationSelect+" WHERE c.id = $1", id))
	if err != nil {
		return Conversation{}, err
	}

	convs := []Conversation{conv}
	if err := db.attachDetails(ctx, q, convs); err != nil {
		return Conversation{}, err
	}

	return convs[0], nil
}

// ListConversations returns the conversations accountId participates in, most
// recently updated first.
func (db *PgChatRepository) ListConversations(ctx context.Context, accountId int) ([]Conversation, error) {
	rows, err := db.conn.QueryContext(ctx,
		conversationSelect+
			" JOIN conversation_participants p ON p.conversation_id = c.id "+
			"WHERE p.user_id = $1 ORDER BY c.updated_at DESC, c.id DESC",
		accountId,
	)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	convs := make([]Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := db.attachDetails(ctx, db.conn, convs); err != nil {
		return nil, err
	}

	return convs, nil
}

// attachDetails loads participants and the last message for every conversation
// in convs with one query each.
func (db *PgChatRepository) attachDetails(ctx context.Context, q queryer, convs []Conversation) error {
	if len(convs) == 0 {
		return nil
	}

	ids := make([]int64, len(convs))
	index := make(map[int]int, len(convs))
	for i, c := range convs {
		ids[i] = int64(c.Id)
		index[c.Id] = i
	}

	rows, err := q.QueryContext(ctx,
		"SELECT p.conversation_id, a.id, a.username, a.email, a.first_name, a.last_name, "+
			"a.phone_number, a.is_online, a.created_at, a.updated_at "+
			"FROM conversation_participants p JOIN accounts a ON a.id = p.user_id "+
			"WHERE p.conversation_id = ANY($1) ORDER BY p.conversation_id, a.id",
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var convId int
		u, err := scanParticipant(rows, &convId)
		if err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		i := index[convId]
		convs[i].Participants = append(convs[i].Participants, u)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	msgRows, err := q.QueryContext(ctx,
		"SELECT DISTINCT ON (m.conversation_id) "+messageColumns+" "+messageFrom+
			" WHERE m.conversation_id = ANY($1) "+
			"ORDER BY m.conversation_id, m.created_at DESC, m.id DESC",
		pq.Array(ids),
	)
	if err != nil {
		return fmt.Errorf("load last messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		msg, err := scanMessage(msgRows)
		if err != nil {
			return fmt.Errorf("scan last message: %w", err)
		}
		convs[index[msg.ConversationId]].LastMessage = &msg
	}

	return msgRows.Err()
}

func scanParticipant(row scanner, convId *int) (User, error) {
	var u User
	err := row.Scan(
		convId,
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.FirstName,
		&u.LastName,
		&u.PhoneNumber,
		&u.IsOnline,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgChatRepository) UpdateConversation(ctx context.Context, id int, name string) (Conversation, error) {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE conversations SET name = $2, updated_at = $3 WHERE id = $1",
		id,
		name,
		time.Now().UTC(),
	)
	if err != nil {
		return Conversation{}, fmt.Errorf("update conversation: %w", err)
	}
	if err := expectRows(res); err != nil {
		return Conversation{}, err
	}

	return db.GetConversation(ctx, id)
}

// DeleteConversation removes the conversation; memberships and messages are
// removed by cascade.
func (db *PgChatRepository) DeleteConversation(ctx context.Context, id int) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM conversations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}

	return expectRows(res)
}

func (db *PgChatRepository) IsParticipant(ctx context.Context, conversationId, accountId int) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2)",
		conversationId,
		accountId,
	).Scan(&exists)

	return exists, err
}

// AddParticipant adds accountId to the conversation. It reports false without
// error when the account already is a participant.
func (db *PgChatRepository) AddParticipant(ctx context.Context, conversationId, accountId int) (bool, error) {
	var added bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO conversation_participants (conversation_id, user_id, joined_at) "+
				"VALUES ($1, $2, $3) ON CONFLICT (conversation_id, user_id) DO NOTHING",
			conversationId,
			accountId,
			now,
		)
		if err != nil {
			return translateError(err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		added = true

		_, err = tx.ExecContext(ctx, "UPDATE conversations SET updated_at = $2 WHERE id = $1", conversationId, now)
		return err
	})

	return added, err
}

// RemoveParticipant removes accountId from the conversation. It reports false
// without error when the account is not a participant and returns
// ErrLastParticipant instead of removing the only remaining member. The
// conversation row is locked so concurrent removals are serialized.
func (db *PgChatRepository) RemoveParticipant(ctx context.Context, conversationId, accountId int) (bool, error) {
	var removed bool
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var id int
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM conversations WHERE id = $1 FOR UPDATE",
			conversationId,
		).Scan(&id)
		if err != nil {
			return err
		}

		var isMember bool
		var count int
		err = tx.QueryRowContext(ctx,
			"SELECT COALESCE(BOOL_OR(user_id = $2), FALSE), COUNT(*) "+
				"FROM conversation_participants WHERE conversation_id = $1",
			conversationId,
			accountId,
		).Scan(&isMember, &count)
		if err != nil {
			return fmt.Errorf("count participants: %w", err)
		}

		if !isMember {
			return nil
		}
		if count <= 1 {
			return ErrLastParticipant
		}

		_, err = tx.ExecContext(ctx,
			"DELETE FROM conversation_participants WHERE conversation_id = $1 AND user_id = $2",
			conversationId,
			accountId,
		)
		if err != nil {
			return fmt.Errorf("delete participant: %w", err)
		}
		removed = true

		_, err = tx.ExecContext(ctx,
			"UPDATE conversations SET updated_at = $2 WHERE id = $1",
			conversationId,
			time.Now().UTC(),
		)
		return err
	})

	return removed, err
}
