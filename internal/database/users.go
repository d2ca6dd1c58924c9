package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

const accountColumns = "id, username, email, first_name, last_name, phone_number, is_online, created_at, updated_at"

func scanUser(row scanner, extra ...any) (User, error) {
	var u User
	dest := []any{
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.FirstName,
		&u.LastName,
		&u.PhoneNumber,
		&u.IsOnline,
		&u.CreatedAt,
		&u.UpdatedAt,
	}
	err := row.Scan(append(dest, extra...)...)

	return u, err
}

func (db *PgChatRepository) CreateAccount(ctx context.Context, params CreateAccountParams) (User, error) {
	now := time.Now().UTC()
	row := db.conn.QueryRowContext(ctx,
		"INSERT INTO accounts (username, email, first_name, last_name, phone_number, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING "+accountColumns,
		params.Username,
		params.EmailAddress,
		params.FirstName,
		params.LastName,
		params.PhoneNumber,
		params.PasswordHash,
		now,
		now,
	)

	u, err := scanUser(row)
	if err != nil {
		return User{}, translateError(err)
	}

	return u, nil
}

func (db *PgChatRepository) UpdateAccount(ctx context.Context, params UpdateAccountParams) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"UPDATE accounts SET username = $2, email = $3, first_name = $4, last_name = $5, "+
			"phone_number = $6, is_online = COALESCE($7, is_online), updated_at = $8 "+
			"WHERE id = $1 RETURNING "+accountColumns,
		params.UserId,
		params.Username,
		params.EmailAddress,
		params.FirstName,
		params.LastName,
		params.PhoneNumber,
		params.IsOnline,
		time.Now().UTC(),
	)

	u, err := scanUser(row)
	if err != nil {
		return User{}, translateError(err)
	}

	return u, nil
}

func (db *PgChatRepository) GetAccountById(ctx context.Context, id int) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE id = $1 LIMIT 1",
		id,
	)

	return scanUser(row)
}

func (db *PgChatRepository) GetAccountByEmail(ctx context.Context, email string) (User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+accountColumns+", password_hash FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	var hash string
	u, err := scanUser(row, &hash)
	u.PasswordHash = hash

	return u, err
}

func (db *PgChatRepository) ListAccounts(ctx context.Context, params ListAccountsParams) ([]User, error) {
	query := "SELECT " + accountColumns + " FROM accounts WHERE id <> $1"
	args := []any{params.ExcludeId}

	if search := strings.TrimSpace(params.Search); search != "" {
		query += " AND (username ILIKE $2 OR email ILIKE $2 OR first_name ILIKE $2 OR last_name ILIKE $2)"
		args = append(args, "%"+escapeLike(search)+"%")
	}
	query += " ORDER BY id"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

func (db *PgChatRepository) SetOnlineStatus(ctx context.Context, id int, online bool) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE accounts SET is_online = $2, updated_at = $3 WHERE id = $1",
		id,
		online,
		time.Now().UTC(),
	)
	if err != nil {
		return err
	}

	return expectRows(res)
}

// DeleteAccount removes the account along with its messages and memberships.
// Conversations left without any participant are deleted as well.
func (db *PgChatRepository) DeleteAccount(ctx context.Context, id int) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			"SELECT conversation_id FROM conversation_participants WHERE user_id = $1",
			id,
		)
		if err != nil {
			return fmt.Errorf("list memberships: %w", err)
		}

		var convIds []int64
		for rows.Next() {
			var cid int64
			if err := rows.Scan(&cid); err != nil {
				rows.Close()
				return fmt.Errorf("scan membership: %w", err)
			}
			convIds = append(convIds, cid)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		// messages and memberships go with the account via ON DELETE CASCADE
		res, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = $1", id)
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if err := expectRows(res); err != nil {
			return err
		}

		if len(convIds) == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			"DELETE FROM conversations c WHERE c.id = ANY($1) AND NOT EXISTS "+
				"(SELECT 1 FROM conversation_participants p WHERE p.conversation_id = c.id)",
			pq.Array(convIds),
		)
		if err != nil {
			return fmt.Errorf("delete empty conversations: %w", err)
		}

		return nil
	})
}

func expectRows(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
