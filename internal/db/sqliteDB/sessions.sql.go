package sqliteDB

import (
	"context"
)

const createSession = `-- name: CreateSession :one
INSERT INTO sessions (id, account_id, expires_at, ip_address, user_agent)
VALUES (?, ?, ?, ?, ?)
RETURNING id, account_id, expires_at, created_at, ip_address, user_agent
`

type CreateSessionParams struct {
	ID        string
	AccountID string
	ExpiresAt int64
	IpAddress *string
	UserAgent *string
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, createSession,
		arg.ID,
		arg.AccountID,
		arg.ExpiresAt,
		arg.IpAddress,
		arg.UserAgent,
	)
	var i Session
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.ExpiresAt,
		&i.CreatedAt,
		&i.IpAddress,
		&i.UserAgent,
	)
	return i, err
}

const getValidSession = `-- name: GetValidSession :one
SELECT id, account_id, expires_at, created_at, ip_address, user_agent FROM sessions
WHERE id = ? AND expires_at > ?
`

type GetValidSessionParams struct {
	ID  string
	Now int64
}

func (q *Queries) GetValidSession(ctx context.Context, arg GetValidSessionParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, getValidSession, arg.ID, arg.Now)
	var i Session
	err := row.Scan(
		&i.ID,
		&i.AccountID,
		&i.ExpiresAt,
		&i.CreatedAt,
		&i.IpAddress,
		&i.UserAgent,
	)
	return i, err
}

const deleteSession = `-- name: DeleteSession :exec
DELETE FROM sessions
WHERE id = ?
`

func (q *Queries) DeleteSession(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, id)
	return err
}

const deleteSessionsByAccountID = `-- name: DeleteSessionsByAccountID :exec
DELETE FROM sessions
WHERE account_id = ?
`

func (q *Queries) DeleteSessionsByAccountID(ctx context.Context, accountID string) error {
	_, err := q.db.ExecContext(ctx, deleteSessionsByAccountID, accountID)
	return err
}

const deleteExpiredSessions = `-- name: DeleteExpiredSessions :execrows
DELETE FROM sessions
WHERE expires_at <= ?
`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
