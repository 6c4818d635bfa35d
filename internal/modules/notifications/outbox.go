package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Outbox row statuses
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Entry is a pending outbox row
type Entry struct {
	ID       string
	Attempts int
	Message  Message
}

// Outbox persists messages until a sink accepts them
type Outbox struct {
	ledgerDB *sql.DB
	now      func() time.Time
	log      zerolog.Logger
}

// NewOutbox creates an outbox backed by the notification_outbox table
func NewOutbox(ledgerDB *sql.DB, log zerolog.Logger) *Outbox {
	return &Outbox{
		ledgerDB: ledgerDB,
		now:      time.Now,
		log:      log.With().Str("repo", "notification_outbox").Logger(),
	}
}

// Append stores msg as pending. The message ID doubles as the row ID.
func (o *Outbox) Append(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	payload, err := msgpack.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	now := o.now().Unix()
	_, err = o.ledgerDB.ExecContext(ctx, `
		INSERT INTO notification_outbox (id, kind, user_id, payload, status, attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, ?, ?)`,
		msg.ID, msg.Kind, msg.UserID, payload, StatusPending, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

// Pending returns up to limit pending rows, fewest attempts first
func (o *Outbox) Pending(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := o.ledgerDB.QueryContext(ctx, `
		SELECT id, attempts, payload FROM notification_outbox
		WHERE status = ?
		ORDER BY attempts ASC, created_at ASC
		LIMIT ?`, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var payload []byte
		if err := rows.Scan(&e.ID, &e.Attempts, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan outbox row: %w", err)
		}
		if err := msgpack.Unmarshal(payload, &e.Message); err != nil {
			// A row that cannot be decoded will never deliver
			o.log.Error().Err(err).Str("id", e.ID).Msg("Undecodable outbox payload, marking failed")
			if markErr := o.markUndecodable(ctx, e.ID, err); markErr != nil {
				return nil, markErr
			}
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkSent records a successful delivery
func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	now := o.now().Unix()
	_, err := o.ledgerDB.ExecContext(ctx, `
		UPDATE notification_outbox
		SET status = ?, attempts = attempts + 1, last_error = NULL, updated_at = ?, sent_at = ?
		WHERE id = ?`, StatusSent, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s sent: %w", id, err)
	}
	return nil
}

// MarkAttemptFailed records a failed delivery. The row becomes failed once
// attempts reach maxAttempts; it returns true in that case.
func (o *Outbox) MarkAttemptFailed(ctx context.Context, id string, deliveryErr error, maxAttempts int) (bool, error) {
	var status string
	err := o.ledgerDB.QueryRowContext(ctx, `
		UPDATE notification_outbox
		SET attempts = attempts + 1,
		    last_error = ?,
		    status = CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END,
		    updated_at = ?
		WHERE id = ?
		RETURNING status`,
		deliveryErr.Error(), maxAttempts, StatusFailed, StatusPending, o.now().Unix(), id,
	).Scan(&status)
	if err != nil {
		return false, fmt.Errorf("failed to record delivery failure for %s: %w", id, err)
	}
	return status == StatusFailed, nil
}

// CountPending returns the number of undelivered rows
func (o *Outbox) CountPending(ctx context.Context) (int, error) {
	var n int
	if err := o.ledgerDB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notification_outbox WHERE status = ?`, StatusPending,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count pending notifications: %w", err)
	}
	return n, nil
}

func (o *Outbox) markUndecodable(ctx context.Context, id string, decodeErr error) error {
	_, err := o.ledgerDB.ExecContext(ctx, `
		UPDATE notification_outbox SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, decodeErr.Error(), o.now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s failed: %w", id, err)
	}
	return nil
}
