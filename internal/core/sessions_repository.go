package core

import (
	"time"

	"github.com/jmoiron/sqlx"
)

// SessionsDBStorer persists the join/leave history of voice sessions. The
// in-memory presence store stays the authority for liveness; these rows are
// an audit trail and survive restarts.
type SessionsDBStorer interface {
	SaveJoin(session *VoiceSession) error
	CloseActive(userID UserID, leftAt time.Time) error
	ActiveByChannel(channelID ChannelID) ([]*SessionRecord, error)
}

// SessionRecord is a persisted voice session row.
type SessionRecord struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	ChannelID string     `db:"channel_id"`
	JoinedAt  time.Time  `db:"joined_at"`
	LeftAt    *time.Time `db:"left_at"`
	IsActive  bool       `db:"is_active"`
}

type SessionsRepository struct {
	db *sqlx.DB
}

func NewSessionsRepository(db *sqlx.DB) SessionsDBStorer {
	return &SessionsRepository{db: db}
}

// SaveJoin closes any still-open row for the user and inserts the new one
// in a single transaction. Mirrors the single-active-session invariant.
func (r *SessionsRepository) SaveJoin(session *VoiceSession) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE voice_sessions SET is_active = false, left_at = NOW() WHERE user_id = $1 AND is_active`,
		string(session.UserID),
	)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO voice_sessions (id, user_id, channel_id, joined_at, is_active)
		VALUES ($1, $2, $3, $4, true)`,
		session.ID,
		string(session.UserID),
		string(session.ChannelID),
		session.JoinedAt,
	)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SessionsRepository) CloseActive(userID UserID, leftAt time.Time) error {
	_, err := r.db.Exec(
		`UPDATE voice_sessions SET is_active = false, left_at = $1 WHERE user_id = $2 AND is_active`,
		leftAt,
		string(userID),
	)
	return err
}

func (r *SessionsRepository) ActiveByChannel(channelID ChannelID) ([]*SessionRecord, error) {
	records := []*SessionRecord{}

	err := r.db.Select(&records,
		`SELECT id, user_id, channel_id, joined_at, left_at, is_active
		FROM voice_sessions
		WHERE channel_id = $1 AND is_active
		ORDER BY joined_at ASC`,
		string(channelID),
	)
	if err != nil {
		return nil, err
	}

	return records, nil
}
