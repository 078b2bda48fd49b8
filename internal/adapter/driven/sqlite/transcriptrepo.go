package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/echopad/echopad/internal/domain/model"
	"github.com/echopad/echopad/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TranscriptStore = (*TranscriptRepo)(nil)

// TranscriptRepo is the SQLite implementation of the TranscriptStore port.
// Words are serialized as a JSON array in the TEXT column, which preserves
// nullable start/end offsets across the round trip.
type TranscriptRepo struct {
	db *DB
}

// NewTranscriptRepo creates a new TranscriptRepo backed by the given DB.
func NewTranscriptRepo(db *DB) *TranscriptRepo {
	return &TranscriptRepo{db: db}
}

// Insert stores a new transcript record. The id must be fresh; a duplicate
// id fails on the primary key rather than overwriting an existing record.
func (r *TranscriptRepo) Insert(ctx context.Context, rec model.TranscriptRecord) error {
	const query = `
		INSERT INTO transcripts (
			id, filename, status, transcript, words, error_message, quota_exceeded,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	wordsJSON, err := marshalWords(rec.Words)
	if err != nil {
		return err
	}

	quota := 0
	if rec.QuotaExceeded {
		quota = 1
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		rec.ID, rec.Filename, string(rec.Status), rec.Transcript, wordsJSON,
		rec.ErrorMessage, quota, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert transcript %s: %w", rec.ID, err)
	}

	return nil
}

// GetByID retrieves a single transcript record. Returns ErrRecordNotFound
// when no record has that id.
func (r *TranscriptRepo) GetByID(ctx context.Context, id string) (*model.TranscriptRecord, error) {
	const query = `
		SELECT id, filename, status, transcript, words, error_message, quota_exceeded,
		       created_at, updated_at
		FROM transcripts
		WHERE id = ?
	`

	rec, err := scanTranscript(r.db.Reader.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, driven.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", id, err)
	}

	return rec, nil
}

// ListAll returns all transcript records, most recent first.
func (r *TranscriptRepo) ListAll(ctx context.Context) ([]model.TranscriptRecord, error) {
	const query = `
		SELECT id, filename, status, transcript, words, error_message, quota_exceeded,
		       created_at, updated_at
		FROM transcripts
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var recs []model.TranscriptRecord
	for rows.Next() {
		rec, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		recs = append(recs, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}

	return recs, nil
}

// MarkSuccess transitions a pending record to success, storing the transcript
// text and word list. The status predicate in the WHERE clause guarantees the
// transition happens at most once even under concurrent completions.
func (r *TranscriptRepo) MarkSuccess(ctx context.Context, id, transcript string, words []model.WordSpan) error {
	const query = `
		UPDATE transcripts
		SET status = 'success', transcript = ?, words = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`

	wordsJSON, err := marshalWords(words)
	if err != nil {
		return err
	}

	res, err := r.db.Writer.ExecContext(ctx, query, transcript, wordsJSON, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark transcript %s success: %w", id, err)
	}

	return checkTransition(ctx, r, res, id)
}

// MarkError transitions a pending record to error with the given message.
// quotaExceeded flags the server's insufficient-balance condition so callers
// can distinguish it from generic failures.
func (r *TranscriptRepo) MarkError(ctx context.Context, id, message string, quotaExceeded bool) error {
	const query = `
		UPDATE transcripts
		SET status = 'error', error_message = ?, quota_exceeded = ?, updated_at = ?
		WHERE id = ? AND status = 'pending'
	`

	quota := 0
	if quotaExceeded {
		quota = 1
	}

	res, err := r.db.Writer.ExecContext(ctx, query, message, quota, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("mark transcript %s error: %w", id, err)
	}

	return checkTransition(ctx, r, res, id)
}

// UpdateFilename renames a record. This is an explicit user edit and is
// allowed in any state.
func (r *TranscriptRepo) UpdateFilename(ctx context.Context, id, filename string) error {
	return r.updateField(ctx, id, "filename", filename)
}

// UpdateTranscript replaces a record's transcript text. This is an explicit
// user edit and is allowed in any state.
func (r *TranscriptRepo) UpdateTranscript(ctx context.Context, id, transcript string) error {
	return r.updateField(ctx, id, "transcript", transcript)
}

// Delete removes a transcript record by id. Returns ErrRecordNotFound when
// no record has that id.
func (r *TranscriptRepo) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM transcripts WHERE id = ?`

	res, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete transcript %s: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return driven.ErrRecordNotFound
	}

	return nil
}

func (r *TranscriptRepo) updateField(ctx context.Context, id, column, value string) error {
	query := fmt.Sprintf(`UPDATE transcripts SET %s = ?, updated_at = ? WHERE id = ?`, column)

	res, err := r.db.Writer.ExecContext(ctx, query, value, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update transcript %s %s: %w", id, column, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return driven.ErrRecordNotFound
	}

	return nil
}

// checkTransition distinguishes "record missing" from "record already
// terminal" when a guarded status update touched zero rows.
func checkTransition(ctx context.Context, r *TranscriptRepo, res sql.Result, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return driven.ErrAlreadyTerminal
}

func marshalWords(words []model.WordSpan) (string, error) {
	if words == nil {
		words = []model.WordSpan{}
	}
	data, err := json.Marshal(words)
	if err != nil {
		return "", fmt.Errorf("marshal words: %w", err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func scanTranscript(s scanner) (*model.TranscriptRecord, error) {
	var rec model.TranscriptRecord
	var status, wordsJSON, createdAt, updatedAt string
	var quota int

	err := s.Scan(
		&rec.ID, &rec.Filename, &status, &rec.Transcript, &wordsJSON,
		&rec.ErrorMessage, &quota, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Status = model.TranscriptStatus(status)
	rec.QuotaExceeded = quota != 0

	if err := json.Unmarshal([]byte(wordsJSON), &rec.Words); err != nil {
		return nil, fmt.Errorf("unmarshal words: %w", err)
	}

	rec.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	rec.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &rec, nil
}
