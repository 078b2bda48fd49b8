package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/echopad/echopad/internal/domain/model"
	"github.com/echopad/echopad/internal/domain/port/driven"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRecord(id, filename string, createdAt time.Time) model.TranscriptRecord {
	return model.TranscriptRecord{
		ID:        id,
		Filename:  filename,
		Status:    model.StatusPending,
		Words:     []model.WordSpan{},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestTranscriptRepo_InsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, makeRecord("rec-1", "meeting.wav", created)))

	got, err := repo.GetByID(ctx, "rec-1")
	require.NoError(t, err)

	assert.Equal(t, "rec-1", got.ID)
	assert.Equal(t, "meeting.wav", got.Filename)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Empty(t, got.Transcript)
	assert.Empty(t, got.Words)
	assert.False(t, got.QuotaExceeded)
	assert.Equal(t, created, got.CreatedAt)
}

func TestTranscriptRepo_Insert_DuplicateID(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	rec := makeRecord("rec-1", "a.wav", time.Now().UTC())
	require.NoError(t, repo.Insert(ctx, rec))
	assert.Error(t, repo.Insert(ctx, rec))
}

func TestTranscriptRepo_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, driven.ErrRecordNotFound)
}

func TestTranscriptRepo_ListAll_MostRecentFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, makeRecord("rec-1", "first.wav", base)))
	require.NoError(t, repo.Insert(ctx, makeRecord("rec-2", "second.wav", base.Add(time.Minute))))
	require.NoError(t, repo.Insert(ctx, makeRecord("rec-3", "third.wav", base.Add(2*time.Minute))))

	recs, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 3)

	assert.Equal(t, "rec-3", recs[0].ID)
	assert.Equal(t, "rec-2", recs[1].ID)
	assert.Equal(t, "rec-1", recs[2].ID)
}

func TestTranscriptRepo_MarkSuccess(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeRecord("rec-1", "a.wav", time.Now().UTC())))

	words := []model.WordSpan{
		{Text: "hello", Start: floatPtr(0), End: floatPtr(0.4)},
		{Text: " world", Start: nil, End: nil},
	}
	require.NoError(t, repo.MarkSuccess(ctx, "rec-1", "hello world", words))

	got, err := repo.GetByID(ctx, "rec-1")
	require.NoError(t, err)

	assert.Equal(t, model.StatusSuccess, got.Status)
	assert.Equal(t, "hello world", got.Transcript)
	require.Len(t, got.Words, 2)
	require.NotNil(t, got.Words[0].Start)
	assert.Equal(t, 0.0, *got.Words[0].Start)
	assert.Equal(t, 0.4, *got.Words[0].End)
	// Unknown timing must survive the round trip as nil, not zero.
	assert.Nil(t, got.Words[1].Start)
	assert.Nil(t, got.Words[1].End)
}

func TestTranscriptRepo_MarkError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeRecord("rec-1", "a.wav", time.Now().UTC())))
	require.NoError(t, repo.MarkError(ctx, "rec-1", "Insufficient balance", true))

	got, err := repo.GetByID(ctx, "rec-1")
	require.NoError(t, err)

	assert.Equal(t, model.StatusError, got.Status)
	assert.Equal(t, "Insufficient balance", got.ErrorMessage)
	assert.True(t, got.QuotaExceeded)
}

func TestTranscriptRepo_TerminalTransitionsAreMonotonic(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, makeRecord("rec-1", "a.wav", time.Now().UTC())))
	require.NoError(t, repo.MarkSuccess(ctx, "rec-1", "done", nil))

	assert.ErrorIs(t, repo.MarkError(ctx, "rec-1", "late failure", false), driven.ErrAlreadyTerminal)
	assert.ErrorIs(t, repo.MarkSuccess(ctx, "rec-1", "again", nil), driven.ErrAlreadyTerminal)

	got, err := repo.GetByID(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, got.Status)
	assert.Equal(t, "done", got.Transcript)
}

func TestTranscriptRepo_MarkSuccess_MissingRecord(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)

	err := repo.MarkSuccess(context.Background(), "missing", "text", nil)
	assert.ErrorIs(t, err, driven.ErrRecordNotFound)
}

func TestTranscriptRepo_UpdateFilenameAndTranscript(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, makeRecord("rec-1", "old.wav", created)))
	require.NoError(t, repo.MarkSuccess(ctx, "rec-1", "original text", nil))

	require.NoError(t, repo.UpdateFilename(ctx, "rec-1", "renamed.wav"))
	require.NoError(t, repo.UpdateTranscript(ctx, "rec-1", "edited text"))

	got, err := repo.GetByID(ctx, "rec-1")
	require.NoError(t, err)

	assert.Equal(t, "renamed.wav", got.Filename)
	assert.Equal(t, "edited text", got.Transcript)
	assert.Equal(t, model.StatusSuccess, got.Status)
	assert.True(t, got.UpdatedAt.After(created))
}

func TestTranscriptRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Insert(ctx, makeRecord("rec-1", "a.wav", now)))
	require.NoError(t, repo.Insert(ctx, makeRecord("rec-2", "b.wav", now.Add(time.Second))))

	require.NoError(t, repo.Delete(ctx, "rec-1"))

	_, err := repo.GetByID(ctx, "rec-1")
	assert.ErrorIs(t, err, driven.ErrRecordNotFound)

	// The other record is untouched.
	got, err := repo.GetByID(ctx, "rec-2")
	require.NoError(t, err)
	assert.Equal(t, "b.wav", got.Filename)

	assert.ErrorIs(t, repo.Delete(ctx, "rec-1"), driven.ErrRecordNotFound)
}

func TestTranscriptRepo_ConcurrentCompletions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTranscriptRepo(db)
	ctx := context.Background()

	const n = 8
	base := time.Now().UTC()
	for i := 0; i < n; i++ {
		require.NoError(t, repo.Insert(ctx, makeRecord(fmt.Sprintf("rec-%d", i), "f.wav", base.Add(time.Duration(i)*time.Millisecond))))
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("rec-%d", i)
			if i%2 == 0 {
				assert.NoError(t, repo.MarkSuccess(ctx, id, "text", nil))
			} else {
				assert.NoError(t, repo.MarkError(ctx, id, "boom", false))
			}
		}(i)
	}
	wg.Wait()

	recs, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, n)
	for _, rec := range recs {
		assert.True(t, rec.Status.IsTerminal(), "record %s still %s", rec.ID, rec.Status)
	}
}
