package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kiwihelp/visa-assistant/internal/core/domain"
)

// DialogRepository persists answered dialogs and the feedback users leave on
// them. Rows are write-once; nothing in the serving path reads them back.
type DialogRepository struct {
	db *sql.DB
}

func NewDialogRepository(db *sql.DB) *DialogRepository {
	return &DialogRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DialogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS dialogs (
	id TEXT PRIMARY KEY,
	user_id BIGINT NOT NULL,
	query TEXT NOT NULL,
	answer TEXT NOT NULL,
	prompt_tokens INTEGER NOT NULL DEFAULT 0,
	completion_tokens INTEGER NOT NULL DEFAULT 0,
	overhead_tokens INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS feedback (
	id BIGSERIAL PRIMARY KEY,
	dialog_id TEXT NOT NULL REFERENCES dialogs(id),
	is_positive BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_dialogs_user_id ON dialogs(user_id);
CREATE INDEX IF NOT EXISTS idx_dialogs_created_at ON dialogs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_feedback_dialog_id ON feedback(dialog_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveDialog stores one answered dialog and returns its generated id, which
// callers hand out as the feedback reference.
func (r *DialogRepository) SaveDialog(ctx context.Context, rec domain.DialogRecord) (string, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO dialogs (
	id, user_id, query, answer, prompt_tokens, completion_tokens, overhead_tokens, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		id, rec.UserID, rec.Query, rec.Answer,
		rec.PromptTokens, rec.CompletionTokens, rec.OverheadTokens, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert dialog: %w", err)
	}
	return id, nil
}

func (r *DialogRepository) SaveFeedback(ctx context.Context, fb domain.Feedback) error {
	if fb.DialogID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save feedback", errors.New("dialog id is empty"))
	}
	createdAt := fb.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO feedback (dialog_id, is_positive, created_at) VALUES ($1,$2,$3)
`, fb.DialogID, fb.IsPositive, createdAt)
	if err != nil {
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}
