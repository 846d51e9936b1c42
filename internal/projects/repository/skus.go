package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agency_os_backend/internal/projects/domain"
	"agency_os_backend/platform/apperr"
	"agency_os_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Keyword sources.
const (
	SourceManual = "manual"
	SourcePool   = "pool"
)

type SKU struct {
	ID          uuid.UUID
	ProjectID   uuid.UUID
	SKUCode     string
	ProductName string
	Attributes  map[string]string
	Notes       *string
	Position    int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CreateSKUParams struct {
	ProjectID   uuid.UUID
	SKUCode     string
	ProductName string
	Attributes  map[string]string
	Notes       *string
}

type UpdateSKUParams struct {
	ID          uuid.UUID
	SKUCode     *string
	ProductName *string
	Attributes  map[string]string
	Notes       *string
	Position    *int
}

type Keyword struct {
	ID      uuid.UUID
	SKUID   uuid.UUID
	Keyword string
	Source  string
}

type Question struct {
	ID       uuid.UUID
	SKUID    uuid.UUID
	Question string
	Answer   *string
}

type Topic struct {
	ID          uuid.UUID
	SKUID       uuid.UUID
	Title       string
	Description *string
	Selected    bool
	Position    int
}

type TopicDraft struct {
	Title       string
	Description *string
}

type UpdateTopicParams struct {
	ID          uuid.UUID
	Title       *string
	Description *string
	Selected    *bool
}

type Copy struct {
	SKUID       uuid.UUID
	Title       string
	Bullets     []string
	Description string
	Edited      bool
	Model       *string
	UpdatedAt   time.Time
}

type UpdateCopyParams struct {
	SKUID       uuid.UUID
	Title       *string
	Bullets     []string
	Description *string
}

// StageLock pins a write to the project status that allowed it. The write
// share-locks the project row first: a concurrent stage change waits for it,
// and a write that lands after one fails with a conflict.
type StageLock struct {
	ProjectID uuid.UUID
	Status    domain.Status
}

// StageChanged is returned when the project left the status a write needs.
func StageChanged(want, got domain.Status) *apperr.Error {
	return apperr.Conflict(fmt.Sprintf("project moved from %s to %s, reload and try again", want, got))
}

func lockStage(ctx context.Context, tx pgx.Tx, lock StageLock) error {
	var status domain.Status
	err := tx.QueryRow(ctx, `SELECT status FROM projects WHERE id = $1 FOR SHARE`, lock.ProjectID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound(msgProjectNotFound)
		}
		return fmt.Errorf("lock project stage: %w", err)
	}
	if status != lock.Status {
		return StageChanged(lock.Status, status)
	}
	return nil
}

// SKURepository covers SKUs and everything hanging off them. Writes that can
// change what a stage guard sees take a StageLock.
type SKURepository interface {
	ListSKUs(ctx context.Context, projectID uuid.UUID) ([]SKU, error)
	GetSKU(ctx context.Context, id uuid.UUID) (SKU, error)
	CreateSKU(ctx context.Context, lock StageLock, params CreateSKUParams) (SKU, error)
	UpdateSKU(ctx context.Context, params UpdateSKUParams) (SKU, error)
	DeleteSKU(ctx context.Context, lock StageLock, id uuid.UUID) error

	ListKeywords(ctx context.Context, skuID uuid.UUID) ([]Keyword, error)
	AddKeywords(ctx context.Context, skuID uuid.UUID, keywords []string, source string) (int, error)
	DeleteKeyword(ctx context.Context, lock StageLock, skuID, keywordID uuid.UUID) error

	ListQuestions(ctx context.Context, skuID uuid.UUID) ([]Question, error)
	CreateQuestion(ctx context.Context, skuID uuid.UUID, question string, answer *string) (Question, error)
	UpdateQuestion(ctx context.Context, skuID, id uuid.UUID, question string, answer *string) (Question, error)
	DeleteQuestion(ctx context.Context, skuID, id uuid.UUID) error

	ListTopics(ctx context.Context, skuID uuid.UUID) ([]Topic, error)
	GetTopic(ctx context.Context, id uuid.UUID) (Topic, error)
	ReplaceTopics(ctx context.Context, lock StageLock, skuID uuid.UUID, drafts []TopicDraft) error
	UpdateTopic(ctx context.Context, lock StageLock, params UpdateTopicParams) (Topic, error)

	GetCopy(ctx context.Context, skuID uuid.UUID) (*Copy, error)
	// SaveGeneratedCopy reports false when hand-edited copy was kept.
	SaveGeneratedCopy(ctx context.Context, lock StageLock, c Copy, overwrite bool) (bool, error)
	UpdateCopy(ctx context.Context, params UpdateCopyParams) (Copy, error)
}

const (
	skuColumns      = `id, project_id, sku_code, product_name, attributes, notes, position, created_at, updated_at`
	msgSKUNotFound  = "SKU not found"
	msgSKUDuplicate = "a SKU with this code already exists in the project"
)

func scanSKU(row pgx.Row) (SKU, error) {
	var (
		s     SKU
		attrs []byte
	)
	if err := row.Scan(&s.ID, &s.ProjectID, &s.SKUCode, &s.ProductName, &attrs, &s.Notes, &s.Position, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return SKU{}, err
	}
	s.Attributes = map[string]string{}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &s.Attributes); err != nil {
			return SKU{}, fmt.Errorf("decode sku attributes: %w", err)
		}
	}
	return s, nil
}

func encodeAttributes(attrs map[string]string) ([]byte, error) {
	if attrs == nil {
		return nil, nil
	}
	return json.Marshal(attrs)
}

func (r *Repo) ListSKUs(ctx context.Context, projectID uuid.UUID) ([]SKU, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+skuColumns+` FROM project_skus WHERE project_id = $1 ORDER BY position, sku_code`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list skus: %w", err)
	}
	defer rows.Close()

	out := make([]SKU, 0)
	for rows.Next() {
		s, err := scanSKU(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sku: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) GetSKU(ctx context.Context, id uuid.UUID) (SKU, error) {
	s, err := scanSKU(r.pool.QueryRow(ctx, `SELECT `+skuColumns+` FROM project_skus WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SKU{}, apperr.NotFound(msgSKUNotFound)
		}
		return SKU{}, fmt.Errorf("get sku: %w", err)
	}
	return s, nil
}

func (r *Repo) CreateSKU(ctx context.Context, lock StageLock, params CreateSKUParams) (SKU, error) {
	attrs, err := encodeAttributes(params.Attributes)
	if err != nil {
		return SKU{}, fmt.Errorf("encode sku attributes: %w", err)
	}
	if attrs == nil {
		attrs = []byte(`{}`)
	}
	var s SKU
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockStage(ctx, tx, lock); err != nil {
			return err
		}
		created, err := scanSKU(tx.QueryRow(ctx, `
			INSERT INTO project_skus (project_id, sku_code, product_name, attributes, notes, position)
			VALUES ($1, $2, $3, $4, $5, (SELECT COALESCE(MAX(position) + 1, 0) FROM project_skus WHERE project_id = $1))
			RETURNING `+skuColumns, params.ProjectID, params.SKUCode, params.ProductName, attrs, params.Notes))
		if err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.Conflict(msgSKUDuplicate)
			}
			return fmt.Errorf("create sku: %w", err)
		}
		s = created
		return nil
	})
	if err != nil {
		return SKU{}, err
	}
	return s, nil
}

func (r *Repo) UpdateSKU(ctx context.Context, params UpdateSKUParams) (SKU, error) {
	attrs, err := encodeAttributes(params.Attributes)
	if err != nil {
		return SKU{}, fmt.Errorf("encode sku attributes: %w", err)
	}
	s, err := scanSKU(r.pool.QueryRow(ctx, `
		UPDATE project_skus
		SET sku_code = COALESCE($2, sku_code),
			product_name = COALESCE($3, product_name),
			attributes = COALESCE($4, attributes),
			notes = COALESCE($5, notes),
			position = COALESCE($6, position),
			updated_at = now()
		WHERE id = $1
		RETURNING `+skuColumns, params.ID, params.SKUCode, params.ProductName, attrs, params.Notes, params.Position))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SKU{}, apperr.NotFound(msgSKUNotFound)
		}
		if db.IsUniqueViolation(err) {
			return SKU{}, apperr.Conflict(msgSKUDuplicate)
		}
		return SKU{}, fmt.Errorf("update sku: %w", err)
	}
	return s, nil
}

func (r *Repo) DeleteSKU(ctx context.Context, lock StageLock, id uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockStage(ctx, tx, lock); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM project_skus WHERE id = $1 AND project_id = $2`, id, lock.ProjectID)
		if err != nil {
			return fmt.Errorf("delete sku: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound(msgSKUNotFound)
		}
		return nil
	})
}

func (r *Repo) ListKeywords(ctx context.Context, skuID uuid.UUID) ([]Keyword, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sku_id, keyword, source FROM sku_keywords WHERE sku_id = $1 ORDER BY created_at, keyword`, skuID)
	if err != nil {
		return nil, fmt.Errorf("list sku keywords: %w", err)
	}
	defer rows.Close()

	out := make([]Keyword, 0)
	for rows.Next() {
		var k Keyword
		if err := rows.Scan(&k.ID, &k.SKUID, &k.Keyword, &k.Source); err != nil {
			return nil, fmt.Errorf("scan sku keyword: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// AddKeywords inserts keywords, ignoring ones the SKU already has, and
// returns how many were new.
func (r *Repo) AddKeywords(ctx context.Context, skuID uuid.UUID, keywords []string, source string) (int, error) {
	if len(keywords) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO sku_keywords (sku_id, keyword, source)
		SELECT $1, kw, $3 FROM unnest($2::text[]) AS kw
		ON CONFLICT (sku_id, keyword) DO NOTHING`, skuID, keywords, source)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return 0, apperr.NotFound(msgSKUNotFound)
		}
		return 0, fmt.Errorf("add sku keywords: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *Repo) DeleteKeyword(ctx context.Context, lock StageLock, skuID, keywordID uuid.UUID) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockStage(ctx, tx, lock); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM sku_keywords WHERE id = $1 AND sku_id = $2`, keywordID, skuID)
		if err != nil {
			return fmt.Errorf("delete sku keyword: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("keyword not found")
		}
		return nil
	})
}

func (r *Repo) ListQuestions(ctx context.Context, skuID uuid.UUID) ([]Question, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, sku_id, question, answer FROM sku_questions WHERE sku_id = $1 ORDER BY created_at`, skuID)
	if err != nil {
		return nil, fmt.Errorf("list sku questions: %w", err)
	}
	defer rows.Close()

	out := make([]Question, 0)
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.SKUID, &q.Question, &q.Answer); err != nil {
			return nil, fmt.Errorf("scan sku question: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (r *Repo) CreateQuestion(ctx context.Context, skuID uuid.UUID, question string, answer *string) (Question, error) {
	q := Question{SKUID: skuID}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sku_questions (sku_id, question, answer) VALUES ($1, $2, $3)
		RETURNING id, question, answer`, skuID, question, answer).Scan(&q.ID, &q.Question, &q.Answer)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return Question{}, apperr.NotFound(msgSKUNotFound)
		}
		return Question{}, fmt.Errorf("create sku question: %w", err)
	}
	return q, nil
}

func (r *Repo) UpdateQuestion(ctx context.Context, skuID, id uuid.UUID, question string, answer *string) (Question, error) {
	q := Question{SKUID: skuID}
	err := r.pool.QueryRow(ctx, `
		UPDATE sku_questions SET question = $3, answer = $4, updated_at = now()
		WHERE id = $1 AND sku_id = $2
		RETURNING id, question, answer`, id, skuID, question, answer).Scan(&q.ID, &q.Question, &q.Answer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Question{}, apperr.NotFound("question not found")
		}
		return Question{}, fmt.Errorf("update sku question: %w", err)
	}
	return q, nil
}

func (r *Repo) DeleteQuestion(ctx context.Context, skuID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM sku_questions WHERE id = $1 AND sku_id = $2`, id, skuID)
	if err != nil {
		return fmt.Errorf("delete sku question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("question not found")
	}
	return nil
}

const topicColumns = `id, sku_id, title, description, selected, position`

func scanTopic(row pgx.Row) (Topic, error) {
	var t Topic
	err := row.Scan(&t.ID, &t.SKUID, &t.Title, &t.Description, &t.Selected, &t.Position)
	return t, err
}

func (r *Repo) ListTopics(ctx context.Context, skuID uuid.UUID) ([]Topic, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+topicColumns+` FROM sku_topics WHERE sku_id = $1 ORDER BY position`, skuID)
	if err != nil {
		return nil, fmt.Errorf("list sku topics: %w", err)
	}
	defer rows.Close()

	out := make([]Topic, 0)
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sku topic: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) GetTopic(ctx context.Context, id uuid.UUID) (Topic, error) {
	t, err := scanTopic(r.pool.QueryRow(ctx, `SELECT `+topicColumns+` FROM sku_topics WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Topic{}, apperr.NotFound("topic not found")
		}
		return Topic{}, fmt.Errorf("get sku topic: %w", err)
	}
	return t, nil
}

// ReplaceTopics swaps the generated topics of a SKU in one transaction.
func (r *Repo) ReplaceTopics(ctx context.Context, lock StageLock, skuID uuid.UUID, drafts []TopicDraft) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockStage(ctx, tx, lock); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM sku_topics WHERE sku_id = $1`, skuID); err != nil {
			return fmt.Errorf("clear sku topics: %w", err)
		}
		batch := &pgx.Batch{}
		for i, d := range drafts {
			batch.Queue(`INSERT INTO sku_topics (sku_id, title, description, position) VALUES ($1, $2, $3, $4)`,
				skuID, d.Title, d.Description, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert sku topics: %w", err)
		}
		return nil
	})
}

func (r *Repo) UpdateTopic(ctx context.Context, lock StageLock, params UpdateTopicParams) (Topic, error) {
	var t Topic
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockStage(ctx, tx, lock); err != nil {
			return err
		}
		var err error
		t, err = scanTopic(tx.QueryRow(ctx, `
			UPDATE sku_topics
			SET title = COALESCE($2, title),
				description = COALESCE($3, description),
				selected = COALESCE($4, selected),
				updated_at = now()
			WHERE id = $1
			RETURNING `+topicColumns, params.ID, params.Title, params.Description, params.Selected))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.NotFound("topic not found")
			}
			return fmt.Errorf("update sku topic: %w", err)
		}
		return nil
	})
	if err != nil {
		return Topic{}, err
	}
	return t, nil
}

const copyColumns = `sku_id, title, bullets, description, edited, model, updated_at`

func scanCopy(row pgx.Row) (Copy, error) {
	var c Copy
	err := row.Scan(&c.SKUID, &c.Title, &c.Bullets, &c.Description, &c.Edited, &c.Model, &c.UpdatedAt)
	return c, err
}

func (r *Repo) GetCopy(ctx context.Context, skuID uuid.UUID) (*Copy, error) {
	c, err := scanCopy(r.pool.QueryRow(ctx, `SELECT `+copyColumns+` FROM sku_copy WHERE sku_id = $1`, skuID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sku copy: %w", err)
	}
	return &c, nil
}

// SaveGeneratedCopy upserts generated copy. Without overwrite, a row edited
// by hand since the job read it is left alone.
func (r *Repo) SaveGeneratedCopy(ctx context.Context, lock StageLock, c Copy, overwrite bool) (bool, error) {
	bullets := c.Bullets
	if bullets == nil {
		bullets = []string{}
	}
	var written bool
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockStage(ctx, tx, lock); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO sku_copy (sku_id, title, bullets, description, edited, model)
			VALUES ($1, $2, $3, $4, false, $5)
			ON CONFLICT (sku_id) DO UPDATE
			SET title = EXCLUDED.title,
				bullets = EXCLUDED.bullets,
				description = EXCLUDED.description,
				edited = false,
				model = EXCLUDED.model,
				updated_at = now()
			WHERE $6 OR NOT sku_copy.edited`, c.SKUID, c.Title, bullets, c.Description, c.Model, overwrite)
		if err != nil {
			return fmt.Errorf("save sku copy: %w", err)
		}
		written = tag.RowsAffected() > 0
		return nil
	})
	return written, err
}

func (r *Repo) UpdateCopy(ctx context.Context, params UpdateCopyParams) (Copy, error) {
	c, err := scanCopy(r.pool.QueryRow(ctx, `
		UPDATE sku_copy
		SET title = COALESCE($2, title),
			bullets = COALESCE($3, bullets),
			description = COALESCE($4, description),
			edited = true,
			updated_at = now()
		WHERE sku_id = $1
		RETURNING `+copyColumns, params.SKUID, params.Title, params.Bullets, params.Description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Copy{}, apperr.NotFound("copy has not been generated for this SKU")
		}
		return Copy{}, fmt.Errorf("update sku copy: %w", err)
	}
	return c, nil
}
