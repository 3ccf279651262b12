// Package relstore is the relational, authoritative half of the hybrid
// store (C3). It owns the canonical copy of every topic, memory item, and
// summary, and is the side every write must land on successfully before the
// vector side is even attempted.
package relstore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrNotFound is returned by the Get-by-primary-key methods when no row
// matches. GetSummary, which looks a row up by its business key rather than
// its identity, returns (nil, nil) instead — callers use it as an existence
// check before deciding whether to insert or update.
var ErrNotFound = errors.New("relstore: not found")

// Store manages all topic, memory, and summary persistence.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewStore creates and returns a Store over an already-opened database
// handle. Callers are responsible for opening db with foreign key
// enforcement turned on in the DSN (e.g. "?_foreign_keys=on" for
// mattn/go-sqlite3) — PRAGMA statements issued on one pooled connection do
// not apply to the others database/sql hands out.
func NewStore(db *sql.DB, logger zerolog.Logger) (*Store, error) {
	logger = logger.With().Str("component", "relstore").Logger()
	logger.Info().Msg("initializing relational store")
	return &Store{db: db, logger: logger}, nil
}

// Init applies pending schema migrations. When reset is true, the known
// tables (and golang-migrate's own bookkeeping table) are dropped first —
// used by tests that want a clean in-memory database per run.
func (s *Store) Init(ctx context.Context, reset bool) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if reset {
		for _, table := range []string{"summaries", "memory_items", "topics", "schema_migrations"} {
			if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return fmt.Errorf("drop table %s: %w", table, err)
			}
		}
	}
	return s.migrate()
}

func (s *Store) migrate() error {
	sourceDriver, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	dbDriver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite3 driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", dbDriver)
	if err != nil {
		return fmt.Errorf("initialize migrations: %w", err)
	}
	s.logger.Info().Msg("running database migrations")
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	s.logger.Info().Msg("database migrations applied")
	return nil
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(b), nil
}

func unmarshalTags(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return tags, nil
}

// UpsertTopic ensures a topic row exists. It does not touch item_count —
// that is owned entirely by addToTopicTx, which runs
// inside the same transaction as the memory write that changes it.
func (s *Store) UpsertTopic(ctx context.Context, name string, tags []string) error {
	s.logger.Debug().Str("method", "UpsertTopic").Str("name", name).Msg("called")
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.ensureTopicTx(ctx, tx, name, tags); err != nil {
		return err
	}
	return tx.Commit()
}

// ensureTopicTx inserts a topic row if one doesn't already exist for name.
// The description is synthesized from tags, matching the document text the
// vector store gives its topic collection entries.
func (s *Store) ensureTopicTx(ctx context.Context, tx *sql.Tx, name string, tags []string) error {
	description := name
	if len(tags) > 0 {
		description = strings.Join(tags, ", ")
	}
	now := nowRFC3339()
	query := StatementBuilder().
		Insert("topics").
		Columns("name", "description", "item_count", "created_at", "updated_at").
		Values(name, description, 0, now, now).
		Suffix("ON CONFLICT(name) DO NOTHING")
	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build topic upsert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryStr, args...); err != nil {
		return fmt.Errorf("upsert topic %q: %w", name, err)
	}
	return nil
}

// addToTopicTx bumps a topic's item_count by delta (which may be negative),
// floored at 0, and deletes the topic row outright if the count reaches 0.
// It assumes the topic row already exists.
func (s *Store) addToTopicTx(ctx context.Context, tx *sql.Tx, name string, delta int) error {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT item_count FROM topics WHERE name = ?", name).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("topic %q not found: %w", name, ErrNotFound)
		}
		return fmt.Errorf("read topic item_count: %w", err)
	}
	count += delta
	if count < 0 {
		count = 0
	}
	if count == 0 && delta < 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM topics WHERE name = ?", name); err != nil {
			return fmt.Errorf("delete emptied topic %q: %w", name, err)
		}
		return nil
	}
	if _, err := tx.ExecContext(ctx, "UPDATE topics SET item_count = ?, updated_at = ? WHERE name = ?",
		count, nowRFC3339(), name); err != nil {
		return fmt.Errorf("update topic item_count: %w", err)
	}
	return nil
}

// InsertMemory writes a new memory item under topic, creating the topic row
// if it doesn't exist and bumping its item_count.
func (s *Store) InsertMemory(ctx context.Context, id, content, topic string, tags []string) (*MemoryItem, error) {
	s.logger.Debug().
		Str("method", "InsertMemory").
		Str("id", id).
		Str("topic", topic).
		Strs("tags", tags).
		Msg("called")

	tagsJSON, err := marshalTags(tags)
	if err != nil {
		return nil, err
	}
	now := nowRFC3339()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.ensureTopicTx(ctx, tx, topic, tags); err != nil {
		return nil, err
	}
	if err := s.addToTopicTx(ctx, tx, topic, 1); err != nil {
		return nil, err
	}

	query := StatementBuilder().
		Insert("memory_items").
		Columns("id", "content", "topic_name", "tags", "created_at", "updated_at", "version").
		Values(id, content, topic, tagsJSON, now, now, 1)
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, queryStr, args...); err != nil {
		return nil, fmt.Errorf("insert memory_item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert memory: %w", err)
	}

	s.logger.Info().Str("method", "InsertMemory").Str("id", id).Str("topic", topic).Msg("memory stored")

	createdAt, _ := time.Parse(time.RFC3339, now)
	return &MemoryItem{
		ID:        id,
		Content:   content,
		Topic:     topic,
		Tags:      append([]string(nil), tags...),
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
		Version:   1,
	}, nil
}

func scanMemoryItem(scan func(dest ...any) error) (*MemoryItem, error) {
	var item MemoryItem
	var tagsRaw, createdAt, updatedAt string
	if err := scan(&item.ID, &item.Content, &item.Topic, &tagsRaw, &createdAt, &updatedAt, &item.Version); err != nil {
		return nil, err
	}
	tags, err := unmarshalTags(tagsRaw)
	if err != nil {
		return nil, err
	}
	item.Tags = tags
	if item.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &item, nil
}

// GetMemory fetches a single memory item by id.
func (s *Store) GetMemory(ctx context.Context, id string) (*MemoryItem, error) {
	s.logger.Debug().Str("method", "GetMemory").Str("id", id).Msg("called")
	query := StatementBuilder().Select(memoryItemColumns()...).From("memory_items").Where(sq.Eq{"id": id})
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}
	row := s.db.QueryRowContext(ctx, queryStr, args...)
	item, err := scanMemoryItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan memory_item: %w", err)
	}
	return item, nil
}

// UpdateMemory applies a partial update to a memory item. content and topic
// are optional (nil means unchanged); tags is nil for unchanged and any
// non-nil slice (including empty) replaces the tag set. version is bumped
// unconditionally, matching the "every update is a new version" rule.
func (s *Store) UpdateMemory(ctx context.Context, id string, content, topic *string, tags []string) (*MemoryItem, error) {
	s.logger.Debug().
		Str("method", "UpdateMemory").
		Str("id", id).
		Interface("content_set", content != nil).
		Interface("topic_set", topic != nil).
		Interface("tags_set", tags != nil).
		Msg("called")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.getMemoryTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	newContent := current.Content
	if content != nil {
		newContent = *content
	}
	newTopic := current.Topic
	if topic != nil {
		newTopic = *topic
	}
	newTags := current.Tags
	if tags != nil {
		newTags = tags
	}

	if newTopic != current.Topic {
		if err := s.addToTopicTx(ctx, tx, current.Topic, -1); err != nil {
			return nil, err
		}
		if err := s.ensureTopicTx(ctx, tx, newTopic, newTags); err != nil {
			return nil, err
		}
		if err := s.addToTopicTx(ctx, tx, newTopic, 1); err != nil {
			return nil, err
		}
	}

	tagsJSON, err := marshalTags(newTags)
	if err != nil {
		return nil, err
	}
	now := nowRFC3339()
	newVersion := current.Version + 1

	if _, err := tx.ExecContext(ctx,
		"UPDATE memory_items SET content = ?, topic_name = ?, tags = ?, updated_at = ?, version = ? WHERE id = ?",
		newContent, newTopic, tagsJSON, now, newVersion, id,
	); err != nil {
		return nil, fmt.Errorf("update memory_item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update memory: %w", err)
	}

	s.logger.Info().Str("method", "UpdateMemory").Str("id", id).Int("version", newVersion).Msg("memory updated")

	updatedAt, _ := time.Parse(time.RFC3339, now)
	return &MemoryItem{
		ID:        id,
		Content:   newContent,
		Topic:     newTopic,
		Tags:      newTags,
		CreatedAt: current.CreatedAt,
		UpdatedAt: updatedAt,
		Version:   newVersion,
	}, nil
}

func (s *Store) getMemoryTx(ctx context.Context, tx *sql.Tx, id string) (*MemoryItem, error) {
	query := StatementBuilder().Select(memoryItemColumns()...).From("memory_items").Where(sq.Eq{"id": id})
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}
	row := tx.QueryRowContext(ctx, queryStr, args...)
	item, err := scanMemoryItem(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan memory_item: %w", err)
	}
	return item, nil
}

// DeleteMemory removes a memory item and, via the ON DELETE CASCADE
// foreign key, every summary row attached to it. The caller (the engine)
// lists the memory's summary ids before calling this, since the cascade
// removes the only rows that name them. The memory's topic
// name is returned so the caller can decide whether to follow up with
// DeleteTopicIfEmpty.
func (s *Store) DeleteMemory(ctx context.Context, id string) (string, error) {
	s.logger.Debug().Str("method", "DeleteMemory").Str("id", id).Msg("called")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.getMemoryTx(ctx, tx, id)
	if err != nil {
		return "", err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM memory_items WHERE id = ?", id); err != nil {
		return "", fmt.Errorf("delete memory_item: %w", err)
	}
	if err := s.addToTopicTx(ctx, tx, current.Topic, -1); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit delete memory: %w", err)
	}

	s.logger.Info().Str("method", "DeleteMemory").Str("id", id).Str("topic", current.Topic).Msg("memory deleted")
	return current.Topic, nil
}

// ListTopics returns every topic, most recently updated first.
func (s *Store) ListTopics(ctx context.Context) ([]Topic, error) {
	s.logger.Debug().Str("method", "ListTopics").Msg("called")
	query := StatementBuilder().Select(topicColumns()...).From("topics").OrderBy("updated_at DESC")
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		var t Topic
		var createdAt, updatedAt string
		if err := rows.Scan(&t.Name, &t.Description, &t.ItemCount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if t.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return topics, nil
}

// ListAllMemoryIDs returns every memory item id, oldest first. Used by
// cmd/memreconcile to walk the relational side's full id space rather than
// any query-bounded subset.
func (s *Store) ListAllMemoryIDs(ctx context.Context) ([]string, error) {
	s.logger.Debug().Str("method", "ListAllMemoryIDs").Msg("called")
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM memory_items ORDER BY created_at ASC")
	if err != nil {
		return nil, fmt.Errorf("list memory ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan memory id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory ids: %w", err)
	}
	return ids, nil
}

// DeleteTopicIfEmpty deletes a topic row if, and only if, it currently has
// zero items. Most topics never need this — addToTopicTx already deletes a
// topic the moment its last memory is removed — but it covers topics
// created via UpsertTopic that never received a memory, and gives
// reconciliation a safe idempotent cleanup call.
func (s *Store) DeleteTopicIfEmpty(ctx context.Context, name string) (bool, error) {
	s.logger.Debug().Str("method", "DeleteTopicIfEmpty").Str("name", name).Msg("called")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT item_count FROM topics WHERE name = ?", name).Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("read topic item_count: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM topics WHERE name = ?", name); err != nil {
		return false, fmt.Errorf("delete empty topic %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit delete topic: %w", err)
	}
	s.logger.Info().Str("method", "DeleteTopicIfEmpty").Str("name", name).Msg("empty topic deleted")
	return true, nil
}

// StoreSummary inserts a brand-new summary row. Callers must check
// GetSummary first — this does not upsert, and will surface the unique
// constraint error on (memory_id, summary_type) if one already exists.
func (s *Store) StoreSummary(ctx context.Context, id, memoryID, summaryType, text string) error {
	s.logger.Debug().
		Str("method", "StoreSummary").
		Str("id", id).
		Str("memory_id", memoryID).
		Str("summary_type", summaryType).
		Msg("called")
	now := nowRFC3339()
	query := StatementBuilder().
		Insert("summaries").
		Columns("id", "memory_id", "summary_type", "summary_text", "created_at", "updated_at").
		Values(id, memoryID, summaryType, text, now, now)
	queryStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, queryStr, args...); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}
	s.logger.Info().Str("method", "StoreSummary").Str("id", id).Msg("summary stored")
	return nil
}

// UpdateSummary replaces an existing summary's text in place, preserving
// its id — the rule that re-summarizing must never duplicate a summary row.
func (s *Store) UpdateSummary(ctx context.Context, id, text string) error {
	s.logger.Debug().Str("method", "UpdateSummary").Str("id", id).Msg("called")
	res, err := s.db.ExecContext(ctx, "UPDATE summaries SET summary_text = ?, updated_at = ? WHERE id = ?",
		text, nowRFC3339(), id)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSummary(scan func(dest ...any) error) (*Summary, error) {
	var sum Summary
	var createdAt, updatedAt string
	if err := scan(&sum.ID, &sum.MemoryID, &sum.SummaryType, &sum.SummaryText, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if sum.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if sum.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &sum, nil
}

// GetSummary looks up a summary by its business key. Unlike GetSummaryByID,
// absence is not an error — it returns (nil, nil) so callers can use it as
// an existence check before deciding whether to StoreSummary or
// UpdateSummary.
func (s *Store) GetSummary(ctx context.Context, memoryID, summaryType string) (*Summary, error) {
	s.logger.Debug().Str("method", "GetSummary").Str("memory_id", memoryID).Str("summary_type", summaryType).Msg("called")
	query := StatementBuilder().Select(summaryColumns()...).From("summaries").
		Where(sq.Eq{"memory_id": memoryID, "summary_type": summaryType})
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}
	row := s.db.QueryRowContext(ctx, queryStr, args...)
	sum, err := scanSummary(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan summary: %w", err)
	}
	return sum, nil
}

// GetSummaryByID fetches a summary by its primary key.
func (s *Store) GetSummaryByID(ctx context.Context, id string) (*Summary, error) {
	s.logger.Debug().Str("method", "GetSummaryByID").Str("id", id).Msg("called")
	query := StatementBuilder().Select(summaryColumns()...).From("summaries").Where(sq.Eq{"id": id})
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}
	row := s.db.QueryRowContext(ctx, queryStr, args...)
	sum, err := scanSummary(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan summary: %w", err)
	}
	return sum, nil
}

// ListSummaryIDs returns every summary attached to a memory. The engine
// calls this before deleting a memory, so it can delete the matching vector
// embeddings before the relational cascade removes the rows.
func (s *Store) ListSummaryIDs(ctx context.Context, memoryID string) ([]Summary, error) {
	s.logger.Debug().Str("method", "ListSummaryIDs").Str("memory_id", memoryID).Msg("called")
	query := StatementBuilder().Select(summaryColumns()...).From("summaries").Where(sq.Eq{"memory_id": memoryID})
	queryStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, queryStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		sum, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, *sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return summaries, nil
}

// Status rolls up counts for the engine's status view: total memories,
// total topics, the five topics with the most items, and the most recent
// memory timestamp.
func (s *Store) Status(ctx context.Context) (StoreStatus, error) {
	s.logger.Debug().Str("method", "Status").Msg("called")
	var status StoreStatus

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memory_items").Scan(&status.TotalMemories); err != nil {
		return StoreStatus{}, fmt.Errorf("count memories: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM topics").Scan(&status.TotalTopics); err != nil {
		return StoreStatus{}, fmt.Errorf("count topics: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT name, item_count FROM topics ORDER BY item_count DESC, name ASC LIMIT 5")
	if err != nil {
		return StoreStatus{}, fmt.Errorf("top topics: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ts TopicStatus
		if err := rows.Scan(&ts.Name, &ts.ItemCount); err != nil {
			return StoreStatus{}, fmt.Errorf("scan top topic: %w", err)
		}
		status.TopTopics = append(status.TopTopics, ts)
	}
	if err := rows.Err(); err != nil {
		return StoreStatus{}, fmt.Errorf("iterate top topics: %w", err)
	}

	var latest sql.NullString
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(created_at) FROM memory_items").Scan(&latest); err != nil {
		return StoreStatus{}, fmt.Errorf("latest memory: %w", err)
	}
	if latest.Valid {
		t, err := time.Parse(time.RFC3339, latest.String)
		if err != nil {
			return StoreStatus{}, fmt.Errorf("parse latest created_at: %w", err)
		}
		status.LatestItemAt = &t
	}

	return status, nil
}
