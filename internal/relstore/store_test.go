package relstore

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewStore(db, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Init(context.Background(), false); err != nil {
		t.Fatalf("init store: %v", err)
	}
	return store
}

func TestInsertAndGetMemory(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	id := uuid.New().String()
	item, err := store.InsertMemory(ctx, id, "the sky is blue", "science", []string{"color", "sky"})
	if err != nil {
		t.Fatalf("insert memory: %v", err)
	}
	if item.Version != 1 {
		t.Fatalf("expected version 1, got %d", item.Version)
	}

	got, err := store.GetMemory(ctx, id)
	if err != nil {
		t.Fatalf("get memory: %v", err)
	}
	if got.Content != "the sky is blue" || got.Topic != "science" {
		t.Fatalf("unexpected memory: %+v", got)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %v", got.Tags)
	}

	topics, err := store.ListTopics(ctx)
	if err != nil {
		t.Fatalf("list topics: %v", err)
	}
	if len(topics) != 1 || topics[0].ItemCount != 1 {
		t.Fatalf("expected one topic with item_count 1, got %+v", topics)
	}
}

func TestGetMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	if _, err := store.GetMemory(ctx, uuid.New().String()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateMemoryChangesTopicAndBumpsVersion(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	id := uuid.New().String()
	if _, err := store.InsertMemory(ctx, id, "original", "topic-a", []string{"x"}); err != nil {
		t.Fatalf("insert memory: %v", err)
	}

	newContent := "revised"
	newTopic := "topic-b"
	updated, err := store.UpdateMemory(ctx, id, &newContent, &newTopic, []string{"y", "z"})
	if err != nil {
		t.Fatalf("update memory: %v", err)
	}
	if updated.Version != 2 || updated.Content != "revised" || updated.Topic != "topic-b" {
		t.Fatalf("unexpected updated memory: %+v", updated)
	}

	topics, err := store.ListTopics(ctx)
	if err != nil {
		t.Fatalf("list topics: %v", err)
	}
	if len(topics) != 1 || topics[0].Name != "topic-b" {
		t.Fatalf("expected topic-a to be emptied and deleted, got %+v", topics)
	}
}

func TestDeleteMemoryCascadesSummariesAndEmptiesTopic(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	memoryID := uuid.New().String()
	if _, err := store.InsertMemory(ctx, memoryID, "content", "topic-a", nil); err != nil {
		t.Fatalf("insert memory: %v", err)
	}
	summaryID := uuid.New().String()
	if err := store.StoreSummary(ctx, summaryID, memoryID, "abstractive", "short summary"); err != nil {
		t.Fatalf("store summary: %v", err)
	}

	topic, err := store.DeleteMemory(ctx, memoryID)
	if err != nil {
		t.Fatalf("delete memory: %v", err)
	}
	if topic != "topic-a" {
		t.Fatalf("expected topic-a, got %s", topic)
	}

	if _, err := store.GetMemory(ctx, memoryID); err != ErrNotFound {
		t.Fatalf("expected memory to be gone, got %v", err)
	}
	if _, err := store.GetSummaryByID(ctx, summaryID); err != ErrNotFound {
		t.Fatalf("expected summary to cascade-delete, got %v", err)
	}

	topics, err := store.ListTopics(ctx)
	if err != nil {
		t.Fatalf("list topics: %v", err)
	}
	if len(topics) != 0 {
		t.Fatalf("expected emptied topic to be deleted, got %+v", topics)
	}
}

func TestSummaryUpsertInPlace(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	memoryID := uuid.New().String()
	if _, err := store.InsertMemory(ctx, memoryID, "content", "topic-a", nil); err != nil {
		t.Fatalf("insert memory: %v", err)
	}

	existing, err := store.GetSummary(ctx, memoryID, "abstractive")
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if existing != nil {
		t.Fatalf("expected no existing summary, got %+v", existing)
	}

	summaryID := uuid.New().String()
	if err := store.StoreSummary(ctx, summaryID, memoryID, "abstractive", "first draft"); err != nil {
		t.Fatalf("store summary: %v", err)
	}
	if err := store.UpdateSummary(ctx, summaryID, "revised draft"); err != nil {
		t.Fatalf("update summary: %v", err)
	}

	got, err := store.GetSummaryByID(ctx, summaryID)
	if err != nil {
		t.Fatalf("get summary by id: %v", err)
	}
	if got.SummaryText != "revised draft" {
		t.Fatalf("expected revised text, got %q", got.SummaryText)
	}

	ids, err := store.ListSummaryIDs(ctx, memoryID)
	if err != nil {
		t.Fatalf("list summary ids: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected exactly one summary, got %d", len(ids))
	}
}

func TestDeleteTopicIfEmpty(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	if err := store.UpsertTopic(ctx, "empty-topic", nil); err != nil {
		t.Fatalf("upsert topic: %v", err)
	}

	deleted, err := store.DeleteTopicIfEmpty(ctx, "empty-topic")
	if err != nil {
		t.Fatalf("delete topic if empty: %v", err)
	}
	if !deleted {
		t.Fatalf("expected topic to be deleted")
	}

	memoryID := uuid.New().String()
	if _, err := store.InsertMemory(ctx, memoryID, "content", "populated-topic", nil); err != nil {
		t.Fatalf("insert memory: %v", err)
	}
	deleted, err = store.DeleteTopicIfEmpty(ctx, "populated-topic")
	if err != nil {
		t.Fatalf("delete topic if empty: %v", err)
	}
	if deleted {
		t.Fatalf("expected populated topic to survive")
	}
}

func TestStatusRollup(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	for i := 0; i < 3; i++ {
		if _, err := store.InsertMemory(ctx, uuid.New().String(), "content", "topic-a", nil); err != nil {
			t.Fatalf("insert memory: %v", err)
		}
	}
	if _, err := store.InsertMemory(ctx, uuid.New().String(), "content", "topic-b", nil); err != nil {
		t.Fatalf("insert memory: %v", err)
	}

	status, err := store.Status(ctx)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.TotalMemories != 4 {
		t.Fatalf("expected 4 memories, got %d", status.TotalMemories)
	}
	if status.TotalTopics != 2 {
		t.Fatalf("expected 2 topics, got %d", status.TotalTopics)
	}
	if len(status.TopTopics) == 0 || status.TopTopics[0].Name != "topic-a" {
		t.Fatalf("expected topic-a to rank first, got %+v", status.TopTopics)
	}
	if status.LatestItemAt == nil {
		t.Fatalf("expected latest item timestamp to be set")
	}
}
