package engine

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/cortexmem/hme/internal/backup"
	"github.com/cortexmem/hme/internal/config"
	"github.com/cortexmem/hme/internal/embedder"
	"github.com/cortexmem/hme/internal/engine/errs"
	"github.com/cortexmem/hme/internal/relstore"
	"github.com/cortexmem/hme/internal/summarize"
	"github.com/cortexmem/hme/internal/vecstore"

	_ "github.com/mattn/go-sqlite3"
)

// fakeSummarizer deterministically "summarizes" by truncating, so tests can
// assert on exact summary text without depending on a real LLM call.
type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(_ context.Context, text string, _ summarize.Kind, _ summarize.Length, _ string) (string, error) {
	if len(text) > 40 {
		text = text[:40]
	}
	return "summary: " + text, nil
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	rel, err := relstore.NewStore(db, zerolog.Nop())
	if err != nil {
		t.Fatalf("new relstore: %v", err)
	}
	if err := rel.Init(ctx, false); err != nil {
		t.Fatalf("init relstore: %v", err)
	}

	vec, err := vecstore.NewStore(embedder.AsFunc(embedder.NewHashEmbedder()), zerolog.Nop(), "")
	if err != nil {
		t.Fatalf("new vecstore: %v", err)
	}
	if err := vec.Init(ctx, false); err != nil {
		t.Fatalf("init vecstore: %v", err)
	}

	bak := backup.NewManager(t.TempDir(), t.TempDir(), 24, 5, zerolog.Nop())

	cfg := config.Default()
	cfg.EnableAutoBackup = false

	return New(cfg, rel, vec, fakeSummarizer{}, bak, zerolog.Nop())
}

func TestStoreTinyContentUsesContentAsDirectSummary(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	result, err := e.Store(ctx, "short note", "notes", []string{"a"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if result.Summary.SummaryTier != "tiny" {
		t.Fatalf("expected tiny tier, got %q", result.Summary.SummaryTier)
	}
	if result.Summary.SummaryType != "abstractive_medium" {
		t.Fatalf("expected uniform abstractive_medium summary_type regardless of tier, got %q", result.Summary.SummaryType)
	}
	if !result.Summary.Generated || !result.Summary.Stored || !result.Summary.EmbeddingStored {
		t.Fatalf("expected summary to be generated and persisted on both sides: %+v", result.Summary)
	}

	sum, err := e.rel.GetSummaryByID(ctx, result.Summary.SummaryID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if sum.SummaryText != "short note" {
		t.Fatalf("expected tiny-tier summary to equal content, got %q", sum.SummaryText)
	}
	if sum.SummaryType != "abstractive_medium" {
		t.Fatalf("expected stored summary_type to be abstractive_medium, got %q", sum.SummaryType)
	}
}

func TestStoreLargeContentUsesAbstractiveSummaryAndUpdateRegeneratesInPlace(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	large := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 60) // > 2000 chars
	result, err := e.Store(ctx, large, "stories", nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	if result.Summary.SummaryType != "abstractive_medium" {
		t.Fatalf("expected abstractive_medium strategy, got %q", result.Summary.SummaryType)
	}
	firstSummaryID := result.Summary.SummaryID

	newLarge := strings.Repeat("a different story entirely about something else. ", 60)
	updateResult, err := e.Update(ctx, result.MemoryID, &newLarge, nil, nil)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updateResult.SummaryUpdated {
		t.Fatalf("expected summary to be regenerated on content update")
	}

	summaries, err := e.rel.ListSummaryIDs(ctx, result.MemoryID)
	if err != nil {
		t.Fatalf("list summaries: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected exactly one summary row after in-place regeneration, got %d", len(summaries))
	}
	if summaries[0].ID != firstSummaryID {
		t.Fatalf("expected summary regeneration to reuse the original summary id")
	}
	if !strings.Contains(summaries[0].SummaryText, "different story") {
		t.Fatalf("expected regenerated summary to reflect new content, got %q", summaries[0].SummaryText)
	}
}

func TestDeleteOrderingRemovesMemoryAndSummaryFromBothStores(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	result, err := e.Store(ctx, "delete me please", "scratch", nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	summaryID := result.Summary.SummaryID

	if err := e.Delete(ctx, result.MemoryID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := e.rel.GetMemory(ctx, result.MemoryID); err != relstore.ErrNotFound {
		t.Fatalf("expected memory to be gone from relstore, got err=%v", err)
	}
	if _, err := e.rel.GetSummaryByID(ctx, summaryID); err != relstore.ErrNotFound {
		t.Fatalf("expected summary row to be cascade-deleted, got err=%v", err)
	}

	topics, err := e.rel.ListTopics(ctx)
	if err != nil {
		t.Fatalf("list topics: %v", err)
	}
	for _, topic := range topics {
		if topic.Name == "scratch" {
			t.Fatalf("expected topic to be auto-removed once its last item was deleted")
		}
	}
}

func TestDeleteMissingMemoryReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	err := e.Delete(ctx, "does-not-exist")
	if !isNotFound(err) {
		t.Fatalf("expected not_found error, got %v", err)
	}
}

func TestTopicLifecycleAcrossMultipleItems(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	first, err := e.Store(ctx, "first item", "shared-topic", nil)
	if err != nil {
		t.Fatalf("store first: %v", err)
	}
	second, err := e.Store(ctx, "second item", "shared-topic", nil)
	if err != nil {
		t.Fatalf("store second: %v", err)
	}

	if err := e.Delete(ctx, first.MemoryID); err != nil {
		t.Fatalf("delete first: %v", err)
	}

	topics, err := e.ListTopics(ctx)
	if err != nil {
		t.Fatalf("list topics: %v", err)
	}
	found := false
	for _, topic := range topics {
		if topic.Name == "shared-topic" {
			found = true
			if topic.ItemCount != 1 {
				t.Fatalf("expected item_count 1 after deleting one of two items, got %d", topic.ItemCount)
			}
		}
	}
	if !found {
		t.Fatalf("expected shared-topic to still exist with one remaining item")
	}

	if err := e.Delete(ctx, second.MemoryID); err != nil {
		t.Fatalf("delete second: %v", err)
	}

	deleted, err := e.DeleteTopicIfEmpty(ctx, "shared-topic")
	if err == nil {
		t.Fatalf("expected topic to already be auto-removed, got deleted=%v", deleted)
	}
	if !isNotFound(err) {
		t.Fatalf("expected not_found for an already-removed topic, got %v", err)
	}
}

func TestRetrieveReturnTypeFanOut(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	stored, err := e.Store(ctx, "a memorable fact about go modules", "go", []string{"lang"})
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	limit := 5
	full, err := e.Retrieve(ctx, "go modules", &limit, nil, ReturnFullText)
	if err != nil {
		t.Fatalf("retrieve full_text: %v", err)
	}
	if len(full) != 1 || full[0].Content == "" || full[0].Summary != "" {
		t.Fatalf("expected full_text to populate content only, got %+v", full)
	}

	summaryOnly, err := e.Retrieve(ctx, "go modules", &limit, nil, ReturnSummary)
	if err != nil {
		t.Fatalf("retrieve summary: %v", err)
	}
	if len(summaryOnly) != 1 || summaryOnly[0].Content != "" || summaryOnly[0].Summary == "" {
		t.Fatalf("expected summary to populate summary only, got %+v", summaryOnly)
	}

	both, err := e.Retrieve(ctx, "go modules", &limit, nil, ReturnBoth)
	if err != nil {
		t.Fatalf("retrieve both: %v", err)
	}
	if len(both) != 1 || both[0].Content == "" || both[0].Summary == "" {
		t.Fatalf("expected both to populate content and summary, got %+v", both)
	}
	if both[0].ID != stored.MemoryID {
		t.Fatalf("expected retrieved id to match stored memory id")
	}
}

func TestRetrieveMaxResultsZeroIsEmptyButOmittedUsesDefault(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	if _, err := e.Store(ctx, "a memorable fact about go modules", "go", []string{"lang"}); err != nil {
		t.Fatalf("store: %v", err)
	}

	zero := 0
	explicitZero, err := e.Retrieve(ctx, "go modules", &zero, nil, ReturnFullText)
	if err != nil {
		t.Fatalf("retrieve with max_results=0: %v", err)
	}
	if len(explicitZero) != 0 {
		t.Fatalf("expected explicit max_results=0 to return no results, got %+v", explicitZero)
	}

	omitted, err := e.Retrieve(ctx, "go modules", nil, nil, ReturnFullText)
	if err != nil {
		t.Fatalf("retrieve with omitted max_results: %v", err)
	}
	if len(omitted) != 1 {
		t.Fatalf("expected omitted max_results to fall back to the default and return a match, got %+v", omitted)
	}
}

func TestUpdateRequiresAtLeastOneField(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	stored, err := e.Store(ctx, "content", "topic", nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	_, err = e.Update(ctx, stored.MemoryID, nil, nil, nil)
	if err == nil {
		t.Fatalf("expected error when no fields are provided")
	}
}

func TestSummarizeByMemoryID(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	stored, err := e.Store(ctx, "summarize this exact memory please", "topic", nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}

	summary, err := e.Summarize(ctx, &stored.MemoryID, nil, nil, SummaryAbstractive, SummaryMedium)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !strings.Contains(summary, "summarize this exact memory") {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

func TestSummarizeByQueryReturnsNoRelevantMemoriesMessage(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)

	query := "nothing stored matches this at all"
	summary, err := e.Summarize(ctx, nil, &query, nil, SummaryAbstractive, SummaryMedium)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != "No relevant memories found to summarize." {
		t.Fatalf("unexpected summary: %q", summary)
	}
}

func isNotFound(err error) bool {
	return errs.Is(err, errs.KindNotFound)
}
