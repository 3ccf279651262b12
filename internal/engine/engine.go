// Package engine is the hybrid memory coordinator (C6): the only component
// that talks to both internal/relstore and internal/vecstore, and the one
// place the dual-write, summarization-tiering, and delete-ordering rules are
// enforced. Grounded on original_source/memory_service/core_memory_service.py
// and auxiliary_memory_service.py for operation sequencing, and on the
// teacher's memory/store.go for the Go idiom: explicit *Engine receiver
// methods, structured zerolog calls per step, fmt.Errorf("...: %w", err)
// wrapping.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/cortexmem/hme/internal/backup"
	"github.com/cortexmem/hme/internal/config"
	"github.com/cortexmem/hme/internal/engine/errs"
	"github.com/cortexmem/hme/internal/ids"
	"github.com/cortexmem/hme/internal/relstore"
	"github.com/cortexmem/hme/internal/summarize"
	"github.com/cortexmem/hme/internal/vecstore"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Engine coordinates the relational store, the vector store, the
// summarizer, and the backup manager. Every collaborator is an explicit
// constructor argument rather than a process-wide singleton, so a caller
// (tests, or a multi-tenant cmd/ binary) can build disjoint instances on
// disjoint data directories.
type Engine struct {
	cfg    config.Config
	rel    *relstore.Store
	vec    *vecstore.Store
	sum    summarize.Summarizer
	bak    *backup.Manager
	logger zerolog.Logger
}

// New constructs an Engine.
func New(cfg config.Config, rel *relstore.Store, vec *vecstore.Store, sum summarize.Summarizer, bak *backup.Manager, logger zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, rel: rel, vec: vec, sum: sum, bak: bak, logger: logger.With().Str("component", "engine").Logger()}
}

// Initialize prepares both stores for use. With reset=false (the common
// path, run on every server startup) it is idempotent: applying already-
// applied migrations and re-creating already-existing collections are both
// no-ops. With reset=true it wipes and recreates both stores, which a
// reconciliation or test run uses to start from a clean slate.
func (e *Engine) Initialize(ctx context.Context, reset bool) error {
	if err := e.rel.Init(ctx, reset); err != nil {
		return errs.StoreIO("failed to initialize relational store", err)
	}
	if err := e.vec.Init(ctx, reset); err != nil {
		return errs.StoreIO("failed to initialize vector store", err)
	}
	e.logger.Info().Bool("reset", reset).Msg("stores initialized")
	return nil
}

// defaultSummaryType is the summary_type stored for every default (store- or
// update-triggered) summary, regardless of which size tier produced it. §4.4
// is deliberate about this: keeping the stored value uniform is what makes
// "find the default summary for a memory" (§4.3) a deterministic lookup by
// (memory_id, summary_type) rather than something that has to search across
// three possible tier-specific types.
const defaultSummaryType = "abstractive_medium"

// summaryStrategy returns the (tier, kind, length) triple the original's
// _determine_summary_strategy computes from content size. tier is "tiny" for
// content under the tiny threshold (the content itself is used as its own
// summary, no LLM call), "small" for content under the small threshold, and
// "large" for everything else. The tier is reported to callers as
// summary_tier; it is never what gets persisted as summary_type.
func (e *Engine) summaryStrategy(content string) (tier string, kind summarize.Kind, length summarize.Length) {
	size := len(content)
	switch {
	case size < e.cfg.TinyContentThreshold:
		return "tiny", summarize.KindExtractive, summarize.LengthShort
	case size < e.cfg.SmallContentThreshold:
		return "small", summarize.KindExtractive, summarize.LengthShort
	default:
		return "large", summarize.KindAbstractive, summarize.LengthMedium
	}
}

func toSummarizeKind(k SummaryKind) summarize.Kind   { return summarize.Kind(k) }
func toSummarizeLength(l SummaryLength) summarize.Length { return summarize.Length(l) }

// tickBackup runs the write-triggered backup check (§4.3/§4.5): every
// successful write calls this synchronously, in addition to the
// independent cron-scheduled idle tick the backup manager also runs.
func (e *Engine) tickBackup(ctx context.Context) {
	if !e.cfg.EnableAutoBackup || e.bak == nil {
		return
	}
	path, err := e.bak.TickIfDue(ctx)
	if err != nil {
		e.logger.Error().Err(err).Msg("backup tick failed")
		return
	}
	if path != "" {
		e.logger.Info().Str("path", path).Msg("automatic backup created")
	}
}

// Store persists new content under topic, with size-tiered summarization
// and best-effort dual-write to the vector store.
func (e *Engine) Store(ctx context.Context, content, topic string, tags []string) (StoreResult, error) {
	if strings.TrimSpace(content) == "" {
		return StoreResult{}, errs.InvalidArgument("content must not be empty")
	}
	if strings.TrimSpace(topic) == "" {
		return StoreResult{}, errs.InvalidArgument("topic must not be empty")
	}
	if tags == nil {
		tags = []string{}
	}

	e.tickBackup(ctx)

	memoryID := ids.New()
	contentSize := len(content)

	item, err := e.rel.InsertMemory(ctx, memoryID, content, topic, tags)
	if err != nil {
		return StoreResult{}, errs.StoreIO("failed to store memory", err)
	}

	warnings := e.dualWriteMemoryAndTopic(ctx, memoryID, content, topic, tags)

	summaryInfo := e.generateAndStoreSummary(ctx, memoryID, topic, item.Content, nil)
	if !summaryInfo.Generated {
		e.logger.Warn().Str("memory_id", memoryID).Msg("failed to generate summary; original content stored without summary")
	}

	result := StoreResult{
		MemoryID:    memoryID,
		Topic:       topic,
		Tags:        tags,
		Timestamp:   item.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		ContentSize: contentSize,
		Summary:     summaryInfo,
	}
	if len(warnings) > 0 {
		result.Warning = strings.Join(warnings, "; ")
	}
	e.tickBackup(ctx)
	e.logger.Info().Str("memory_id", memoryID).Str("topic", topic).Msg("memory stored")
	return result, nil
}

// dualWriteMemoryAndTopic issues the best-effort vector-side memory and
// topic writes concurrently via errgroup — they touch disjoint chromem-go
// collections, so there is nothing to serialize, and neither failure blocks
// the other or the relational store's already-committed write.
func (e *Engine) dualWriteMemoryAndTopic(ctx context.Context, memoryID, content, topic string, tags []string) []string {
	var warnings []string
	var mu sync.Mutex
	var g errgroup.Group

	g.Go(func() error {
		if err := e.vec.AddMemory(ctx, memoryID, content, topic, tags); err != nil {
			e.logger.Error().Err(err).Str("memory_id", memoryID).Msg("vector write for memory failed")
			mu.Lock()
			warnings = append(warnings, "vector index write for memory failed; relational store is authoritative")
			mu.Unlock()
		}
		return nil
	})
	g.Go(func() error {
		if err := e.vec.UpsertTopic(ctx, topic, tags); err != nil {
			e.logger.Error().Err(err).Str("topic", topic).Msg("vector write for topic failed")
			mu.Lock()
			warnings = append(warnings, "vector index write for topic failed")
			mu.Unlock()
		}
		return nil
	})
	_ = g.Wait()
	return warnings
}

// generateAndStoreSummary implements the tier-driven default-summary
// policy shared by Store and content-changed Update: pick a strategy from
// content size, generate (or directly reuse tiny content as) the summary
// text, and persist it to both stores. existingSummaryID, when non-nil,
// updates that row in place instead of creating a new one — the update
// path's "regenerate in place" rule.
func (e *Engine) generateAndStoreSummary(ctx context.Context, memoryID, topic, content string, existingSummaryID *string) SummaryInfo {
	tier, kind, length := e.summaryStrategy(content)

	var generated string
	if tier == "tiny" {
		generated = content
		e.logger.Info().Str("memory_id", memoryID).Int("content_size", len(content)).Msg("using content directly for tiny content, no LLM summarization")
	} else {
		summary, err := e.sum.Summarize(ctx, content, kind, length, "")
		if err != nil {
			if !summarize.IsUnavailable(err) {
				e.logger.Warn().Err(err).Str("memory_id", memoryID).Msg("summarizer call failed")
			}
			generated = ""
		} else {
			generated = summary
		}
	}

	info := SummaryInfo{Generated: generated != "", SummaryType: defaultSummaryType, SummaryTier: tier}
	if generated == "" {
		return info
	}

	summaryID := memoryID
	if existingSummaryID != nil {
		summaryID = *existingSummaryID
	} else {
		summaryID = ids.New()
	}
	info.SummaryID = summaryID

	var relErr error
	if existingSummaryID != nil {
		relErr = e.rel.UpdateSummary(ctx, summaryID, generated)
	} else {
		relErr = e.rel.StoreSummary(ctx, summaryID, memoryID, defaultSummaryType, generated)
	}
	if relErr != nil {
		e.logger.Error().Err(relErr).Str("memory_id", memoryID).Msg("failed to persist summary to relational store")
	} else {
		info.Stored = true
	}

	if err := e.vec.AddSummary(ctx, summaryID, generated, memoryID, defaultSummaryType, topic); err != nil {
		e.logger.Error().Err(err).Str("memory_id", memoryID).Msg("failed to persist summary embedding")
	} else {
		info.EmbeddingStored = true
	}

	return info
}

// Retrieve performs summary-first semantic search: it searches summary
// embeddings (not memory embeddings) for efficiency, then hydrates each
// match from the relational store.
//
// maxResults is a pointer so the boundary can distinguish "max_results
// omitted" (nil, resolved to cfg.DefaultMaxResults) from "max_results=0"
// (explicit zero, which short-circuits to an empty result set rather than
// being silently promoted to the default).
func (e *Engine) Retrieve(ctx context.Context, query string, maxResults *int, topic *string, returnType ReturnType) ([]RetrieveResult, error) {
	limit := e.cfg.DefaultMaxResults
	switch {
	case maxResults == nil:
		// omitted, keep the default
	case *maxResults == 0:
		return []RetrieveResult{}, nil
	case *maxResults < 0:
		// negative is nonsensical, treat like omitted
	default:
		limit = *maxResults
	}

	summaryIDs, err := e.vec.SearchSummaries(ctx, query, limit, topic)
	if err != nil {
		return nil, errs.StoreIO("failed to search summary embeddings", err)
	}

	results := make([]RetrieveResult, 0, len(summaryIDs))
	for _, summaryID := range summaryIDs {
		summary, err := e.rel.GetSummaryByID(ctx, summaryID)
		if err != nil {
			e.logger.Warn().Str("summary_id", summaryID).Msg("summary id from vector search not found in relational store")
			continue
		}

		item, err := e.rel.GetMemory(ctx, summary.MemoryID)
		if err != nil {
			e.logger.Warn().Str("memory_id", summary.MemoryID).Msg("memory for summary not found in relational store")
			continue
		}

		r := RetrieveResult{
			ID:        item.ID,
			Topic:     item.Topic,
			Tags:      item.Tags,
			CreatedAt: item.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			UpdatedAt: item.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		switch returnType {
		case ReturnSummary:
			r.Summary = summary.SummaryText
			r.SummaryType = summary.SummaryType
		case ReturnBoth:
			r.Content = item.Content
			r.Summary = summary.SummaryText
			r.SummaryType = summary.SummaryType
		default:
			r.Content = item.Content
		}
		results = append(results, r)
	}
	return results, nil
}

// Update applies a partial update to a memory item, re-embeds it on the
// vector side, and regenerates its summary in place if content changed.
func (e *Engine) Update(ctx context.Context, memoryID string, content, topic *string, tags []string) (UpdateResult, error) {
	if content == nil && topic == nil && tags == nil {
		return UpdateResult{}, errs.InvalidArgument("at least one of content, topic, or tags must be provided")
	}

	if _, err := e.rel.GetMemory(ctx, memoryID); err != nil {
		if errors.Is(err, relstore.ErrNotFound) {
			return UpdateResult{}, errs.NotFound(fmt.Sprintf("memory item with id %s not found", memoryID))
		}
		return UpdateResult{}, errs.StoreIO("failed to read memory before update", err)
	}

	updated, err := e.rel.UpdateMemory(ctx, memoryID, content, topic, tags)
	if err != nil {
		return UpdateResult{}, errs.StoreIO("failed to update memory", err)
	}

	e.tickBackup(ctx)

	var warnings []string
	var warnMu sync.Mutex
	var g errgroup.Group
	g.Go(func() error {
		if err := e.vec.UpdateMemory(ctx, memoryID, content, topic, tags); err != nil {
			e.logger.Error().Err(err).Str("memory_id", memoryID).Msg("vector update for memory failed")
			warnMu.Lock()
			warnings = append(warnings, "vector index update for memory failed; relational store is authoritative")
			warnMu.Unlock()
		}
		return nil
	})
	if topic != nil {
		g.Go(func() error {
			if err := e.vec.UpsertTopic(ctx, *topic, updated.Tags); err != nil {
				e.logger.Error().Err(err).Str("topic", *topic).Msg("vector update for topic failed")
				warnMu.Lock()
				warnings = append(warnings, "vector index update for topic failed")
				warnMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	summaryUpdated := false
	if content != nil {
		existing, err := e.rel.ListSummaryIDs(ctx, memoryID)
		if err != nil {
			e.logger.Error().Err(err).Str("memory_id", memoryID).Msg("failed to look up existing summary before regeneration")
		} else {
			var existingID *string
			if len(existing) > 0 {
				id := existing[0].ID
				existingID = &id
			} else {
				e.logger.Info().Str("memory_id", memoryID).Msg("creating new summary for memory after content update")
			}
			info := e.generateAndStoreSummary(ctx, memoryID, updated.Topic, updated.Content, existingID)
			summaryUpdated = info.Generated && info.Stored
			if !info.Generated {
				e.logger.Warn().Str("memory_id", memoryID).Msg("failed to regenerate summary during update")
				warnings = append(warnings, "summary regeneration failed")
			}
		}
	}

	result := UpdateResult{
		MemoryID: memoryID,
		UpdatedFields: map[string]bool{
			"content": content != nil,
			"topic":   topic != nil,
			"tags":    tags != nil,
		},
		Timestamp:      ids.Now(),
		SummaryUpdated: summaryUpdated,
	}
	if len(warnings) > 0 {
		result.Warning = strings.Join(warnings, "; ")
	}
	e.logger.Info().Str("memory_id", memoryID).Msg("memory updated")
	return result, nil
}

// Delete removes a memory item. Ordering is load-bearing: summary ids are
// enumerated from the relational store before anything is deleted, their
// vector embeddings are deleted first, then the relational row (whose
// cascade removes the summary rows), and finally the memory's own vector
// document — deleting the relational row before enumerating would make the
// summary ids unrecoverable, since the cascade removes the only rows that
// name them.
func (e *Engine) Delete(ctx context.Context, memoryID string) error {
	summaries, err := e.rel.ListSummaryIDs(ctx, memoryID)
	if err != nil {
		return errs.StoreIO("failed to enumerate summaries before delete", err)
	}

	for _, s := range summaries {
		if err := e.vec.DeleteSummary(ctx, s.ID); err != nil {
			e.logger.Error().Err(err).Str("summary_id", s.ID).Msg("failed to delete summary embedding")
		}
	}

	topic, err := e.rel.DeleteMemory(ctx, memoryID)
	if err != nil {
		if errors.Is(err, relstore.ErrNotFound) {
			return errs.NotFound(fmt.Sprintf("memory item with id %s not found", memoryID))
		}
		return errs.StoreIO("failed to delete memory", err)
	}

	if err := e.vec.DeleteMemory(ctx, memoryID); err != nil {
		e.logger.Error().Err(err).Str("memory_id", memoryID).Msg("failed to delete memory embedding")
	}

	e.tickBackup(ctx)
	e.logger.Info().Str("memory_id", memoryID).Str("topic", topic).Msg("memory deleted")
	return nil
}

// ListTopics returns every topic known to the relational store.
func (e *Engine) ListTopics(ctx context.Context) ([]TopicView, error) {
	topics, err := e.rel.ListTopics(ctx)
	if err != nil {
		return nil, errs.StoreIO("failed to list topics", err)
	}
	views := make([]TopicView, 0, len(topics))
	for _, t := range topics {
		views = append(views, TopicView{Name: t.Name, Description: t.Description, ItemCount: t.ItemCount})
	}
	return views, nil
}

// DeleteTopicIfEmpty deletes a topic if it currently has zero items.
// Supplemented from auxiliary_memory_service.py:delete_empty_topic.
func (e *Engine) DeleteTopicIfEmpty(ctx context.Context, name string) (bool, error) {
	deleted, err := e.rel.DeleteTopicIfEmpty(ctx, name)
	if err != nil {
		if errors.Is(err, relstore.ErrNotFound) {
			return false, errs.NotFound(fmt.Sprintf("topic %q not found", name))
		}
		return false, errs.StoreIO("failed to delete topic", err)
	}
	if deleted {
		if err := e.vec.DeleteTopic(ctx, name); err != nil {
			e.logger.Error().Err(err).Str("topic", name).Msg("failed to delete vector topic document")
		}
	}
	return deleted, nil
}

// Status rolls up relational and vector statistics for the engine's status
// view.
func (e *Engine) Status(ctx context.Context) (StatusView, error) {
	relStatus, err := e.rel.Status(ctx)
	if err != nil {
		return StatusView{}, errs.StoreIO("failed to read relational status", err)
	}
	vecStatus, err := e.vec.Status(ctx)
	if err != nil {
		return StatusView{}, errs.StoreIO("failed to read vector status", err)
	}

	views := make([]TopicView, 0, len(relStatus.TopTopics))
	for _, t := range relStatus.TopTopics {
		views = append(views, TopicView{Name: t.Name, ItemCount: t.ItemCount})
	}

	return StatusView{
		TotalMemories: relStatus.TotalMemories,
		TotalTopics:   relStatus.TotalTopics,
		TopTopics:     views,
		LatestItemAt:  relStatus.LatestItemAt,
		VectorMemory:  vecStatus.MemoryCount,
		VectorSummary: vecStatus.SummaryCount,
		VectorTopics:  vecStatus.TopicCount,
		DBPath:        e.cfg.DBPath,
		SystemTime:    ids.Now(),
	}, nil
}

// Summarize generates a summary on demand without persisting it. Exactly
// one of memoryID, query, or topic must be set — that "exactly one
// selector" rule is validated at the C7 boundary, not here; by the time
// this method runs the caller has already guaranteed a usable selector.
// When a query/topic selector matches nothing, this returns the
// distilled spec's documented non-error "no relevant memories found"
// message rather than a not_found error, per summarize_memory in
// auxiliary_memory_service.py.
func (e *Engine) Summarize(ctx context.Context, memoryID, query, topic *string, kind SummaryKind, length SummaryLength) (string, error) {
	var content string
	switch {
	case memoryID != nil:
		item, err := e.rel.GetMemory(ctx, *memoryID)
		if err != nil {
			if errors.Is(err, relstore.ErrNotFound) {
				return "", errs.NotFound(fmt.Sprintf("memory item with id %s not found", *memoryID))
			}
			return "", errs.StoreIO("failed to read memory", err)
		}
		content = item.Content
	default:
		q := ""
		if query != nil {
			q = *query
		} else if topic != nil {
			q = *topic
		}
		matchIDs, err := e.vec.SearchMemories(ctx, q, 10, topic)
		if err != nil {
			return "", errs.StoreIO("failed to search memories", err)
		}
		if len(matchIDs) == 0 {
			return "No relevant memories found to summarize.", nil
		}
		var parts []string
		for _, id := range matchIDs {
			item, err := e.rel.GetMemory(ctx, id)
			if err != nil {
				continue
			}
			parts = append(parts, item.Content)
		}
		if len(parts) == 0 {
			return "Could not retrieve content for relevant memories.", nil
		}
		content = strings.Join(parts, "\n\n")
	}

	if strings.TrimSpace(content) == "" {
		return "", errs.InvalidArgument("no content found to summarize")
	}

	q := ""
	if kind == SummaryQueryFocused && query != nil {
		q = *query
	}
	summary, err := e.sum.Summarize(ctx, content, toSummarizeKind(kind), toSummarizeLength(length), q)
	if err != nil {
		if summarize.IsUnavailable(err) {
			return "", errs.DependencyUnavailable("summarization backend unavailable", err)
		}
		return "", errs.Internal("failed to generate summary", err)
	}
	return summary, nil
}
