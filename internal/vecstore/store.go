// Package vecstore is the vector-index half of the hybrid store (C4). It
// holds three chromem-go collections — memories, summaries, and topics —
// and is written to after the relational side (internal/relstore) has
// committed, except that Engine.Delete removes summary documents before the
// relational delete; a failure here degrades a response with a warning
// rather than rolling anything back.
package vecstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"
)

const (
	memoriesCollection  = "memories"
	summariesCollection = "summaries"
	topicsCollection    = "topics"
)

// ErrNotFound is returned when a document lookup by id finds nothing.
var ErrNotFound = fmt.Errorf("vecstore: not found")

// TopicDoc is the document stored for a topic in the topics collection.
type TopicDoc struct {
	Name string
	Tags []string
	Text string
}

// VecStatus is the vector-side half of the engine's Status() view.
type VecStatus struct {
	MemoryCount  int `json:"memory_count"`
	SummaryCount int `json:"summary_count"`
	TopicCount   int `json:"topic_count"`
}

// Store wraps a chromem-go database and its three named collections.
type Store struct {
	embed       chromem.EmbeddingFunc
	logger      zerolog.Logger
	persistPath string
	db          *chromem.DB
	memories    *chromem.Collection
	summaries   *chromem.Collection
	topics      *chromem.Collection
}

// NewStore creates a Store. embed is shared across all three collections —
// every collection embeds with the same function so memory, summary, and
// topic documents live in a comparable vector space.
//
// persistPath, when non-empty, backs the database with chromem-go's gob
// persistence at that directory so the index survives process restarts and
// can be reopened by cmd/memreconcile; an empty path keeps the
// database purely in memory, which is what tests use.
func NewStore(embed chromem.EmbeddingFunc, logger zerolog.Logger, persistPath string) (*Store, error) {
	logger = logger.With().Str("component", "vecstore").Logger()
	logger.Info().Str("persist_path", persistPath).Msg("initializing vector store")
	return &Store{embed: embed, logger: logger, persistPath: persistPath}, nil
}

func (s *Store) openDB() (*chromem.DB, error) {
	if s.persistPath == "" {
		return chromem.NewDB(), nil
	}
	return chromem.NewPersistentDB(s.persistPath, false)
}

// Init opens (or creates) the three collections. On a persistent store,
// NewPersistentDB reloads any previously-persisted documents into memory on
// open; GetOrCreateCollection is what preserves that reload — CreateCollection
// always hands back a fresh, empty collection, discarding whatever was just
// reloaded, so it is reserved for the reset path below where an empty
// collection is exactly what's wanted.
//
// When reset is true, the backing store is actually dropped first: the
// in-memory database is replaced outright, and a persistent one has its
// directory removed and reopened empty, so the three CreateCollection calls
// afterward are guaranteed to start from nothing.
func (s *Store) Init(ctx context.Context, reset bool) error {
	switch {
	case reset:
		if s.persistPath != "" {
			if err := os.RemoveAll(s.persistPath); err != nil {
				return fmt.Errorf("remove persisted vector store at %s: %w", s.persistPath, err)
			}
		}
		db, err := s.openDB()
		if err != nil {
			return fmt.Errorf("open vector database: %w", err)
		}
		s.db = db
		if s.memories, err = s.db.CreateCollection(memoriesCollection, nil, s.embed); err != nil {
			return fmt.Errorf("create memories collection: %w", err)
		}
		if s.summaries, err = s.db.CreateCollection(summariesCollection, nil, s.embed); err != nil {
			return fmt.Errorf("create summaries collection: %w", err)
		}
		if s.topics, err = s.db.CreateCollection(topicsCollection, nil, s.embed); err != nil {
			return fmt.Errorf("create topics collection: %w", err)
		}
	default:
		if s.db == nil {
			db, err := s.openDB()
			if err != nil {
				return fmt.Errorf("open vector database: %w", err)
			}
			s.db = db
		}
		var err error
		if s.memories, err = s.db.GetOrCreateCollection(memoriesCollection, nil, s.embed); err != nil {
			return fmt.Errorf("get or create memories collection: %w", err)
		}
		if s.summaries, err = s.db.GetOrCreateCollection(summariesCollection, nil, s.embed); err != nil {
			return fmt.Errorf("get or create summaries collection: %w", err)
		}
		if s.topics, err = s.db.GetOrCreateCollection(topicsCollection, nil, s.embed); err != nil {
			return fmt.Errorf("get or create topics collection: %w", err)
		}
	}
	s.logger.Info().Msg("vector collections ready")
	return nil
}

func marshalTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	return tags
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func isNotFoundErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "not found")
}

// AddMemory adds a memory document, embedding its content via the
// collection's embedding function.
func (s *Store) AddMemory(ctx context.Context, id, text, topic string, tags []string) error {
	s.logger.Debug().Str("method", "AddMemory").Str("id", id).Msg("called")
	now := nowRFC3339()
	doc := chromem.Document{
		ID:      id,
		Content: text,
		Metadata: map[string]string{
			"topic":      topic,
			"tags":       marshalTags(tags),
			"created_at": now,
			"updated_at": now,
		},
	}
	if err := s.memories.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add memory document: %w", err)
	}
	return nil
}

// UpdateMemory read-merge-writes a memory document: it fetches the existing
// document, overlays whichever fields changed, and re-adds it under the
// same id. chromem-go's AddDocument overwrites an existing id rather than
// duplicating, so this never produces a second document.
func (s *Store) UpdateMemory(ctx context.Context, id string, text, topic *string, tags []string) error {
	s.logger.Debug().Str("method", "UpdateMemory").Str("id", id).Msg("called")
	existing, err := s.memories.GetByID(ctx, id)
	if err != nil {
		if isNotFoundErr(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get memory document %q: %w", id, err)
	}

	content := existing.Content
	if text != nil {
		content = *text
	}
	newTopic := existing.Metadata["topic"]
	if topic != nil {
		newTopic = *topic
	}
	tagsJSON := existing.Metadata["tags"]
	if tags != nil {
		tagsJSON = marshalTags(tags)
	}

	doc := chromem.Document{
		ID:      id,
		Content: content,
		Metadata: map[string]string{
			"topic":      newTopic,
			"tags":       tagsJSON,
			"created_at": existing.Metadata["created_at"],
			"updated_at": nowRFC3339(),
		},
	}
	if err := s.memories.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("update memory document: %w", err)
	}
	return nil
}

// DeleteMemory removes a memory document.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	s.logger.Debug().Str("method", "DeleteMemory").Str("id", id).Msg("called")
	if err := s.memories.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete memory document %q: %w", id, err)
	}
	return nil
}

// HasMemory reports whether a memory document with the given id exists.
// Used by cmd/memreconcile, which has no use for the document itself — only
// whether the relational store's authoritative id is mirrored here.
func (s *Store) HasMemory(ctx context.Context, id string) (bool, error) {
	_, err := s.memories.GetByID(ctx, id)
	if err != nil {
		if isNotFoundErr(err) {
			return false, nil
		}
		return false, fmt.Errorf("get memory document %q: %w", id, err)
	}
	return true, nil
}

// searchIDs runs a semantic query against col, retrying with a smaller
// result count when chromem-go rejects k as larger than the collection —
// the same backoff the becomeliminal chromem wrapper uses, since chromem-go
// has no "give me up to k" mode of its own. Results are stably re-sorted by
// (-similarity, id) before their ids are returned, since chromem-go only
// guarantees similarity ordering and the wire contract needs a
// deterministic tie-break.
func searchIDs(ctx context.Context, col *chromem.Collection, query string, k int, topic *string) ([]string, error) {
	if k <= 0 {
		return nil, nil
	}
	var where map[string]string
	if topic != nil {
		where = map[string]string{"topic": *topic}
	}

	var results []chromem.Result
	for limit := k; limit >= 1; limit-- {
		res, err := col.Query(ctx, query, limit, where, nil)
		if err == nil {
			results = res
			break
		}
		if strings.Contains(strings.ToLower(err.Error()), "nresults") ||
			strings.Contains(strings.ToLower(err.Error()), "number of documents") {
			if limit == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("query: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].ID < results[j].ID
	})

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// SearchMemories returns up to k memory ids ordered by decreasing
// similarity to query, optionally restricted to a single topic.
func (s *Store) SearchMemories(ctx context.Context, query string, k int, topic *string) ([]string, error) {
	s.logger.Debug().Str("method", "SearchMemories").Str("query", query).Int("k", k).Msg("called")
	return searchIDs(ctx, s.memories, query, k, topic)
}

// AddSummary adds a summary document. Metadata mirrors the original's
// {memory_id, summary_type, topic} shape so search can filter by topic the
// same way memory search does.
func (s *Store) AddSummary(ctx context.Context, id, text, memoryID, summaryType, topic string) error {
	s.logger.Debug().
		Str("method", "AddSummary").
		Str("id", id).
		Str("memory_id", memoryID).
		Str("summary_type", summaryType).
		Msg("called")
	doc := chromem.Document{
		ID:      id,
		Content: text,
		Metadata: map[string]string{
			"memory_id":    memoryID,
			"summary_type": summaryType,
			"topic":        topic,
		},
	}
	if err := s.summaries.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add summary document: %w", err)
	}
	return nil
}

// UpdateSummary re-embeds a summary's text under the same id, preserving
// its metadata — the same overwrite-not-duplicate rule AddDocument gives
// UpdateMemory.
func (s *Store) UpdateSummary(ctx context.Context, id, text string) error {
	s.logger.Debug().Str("method", "UpdateSummary").Str("id", id).Msg("called")
	existing, err := s.summaries.GetByID(ctx, id)
	if err != nil {
		if isNotFoundErr(err) {
			return ErrNotFound
		}
		return fmt.Errorf("get summary document %q: %w", id, err)
	}
	doc := chromem.Document{ID: id, Content: text, Metadata: existing.Metadata}
	if err := s.summaries.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("update summary document: %w", err)
	}
	return nil
}

// DeleteSummary removes a summary document.
func (s *Store) DeleteSummary(ctx context.Context, id string) error {
	s.logger.Debug().Str("method", "DeleteSummary").Str("id", id).Msg("called")
	if err := s.summaries.Delete(ctx, nil, nil, id); err != nil {
		return fmt.Errorf("delete summary document %q: %w", id, err)
	}
	return nil
}

// SearchSummaries returns up to k summary ids ordered by decreasing
// similarity to query, optionally restricted to a single topic.
func (s *Store) SearchSummaries(ctx context.Context, query string, k int, topic *string) ([]string, error) {
	s.logger.Debug().Str("method", "SearchSummaries").Str("query", query).Int("k", k).Msg("called")
	return searchIDs(ctx, s.summaries, query, k, topic)
}

// UpsertTopic writes (or overwrites) a topic document. Its text is
// synthesized from tags the same way the relational side's description is,
// so a topic with no memories yet is still semantically searchable.
func (s *Store) UpsertTopic(ctx context.Context, name string, tags []string) error {
	s.logger.Debug().Str("method", "UpsertTopic").Str("name", name).Msg("called")
	tagsStr := name
	if len(tags) > 0 {
		tagsStr = strings.Join(tags, ", ")
	}
	text := fmt.Sprintf("Topic %s containing information about %s", name, tagsStr)
	doc := chromem.Document{
		ID:      name,
		Content: text,
		Metadata: map[string]string{
			"name": name,
			"tags": marshalTags(tags),
		},
	}
	if err := s.topics.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("upsert topic document: %w", err)
	}
	return nil
}

// GetTopic fetches a topic document by name.
func (s *Store) GetTopic(ctx context.Context, name string) (*TopicDoc, error) {
	s.logger.Debug().Str("method", "GetTopic").Str("name", name).Msg("called")
	doc, err := s.topics.GetByID(ctx, name)
	if err != nil {
		if isNotFoundErr(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get topic document %q: %w", name, err)
	}
	return &TopicDoc{Name: name, Tags: unmarshalTags(doc.Metadata["tags"]), Text: doc.Content}, nil
}

// DeleteTopic removes a topic document.
func (s *Store) DeleteTopic(ctx context.Context, name string) error {
	s.logger.Debug().Str("method", "DeleteTopic").Str("name", name).Msg("called")
	if err := s.topics.Delete(ctx, nil, nil, name); err != nil {
		return fmt.Errorf("delete topic document %q: %w", name, err)
	}
	return nil
}

// Status reports document counts across all three collections.
func (s *Store) Status(ctx context.Context) (VecStatus, error) {
	s.logger.Debug().Str("method", "Status").Msg("called")
	return VecStatus{
		MemoryCount:  s.memories.Count(),
		SummaryCount: s.summaries.Count(),
		TopicCount:   s.topics.Count(),
	}, nil
}
