package engine

import "time"

// ReturnType selects which fields Retrieve populates on each result,
// matching the distilled contract's full_text/summary/both fan-out.
type ReturnType string

const (
	ReturnFullText ReturnType = "full_text"
	ReturnSummary  ReturnType = "summary"
	ReturnBoth     ReturnType = "both"
)

// SummaryKind mirrors summarize.Kind at the engine boundary so callers of
// this package never need to import internal/summarize directly.
type SummaryKind string

const (
	SummaryAbstractive   SummaryKind = "abstractive"
	SummaryExtractive    SummaryKind = "extractive"
	SummaryQueryFocused  SummaryKind = "query_focused"
)

// SummaryLength mirrors summarize.Length at the engine boundary.
type SummaryLength string

const (
	SummaryShort    SummaryLength = "short"
	SummaryMedium   SummaryLength = "medium"
	SummaryDetailed SummaryLength = "detailed"
)

// SummaryInfo describes the summary generated (or not) as a side effect of
// a Store or Update call. SummaryType is always the uniform defaultSummaryType
// ("abstractive_medium"); SummaryTier ("tiny"/"small"/"large") is what
// actually varies with content size and is what §4.3 step 8 calls
// summary_tier.
type SummaryInfo struct {
	Generated       bool   `json:"summary_generated"`
	SummaryType     string `json:"summary_type"`
	SummaryTier     string `json:"summary_tier"`
	SummaryID       string `json:"summary_id,omitempty"`
	Stored          bool   `json:"summary_stored"`
	EmbeddingStored bool   `json:"summary_embedding_stored"`
}

// StoreResult is the outcome of Engine.Store.
type StoreResult struct {
	MemoryID    string      `json:"memory_id"`
	Topic       string      `json:"topic"`
	Tags        []string    `json:"tags"`
	Timestamp   string      `json:"timestamp"`
	ContentSize int         `json:"content_size"`
	Summary     SummaryInfo `json:"summary"`
	Warning     string      `json:"warning,omitempty"`
}

// RetrieveResult is one matched memory item from Engine.Retrieve. Which
// fields are populated depends on the requested ReturnType.
type RetrieveResult struct {
	ID          string   `json:"id"`
	Topic       string   `json:"topic"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
	Content     string   `json:"content,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	SummaryType string   `json:"summary_type,omitempty"`
}

// UpdateResult is the outcome of Engine.Update.
type UpdateResult struct {
	MemoryID       string          `json:"memory_id"`
	UpdatedFields  map[string]bool `json:"updated_fields"`
	Timestamp      string          `json:"timestamp"`
	SummaryUpdated bool            `json:"summary_updated"`
	Warning        string          `json:"warning,omitempty"`
}

// TopicView is one row of Engine.ListTopics.
type TopicView struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	ItemCount   int    `json:"item_count"`
}

// StatusView is the outcome of Engine.Status.
type StatusView struct {
	TotalMemories int              `json:"total_memories"`
	TotalTopics   int              `json:"total_topics"`
	TopTopics     []TopicView      `json:"top_topics"`
	LatestItemAt  *time.Time       `json:"latest_item_at,omitempty"`
	VectorMemory  int              `json:"vector_memory_count"`
	VectorSummary int              `json:"vector_summary_count"`
	VectorTopics  int              `json:"vector_topic_count"`
	DBPath        string           `json:"db_path"`
	SystemTime    string           `json:"system_time"`
}
