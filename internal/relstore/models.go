package relstore

import "time"

// Topic is a named bucket of memory items. item_count is a maintained
// refcount, not a COUNT(*) over memory_items — it is incremented and
// decremented inside the same transaction as the memory write that causes
// the change, and floored at 0.
type Topic struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MemoryItem is a single stored memory row. Tags are persisted as a JSON
// array in the tags column and decoded back into this slice on read.
type MemoryItem struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Topic     string    `json:"topic"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// Summary is a size-tiered condensation of a MemoryItem's content. The
// unique index on (memory_id, summary_type) means a memory can hold at most
// one summary per type; StoreSummary/UpdateSummary together enforce that an
// existing summary is updated in place rather than duplicated.
type Summary struct {
	ID          string    `json:"id"`
	MemoryID    string    `json:"memory_id"`
	SummaryType string    `json:"summary_type"`
	SummaryText string    `json:"summary_text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TopicStatus is a row-count projection of a Topic for the Status() rollup.
type TopicStatus struct {
	Name      string `json:"name"`
	ItemCount int    `json:"item_count"`
}

// StoreStatus is the relational-side half of the engine's Status() view.
type StoreStatus struct {
	TotalMemories   int           `json:"total_memories"`
	TotalTopics     int           `json:"total_topics"`
	TopTopics       []TopicStatus `json:"top_topics"`
	LatestItemAt    *time.Time    `json:"latest_item_at,omitempty"`
}
