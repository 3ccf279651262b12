package relstore

import (
	sq "github.com/Masterminds/squirrel"
)

// StatementBuilder returns a Squirrel StatementBuilder configured for
// SQLite. SQLite uses '?' as placeholders, which is Squirrel's default.
func StatementBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder
}

// memoryItemColumns is the standard column list for memory_items SELECT
// queries, kept in one place so every query projects the same shape.
func memoryItemColumns() []string {
	return []string{"id", "content", "topic_name", "tags", "created_at", "updated_at", "version"}
}

func topicColumns() []string {
	return []string{"name", "description", "item_count", "created_at", "updated_at"}
}

func summaryColumns() []string {
	return []string{"id", "memory_id", "summary_type", "summary_text", "created_at", "updated_at"}
}
