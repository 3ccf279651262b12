// Package mcptools is the MCP tool surface (C7): the boundary between the
// JSON-RPC transport and the Hybrid Memory Engine. Grounded on
// harperreed-memory/internal/mcp/tools.go and handlers.go for the
// mark3labs/mcp-go server-side registration idiom — mcp.Tool{} struct
// literals passed to server.AddTool, and request.RequireString/GetString/
// GetInt for scalar arguments. This layer owns request validation (exactly-
// one-selector, tag normalization; memory_update's at-least-one-field rule
// is checked by engine.Update) and response
// shaping into the uniform {status, message, ...data} envelope; the engine
// itself never sees a raw MCP request.
package mcptools

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/cortexmem/hme/internal/engine"
)

// Register wires all nine tools and the four documentation resources onto
// server, returning the Handlers so callers (mainly tests) can invoke them
// directly without a transport round trip.
func Register(server *mcpserver.MCPServer, eng *engine.Engine, logger zerolog.Logger) *Handlers {
	h := &Handlers{eng: eng, logger: logger.With().Str("component", "mcptools").Logger()}

	server.AddTool(mcp.Tool{
		Name:        "memory_initialize",
		Description: "Initialize the relational and vector stores. With reset=true, wipes and recreates both; otherwise idempotent.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"reset": map[string]interface{}{
					"type":        "boolean",
					"description": "Wipe and recreate both stores instead of leaving existing data in place",
					"default":     false,
				},
			},
		},
	}, h.Initialize)

	server.AddTool(mcp.Tool{
		Name:        "memory_store",
		Description: "Store a new memory item under a topic, with size-tiered automatic summarization.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"content": map[string]interface{}{
					"type":        "string",
					"description": "The content to remember",
				},
				"topic": map[string]interface{}{
					"type":        "string",
					"description": "Topic this memory belongs to",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Optional tags; duplicates are deduplicated, empty strings are rejected",
				},
			},
			Required: []string{"content", "topic"},
		},
	}, h.Store)

	server.AddTool(mcp.Tool{
		Name:        "memory_retrieve",
		Description: "Retrieve memories matching a query via summary-first semantic search.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query for memory retrieval",
				},
				"max_results": map[string]interface{}{
					"type":        "number",
					"description": "Maximum number of results to return",
					"default":     5,
				},
				"topic": map[string]interface{}{
					"type":        "string",
					"description": "Restrict the search to a single topic",
				},
				"return_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"full_text", "summary", "both"},
					"description": "Which fields to populate on each result",
					"default":     "full_text",
				},
			},
			Required: []string{"query"},
		},
	}, h.Retrieve)

	server.AddTool(mcp.Tool{
		Name:        "memory_update",
		Description: "Partially update a memory item's content, topic, or tags. At least one field is required.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"memory_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the memory item to update",
				},
				"content": map[string]interface{}{
					"type":        "string",
					"description": "Replacement content; triggers summary regeneration",
				},
				"topic": map[string]interface{}{
					"type":        "string",
					"description": "Replacement topic",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Replacement tag set",
				},
			},
			Required: []string{"memory_id"},
		},
	}, h.Update)

	server.AddTool(mcp.Tool{
		Name:        "memory_delete",
		Description: "Delete a memory item and its summaries from both stores.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"memory_id": map[string]interface{}{
					"type":        "string",
					"description": "Id of the memory item to delete",
				},
			},
			Required: []string{"memory_id"},
		},
	}, h.Delete)

	server.AddTool(mcp.Tool{
		Name:        "memory_list_topics",
		Description: "List every known topic with its description and item count.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.ListTopics)

	server.AddTool(mcp.Tool{
		Name:        "memory_status",
		Description: "Report relational and vector store statistics.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.Status)

	server.AddTool(mcp.Tool{
		Name:        "memory_summarize",
		Description: "Generate a summary on demand without persisting it. Exactly one of memory_id, query, or topic must be provided.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"memory_id": map[string]interface{}{
					"type":        "string",
					"description": "Summarize this specific memory item",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Summarize the memories best matching this query",
				},
				"topic": map[string]interface{}{
					"type":        "string",
					"description": "Summarize the memories under this topic",
				},
				"summary_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"abstractive", "extractive", "query_focused"},
					"default":     "abstractive",
				},
				"length": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"short", "medium", "detailed"},
					"default":     "medium",
				},
			},
		},
	}, h.Summarize)

	server.AddTool(mcp.Tool{
		Name:        "memory_delete_empty_topic",
		Description: "Delete a topic if, and only if, it currently has zero items.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"topic_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of the topic to delete",
				},
			},
			Required: []string{"topic_name"},
		},
	}, h.DeleteEmptyTopic)

	registerResources(server, h.logger)

	return h
}
