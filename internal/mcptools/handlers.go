package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/cortexmem/hme/internal/engine"
	"github.com/cortexmem/hme/internal/engine/errs"
	"github.com/cortexmem/hme/internal/ids"
)

// Handlers holds the single Engine every tool call is routed through.
type Handlers struct {
	eng    *engine.Engine
	logger zerolog.Logger
}

// safely runs fn with panic recovery, converting both a recovered panic and
// a returned error into the uniform error envelope, and a successful result
// into the uniform success envelope. This is the boundary recovery backstop
// required by §7 — the engine itself never panics across this boundary, but
// an external RPC-serving process recovers anyway, matching the general
// "boundary recovers, core doesn't" idiom in tools/registry.go's Handle.
func (h *Handlers) safely(name string, fn func() (map[string]any, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error().Str("tool", name).Interface("panic", r).Msg("recovered panic in tool handler")
			result = toResult(errs.Internal(fmt.Sprintf("internal error handling %s", name), fmt.Errorf("panic: %v", r)))
		}
	}()
	data, ferr := fn()
	if ferr != nil {
		h.logger.Warn().Str("tool", name).Err(ferr).Msg("tool call returned an error envelope")
		return toResult(ferr), nil
	}
	return okResult(name, data), nil
}

func okResult(name string, data map[string]any) *mcp.CallToolResult {
	env := ids.OK(name+" succeeded", data)
	return textResult(env.Map())
}

// toResult converts any error into the uniform error envelope. Errors that
// are not already an *errs.Error (which should not happen, given the
// engine's own error-wrapping discipline, but boundary code defends anyway)
// are wrapped as internal.
func toResult(err error) *mcp.CallToolResult {
	e, ok := errs.As(err)
	if !ok {
		e = errs.Internal("unexpected error", err)
	}
	env := ids.Err(e.Message, map[string]any{"kind": string(e.Kind)})
	return textResult(env.Map())
}

func textResult(payload map[string]any) *mcp.CallToolResult {
	b, err := json.Marshal(payload)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err))
	}
	return mcp.NewToolResultText(string(b))
}

func stringSliceArg(request mcp.CallToolRequest, key string) []string {
	args, ok := request.Params.Arguments.(map[string]any)
	if !ok {
		return nil
	}
	raw, exists := args[key]
	if !exists {
		return nil
	}
	arr, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func optionalStringArg(request mcp.CallToolRequest, key string) *string {
	v := request.GetString(key, "")
	if v == "" {
		return nil
	}
	return &v
}

// Initialize handles memory_initialize.
func (h *Handlers) Initialize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.safely("memory_initialize", func() (map[string]any, error) {
		reset := request.GetBool("reset", false)
		if err := h.eng.Initialize(ctx, reset); err != nil {
			return nil, err
		}
		return map[string]any{"reset": reset}, nil
	})
}

// Store handles memory_store.
func (h *Handlers) Store(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.safely("memory_store", func() (map[string]any, error) {
		content, err := request.RequireString("content")
		if err != nil {
			return nil, errs.InvalidArgument(err.Error())
		}
		topic, err := request.RequireString("topic")
		if err != nil {
			return nil, errs.InvalidArgument(err.Error())
		}
		tags, err := normalizeTags(stringSliceArg(request, "tags"))
		if err != nil {
			return nil, err
		}

		result, err := h.eng.Store(ctx, content, topic, tags)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"memory_id":                result.MemoryID,
			"topic":                    result.Topic,
			"tags":                     result.Tags,
			"timestamp":                result.Timestamp,
			"content_size":             result.ContentSize,
			"summary_generated":        result.Summary.Generated,
			"summary_type":             result.Summary.SummaryType,
			"summary_tier":             result.Summary.SummaryTier,
			"summary_id":               result.Summary.SummaryID,
			"summary_stored":           result.Summary.Stored,
			"summary_embedding_stored": result.Summary.EmbeddingStored,
			"warning":                  result.Warning,
		}, nil
	})
}

// Retrieve handles memory_retrieve. Per the distilled contract, an empty
// match list is returned as a one-element envelope rather than an empty
// list, so a caller iterating "results" never has to special-case zero.
func (h *Handlers) Retrieve(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.safely("memory_retrieve", func() (map[string]any, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return nil, errs.InvalidArgument(err.Error())
		}
		var maxResults *int
		if args, ok := request.Params.Arguments.(map[string]any); ok {
			if _, present := args["max_results"]; present {
				v := request.GetInt("max_results", 0)
				maxResults = &v
			}
		}
		topic := optionalStringArg(request, "topic")
		returnType := engine.ReturnType(request.GetString("return_type", string(engine.ReturnFullText)))

		results, err := h.eng.Retrieve(ctx, query, maxResults, topic, returnType)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return map[string]any{
				"results": []map[string]any{{"message": "No matching memories found."}},
				"count":   0,
			}, nil
		}

		rows := make([]map[string]any, 0, len(results))
		for _, r := range results {
			rows = append(rows, map[string]any{
				"id":           r.ID,
				"topic":        r.Topic,
				"tags":         r.Tags,
				"created_at":   r.CreatedAt,
				"updated_at":   r.UpdatedAt,
				"content":      r.Content,
				"summary":      r.Summary,
				"summary_type": r.SummaryType,
			})
		}
		return map[string]any{"results": rows, "count": len(rows)}, nil
	})
}

// Update handles memory_update.
func (h *Handlers) Update(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.safely("memory_update", func() (map[string]any, error) {
		memoryID, err := request.RequireString("memory_id")
		if err != nil {
			return nil, errs.InvalidArgument(err.Error())
		}

		args, _ := request.Params.Arguments.(map[string]any)
		var content, topic *string
		var tags []string
		if _, ok := args["content"]; ok {
			content = optionalStringArg(request, "content")
		}
		if _, ok := args["topic"]; ok {
			topic = optionalStringArg(request, "topic")
		}
		if _, ok := args["tags"]; ok {
			normalized, nErr := normalizeTags(stringSliceArg(request, "tags"))
			if nErr != nil {
				return nil, nErr
			}
			tags = normalized
		}

		result, err := h.eng.Update(ctx, memoryID, content, topic, tags)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"memory_id":       result.MemoryID,
			"updated_fields":  result.UpdatedFields,
			"timestamp":       result.Timestamp,
			"summary_updated": result.SummaryUpdated,
			"warning":         result.Warning,
		}, nil
	})
}

// Delete handles memory_delete.
func (h *Handlers) Delete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.safely("memory_delete", func() (map[string]any, error) {
		memoryID, err := request.RequireString("memory_id")
		if err != nil {
			return nil, errs.InvalidArgument(err.Error())
		}
		if err := h.eng.Delete(ctx, memoryID); err != nil {
			return nil, err
		}
		return map[string]any{"memory_id": memoryID, "deleted": true}, nil
	})
}

// ListTopics handles memory_list_topics, with the same empty-envelope rule
// as Retrieve.
func (h *Handlers) ListTopics(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.safely("memory_list_topics", func() (map[string]any, error) {
		topics, err := h.eng.ListTopics(ctx)
		if err != nil {
			return nil, err
		}
		if len(topics) == 0 {
			return map[string]any{
				"topics": []map[string]any{{"message": "No topics found."}},
				"count":  0,
			}, nil
		}
		rows := make([]map[string]any, 0, len(topics))
		for _, t := range topics {
			rows = append(rows, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"item_count":  t.ItemCount,
			})
		}
		return map[string]any{"topics": rows, "count": len(rows)}, nil
	})
}

// Status handles memory_status.
func (h *Handlers) Status(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.safely("memory_status", func() (map[string]any, error) {
		status, err := h.eng.Status(ctx)
		if err != nil {
			return nil, err
		}
		topTopics := make([]map[string]any, 0, len(status.TopTopics))
		for _, t := range status.TopTopics {
			topTopics = append(topTopics, map[string]any{"name": t.Name, "item_count": t.ItemCount})
		}
		return map[string]any{
			"total_memories":     status.TotalMemories,
			"total_topics":       status.TotalTopics,
			"top_topics":         topTopics,
			"latest_item_at":     status.LatestItemAt,
			"vector_memory_count": status.VectorMemory,
			"vector_summary_count": status.VectorSummary,
			"vector_topic_count": status.VectorTopics,
			"db_path":            status.DBPath,
			"system_time":        status.SystemTime,
		}, nil
	})
}

// Summarize handles memory_summarize.
func (h *Handlers) Summarize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.safely("memory_summarize", func() (map[string]any, error) {
		memoryID := optionalStringArg(request, "memory_id")
		query := optionalStringArg(request, "query")
		topic := optionalStringArg(request, "topic")
		if err := exactlyOneSelector(memoryID, query, topic); err != nil {
			return nil, err
		}

		kind := engine.SummaryKind(request.GetString("summary_type", string(engine.SummaryAbstractive)))
		if kind == engine.SummaryQueryFocused && (query == nil || *query == "") {
			return nil, errs.InvalidArgument("summary_type=query_focused requires a non-empty query")
		}
		length := engine.SummaryLength(request.GetString("length", string(engine.SummaryMedium)))

		summary, err := h.eng.Summarize(ctx, memoryID, query, topic, kind, length)
		if err != nil {
			return nil, err
		}
		return map[string]any{"summary": summary}, nil
	})
}

// DeleteEmptyTopic handles memory_delete_empty_topic.
func (h *Handlers) DeleteEmptyTopic(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.safely("memory_delete_empty_topic", func() (map[string]any, error) {
		topicName, err := request.RequireString("topic_name")
		if err != nil {
			return nil, errs.InvalidArgument(err.Error())
		}
		deleted, err := h.eng.DeleteTopicIfEmpty(ctx, topicName)
		if err != nil {
			return nil, err
		}
		return map[string]any{"topic_name": topicName, "deleted": deleted}, nil
	})
}
