package mcptools

import (
	"context"
	"embed"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
)

//go:embed docs/*.md
var docsFS embed.FS

// docResource pairs an MCP resource URI with the embedded file backing it.
type docResource struct {
	uri, name, description, file string
}

var docResources = []docResource{
	{"memory://docs/agents", "agents", "Guidance for agents calling the memory tools", "docs/agents.md"},
	{"memory://docs/readme", "readme", "Overview of the hybrid memory service", "docs/readme.md"},
	{"memory://docs/schema", "schema", "Relational and vector schema reference", "docs/schema.md"},
	{"memory://docs/roadmap", "roadmap", "Known gaps and follow-up work", "docs/roadmap.md"},
}

// registerResources registers the four read-only documentation resources.
// Content is static Markdown embedded at build time via embed.FS, rather
// than hand-duplicated into Go string literals.
func registerResources(server *mcpserver.MCPServer, logger zerolog.Logger) {
	for _, d := range docResources {
		d := d
		server.AddResource(mcp.Resource{
			URI:         d.uri,
			Name:        d.name,
			Description: d.description,
			MIMEType:    "text/markdown",
		}, func(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			body, err := docsFS.ReadFile(d.file)
			if err != nil {
				logger.Error().Err(err).Str("uri", d.uri).Msg("failed to read embedded documentation resource")
				return nil, fmt.Errorf("read embedded doc %s: %w", d.file, err)
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      request.Params.URI,
					MIMEType: "text/markdown",
					Text:     string(body),
				},
			}, nil
		})
	}
}
