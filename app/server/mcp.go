package server

import (
	"context"
	"fmt"
	"strings"

	"pamubot/app/client/brain"
	"pamubot/app/client/github"
	"pamubot/app/client/medium"
	"pamubot/app/client/youtube"
	"pamubot/app/config"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
)

// MCPServer exposes the read-only sources as MCP tools over stdio, so the
// assistant's knowledge can be plugged into MCP-capable hosts. The email
// tool is deliberately not exposed here.
type MCPServer struct {
	srv *server.MCPServer
}

func NewMCPServer(di *do.Injector) (*MCPServer, error) {
	cfg := do.MustInvoke[*config.Config](di)
	brainClient := do.MustInvoke[*brain.Client](di)
	mediumClient := do.MustInvoke[*medium.Client](di)
	youtubeClient := do.MustInvoke[*youtube.Client](di)
	githubClient := do.MustInvoke[*github.Client](di)

	srv := server.NewMCPServer("pamubot", "1.0.0")

	srv.AddTool(
		mcp.NewTool("brain_search",
			mcp.WithDescription(fmt.Sprintf("Search %s's personal knowledge base.", cfg.Subject.Name)),
			mcp.WithString("shortcuts", mcp.Description("Comma-separated shortcut keys.")),
			mcp.WithString("keywords", mcp.Description("Comma-separated search keywords.")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			shortcuts := splitCSV(req.GetString("shortcuts", ""))
			keywords := splitCSV(req.GetString("keywords", ""))

			docs, err := brainClient.Search(ctx, shortcuts, keywords)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			var parts []string
			for _, doc := range docs {
				parts = append(parts, fmt.Sprintf("%s:\n%s", doc.SourcePath, doc.Content))
			}
			if len(parts) == 0 {
				return mcp.NewToolResultText("No results."), nil
			}

			return mcp.NewToolResultText(strings.Join(parts, "\n\n")), nil
		},
	)

	srv.AddTool(
		mcp.NewTool("medium_search",
			mcp.WithDescription("Search blog articles by keywords."),
			mcp.WithString("keywords", mcp.Description("Comma-separated search keywords."), mcp.Required()),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			articles, err := mediumClient.Search(ctx, splitCSV(req.GetString("keywords", "")))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			var parts []string
			for _, article := range articles {
				parts = append(parts, fmt.Sprintf("%s (%s)\n%s", article.Title, article.Date, article.Link))
			}
			if len(parts) == 0 {
				return mcp.NewToolResultText("No matching articles."), nil
			}

			return mcp.NewToolResultText(strings.Join(parts, "\n\n")), nil
		},
	)

	srv.AddTool(
		mcp.NewTool("youtube_list",
			mcp.WithDescription("List the latest channel videos."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of videos.")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			limit := req.GetInt("limit", 5)

			videos, err := youtubeClient.List(ctx, limit)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			var parts []string
			for _, video := range videos {
				parts = append(parts, fmt.Sprintf("%s\n%s", video.Title, video.Link))
			}
			if len(parts) == 0 {
				return mcp.NewToolResultText("No videos."), nil
			}

			return mcp.NewToolResultText(strings.Join(parts, "\n\n")), nil
		},
	)

	srv.AddTool(
		mcp.NewTool("github_search",
			mcp.WithDescription("Search repositories by keywords."),
			mcp.WithString("keywords", mcp.Description("Comma-separated search keywords."), mcp.Required()),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			repos, err := githubClient.Search(ctx, splitCSV(req.GetString("keywords", "")))
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}

			var parts []string
			for _, repo := range repos {
				parts = append(parts, fmt.Sprintf("%s (%s)\n%s", repo.Name, repo.Language, repo.URL))
			}
			if len(parts) == 0 {
				return mcp.NewToolResultText("No matching repositories."), nil
			}

			return mcp.NewToolResultText(strings.Join(parts, "\n\n")), nil
		},
	)

	return &MCPServer{srv: srv}, nil
}

// Run serves MCP over stdio until the process exits.
func (m *MCPServer) Run(_ context.Context) error {
	return server.ServeStdio(m.srv)
}

func splitCSV(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
