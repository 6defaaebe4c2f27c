package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"pamubot/app/client/github"
	"pamubot/app/client/mailer"
	"pamubot/app/client/medium"
	"pamubot/app/client/youtube"

	"github.com/elliotchance/pie/v2"
)

const (
	defaultFeedLimit = 5
	defaultRepoLimit = 10

	// Planner-emitted email bodies carrying this marker are replaced with
	// the accumulated result blocks.
	unfilledContentMarker = "[Will be filled"
)

// Executor runs the planned tool calls against the source adapters. Failures
// are isolated per call: every failed call contributes an explanatory error
// block instead of aborting the batch.
type Executor struct {
	brain   BrainSource
	medium  MediumSource
	youtube YoutubeSource
	github  GithubSource
	mailer  Mailer
}

func NewExecutor(brain BrainSource, medium MediumSource, youtube YoutubeSource, github GithubSource, mailer Mailer) *Executor {
	return &Executor{
		brain:   brain,
		medium:  medium,
		youtube: youtube,
		github:  github,
		mailer:  mailer,
	}
}

// Execute dispatches each call in plan order. prior holds result blocks
// accumulated earlier in the turn; the email tool may read them as body
// filler.
func (e *Executor) Execute(ctx context.Context, calls []ToolCall, prior []string) []string {
	results := make([]string, 0, len(calls))

	for _, call := range calls {
		slog.Info("Executing tool", "tool", call.Tool, "action", call.Action)

		accumulated := append(append([]string{}, prior...), results...)
		results = append(results, e.run(ctx, call, accumulated)...)
	}

	slog.Info("Tool execution finished", "blocks", len(results))

	return results
}

func (e *Executor) run(ctx context.Context, call ToolCall, accumulated []string) []string {
	switch call.Tool {
	case ToolBrain:
		return e.runBrain(ctx, call)
	case ToolMedium:
		return e.runMedium(ctx, call)
	case ToolYoutube:
		return e.runYoutube(ctx, call)
	case ToolGithub:
		return e.runGithub(ctx, call)
	case ToolEmail:
		return e.runEmail(ctx, call, accumulated)
	default:
		slog.Error("Unknown tool", "tool", call.Tool)
		return []string{fmt.Sprintf("--- ERROR: Unknown tool '%s' ---\n", call.Tool)}
	}
}

func (e *Executor) runBrain(ctx context.Context, call ToolCall) []string {
	if call.Action != ActionSearch {
		return []string{unknownAction(call)}
	}

	docs, err := e.brain.Search(ctx, call.Search.Shortcuts, call.Search.Keywords)
	if err != nil {
		return []string{fmt.Sprintf("--- ERROR: brain.search failed: %s ---\n", err)}
	}

	if len(docs) == 0 {
		return []string{fmt.Sprintf("--- BRAIN: No results for shortcuts=%v keywords=%v ---\n",
			call.Search.Shortcuts, call.Search.Keywords)}
	}

	blocks := make([]string, 0, len(docs))
	for _, doc := range docs {
		blocks = append(blocks, fmt.Sprintf("--- BRAIN: %s ---\n%s\n", doc.SourcePath, doc.Content))
	}

	return blocks
}

func (e *Executor) runMedium(ctx context.Context, call ToolCall) []string {
	switch call.Action {
	case ActionList:
		articles, err := e.medium.List(ctx, limitOr(call.Search.Limit, defaultFeedLimit))
		if err != nil {
			return []string{fmt.Sprintf("--- MEDIUM: Failed to list articles: %s ---\n", err)}
		}
		if len(articles) == 0 {
			return []string{"--- MEDIUM: No articles found ---\n"}
		}

		lines := pie.Map(articles, func(a medium.Article) string {
			return fmt.Sprintf("• %s (%s)\n  %s", a.Title, a.Date, a.Link)
		})

		return []string{fmt.Sprintf("--- MEDIUM: Latest Articles ---\n%s\n", strings.Join(lines, "\n"))}

	case ActionSearch:
		articles, err := e.medium.Search(ctx, call.Search.Keywords)
		if err != nil {
			return []string{fmt.Sprintf("--- MEDIUM: Search failed: %s ---\n", err)}
		}
		if len(articles) == 0 {
			return []string{fmt.Sprintf("--- MEDIUM: No articles matching %v ---\n", call.Search.Keywords)}
		}

		lines := pie.Map(articles, func(a medium.Article) string {
			return fmt.Sprintf("• %s (matches: %d)\n  %s", a.Title, a.Matches, a.Link)
		})

		return []string{fmt.Sprintf("--- MEDIUM: Search Results ---\n%s\n", strings.Join(lines, "\n"))}

	case ActionGetContent:
		content, err := e.medium.GetContent(ctx, call.Search.ArticleLink)
		if err != nil {
			return []string{fmt.Sprintf("--- MEDIUM: %s ---\n", err)}
		}

		return []string{fmt.Sprintf("--- MEDIUM: %s ---\n%s\n", content.Title, content.Content)}

	default:
		return []string{unknownAction(call)}
	}
}

func (e *Executor) runYoutube(ctx context.Context, call ToolCall) []string {
	switch call.Action {
	case ActionList:
		videos, err := e.youtube.List(ctx, limitOr(call.Search.Limit, defaultFeedLimit))
		if err != nil {
			return []string{fmt.Sprintf("--- YOUTUBE: Failed to list videos: %s ---\n", err)}
		}
		if len(videos) == 0 {
			return []string{"--- YOUTUBE: No videos found ---\n"}
		}

		lines := pie.Map(videos, func(v youtube.Video) string {
			return fmt.Sprintf("• %s\n  %s", v.Title, v.Link)
		})

		return []string{fmt.Sprintf("--- YOUTUBE: Latest Videos ---\n%s\n", strings.Join(lines, "\n"))}

	case ActionSearch:
		videos, err := e.youtube.Search(ctx, call.Search.Keywords)
		if err != nil {
			return []string{fmt.Sprintf("--- YOUTUBE: Search failed: %s ---\n", err)}
		}
		if len(videos) == 0 {
			return []string{fmt.Sprintf("--- YOUTUBE: No videos matching %v ---\n", call.Search.Keywords)}
		}

		lines := pie.Map(videos, func(v youtube.Video) string {
			return fmt.Sprintf("• %s (matches: %d)\n  %s", v.Title, v.Matches, v.Link)
		})

		return []string{fmt.Sprintf("--- YOUTUBE: Search Results ---\n%s\n", strings.Join(lines, "\n"))}

	case ActionGetTranscript:
		transcript, err := e.youtube.GetTranscript(ctx, call.Search.VideoID)
		if err != nil {
			return []string{fmt.Sprintf("--- YOUTUBE: %s ---\n", err)}
		}

		return []string{fmt.Sprintf("--- YOUTUBE TRANSCRIPT: %s ---\n%s\n", call.Search.VideoID, transcript)}

	default:
		return []string{unknownAction(call)}
	}
}

func (e *Executor) runGithub(ctx context.Context, call ToolCall) []string {
	switch call.Action {
	case ActionList:
		repos, err := e.github.List(ctx, limitOr(call.Search.Limit, defaultRepoLimit))
		if err != nil {
			return []string{fmt.Sprintf("--- GITHUB: Failed to list repos: %s ---\n", err)}
		}
		if len(repos) == 0 {
			return []string{"--- GITHUB: No repositories found ---\n"}
		}

		lines := pie.Map(repos, func(r github.Repo) string {
			description := r.Description
			if description == "" {
				description = "No description"
			}
			return fmt.Sprintf("• %s (%s) ★%d\n  %s", r.Name, r.Language, r.Stars, description)
		})

		return []string{fmt.Sprintf("--- GITHUB: Repositories ---\n%s\n", strings.Join(lines, "\n"))}

	case ActionSearch:
		repos, err := e.github.Search(ctx, call.Search.Keywords)
		if err != nil {
			return []string{fmt.Sprintf("--- GITHUB: Search failed: %s ---\n", err)}
		}
		if len(repos) == 0 {
			return []string{fmt.Sprintf("--- GITHUB: No repos matching %v ---\n", call.Search.Keywords)}
		}

		lines := pie.Map(repos, func(r github.Repo) string {
			return fmt.Sprintf("• %s (matches: %d)\n  %s", r.Name, r.Matches, r.URL)
		})

		return []string{fmt.Sprintf("--- GITHUB: Search Results ---\n%s\n", strings.Join(lines, "\n"))}

	case ActionGetReadme:
		readme, err := e.github.GetReadme(ctx, call.Search.RepoName)
		if err != nil {
			return []string{fmt.Sprintf("--- GITHUB: %s ---\n", err)}
		}

		return []string{fmt.Sprintf("--- GITHUB README: %s (branch: %s) ---\n%s\n",
			call.Search.RepoName, readme.Branch, readme.Content)}

	case ActionGetFile:
		file, err := e.github.GetFile(ctx, call.Search.RepoName, call.Search.FilePath)
		if err != nil {
			return []string{fmt.Sprintf("--- GITHUB: %s ---\n", err)}
		}

		return []string{fmt.Sprintf("--- GITHUB FILE: %s/%s (branch: %s) ---\n%s\n",
			call.Search.RepoName, call.Search.FilePath, file.Branch, file.Content)}

	case ActionSearchAndRead:
		repo, readme, err := e.github.SearchAndRead(ctx, call.Search.Keywords)
		if err != nil {
			return []string{fmt.Sprintf("--- GITHUB: %s ---\n", err)}
		}

		readmeText := "No README"
		if readme != nil {
			readmeText = readme.Content
		}

		return []string{fmt.Sprintf("--- GITHUB: Search & Read ---\nFound: %s\nDescription: %s\nURL: %s\n\nREADME:\n%s\n",
			repo.Name, repo.Description, repo.URL, readmeText)}

	default:
		return []string{unknownAction(call)}
	}
}

func (e *Executor) runEmail(ctx context.Context, call ToolCall, accumulated []string) []string {
	if call.Action != ActionSend {
		return []string{unknownAction(call)}
	}

	params := call.Email

	if params.Subject == "" {
		params.Subject = "Message from the assistant"
	}

	// An empty or explicitly unfilled body means "send what we found".
	if params.Content == "" || strings.Contains(params.Content, unfilledContentMarker) {
		if len(accumulated) > 0 {
			params.Content = strings.Join(accumulated, "\n")
		} else {
			params.Content = "No content available."
		}
	}

	if params.To == "" {
		return []string{"--- EMAIL: Failed to send ---\nError: No recipient specified.\n"}
	}

	receipt, err := e.mailer.Send(ctx, mailer.Message{
		To:      params.To,
		CC:      params.CC,
		Subject: params.Subject,
		Body:    params.Content,
	})
	if err != nil {
		return []string{fmt.Sprintf("--- EMAIL: Failed to send ---\nError: %s\n", err)}
	}

	return []string{fmt.Sprintf("--- EMAIL: Sent successfully ---\nTo: %s\nSubject: %s\nMessage ID: %s\n",
		params.To, params.Subject, receipt.MessageID)}
}

func unknownAction(call ToolCall) string {
	return fmt.Sprintf("--- ERROR: Unknown action '%s.%s' ---\n", call.Tool, call.Action)
}

func limitOr(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}

	return limit
}
