package chat

import (
	"context"

	"pamubot/app/client/brain"
	"pamubot/app/client/github"
	"pamubot/app/client/mailer"
	"pamubot/app/client/medium"
	"pamubot/app/client/youtube"
)

// Narrow views over the source adapters, so the executor can be exercised
// with fakes.

type BrainSource interface {
	Search(ctx context.Context, shortcuts, keywords []string) ([]brain.Document, error)
}

type MediumSource interface {
	List(ctx context.Context, limit int) ([]medium.Article, error)
	Search(ctx context.Context, keywords []string) ([]medium.Article, error)
	GetContent(ctx context.Context, link string) (*medium.ArticleContent, error)
}

type YoutubeSource interface {
	List(ctx context.Context, limit int) ([]youtube.Video, error)
	Search(ctx context.Context, keywords []string) ([]youtube.Video, error)
	GetTranscript(ctx context.Context, videoID string) (string, error)
}

type GithubSource interface {
	List(ctx context.Context, limit int) ([]github.Repo, error)
	Search(ctx context.Context, keywords []string) ([]github.Repo, error)
	GetReadme(ctx context.Context, repoName string) (*github.FileContent, error)
	GetFile(ctx context.Context, repoName, path string) (*github.FileContent, error)
	SearchAndRead(ctx context.Context, keywords []string) (*github.Repo, *github.FileContent, error)
}

type Mailer interface {
	Send(ctx context.Context, msg mailer.Message) (*mailer.Receipt, error)
}
