package github

import (
	"context"
	"strings"

	"pamubot/app/config"

	gh "github.com/google/go-github/v66/github"
	"github.com/samber/do"
	"github.com/samber/oops"
)

type Repo struct {
	Name        string
	Description string
	Language    string
	Stars       int
	Updated     string
	URL         string
	Matches     int
}

type FileContent struct {
	RepoName string
	Path     string
	Branch   string
	Content  string
}

// Client exposes the subject's GitHub repositories.
type Client struct {
	api  *gh.Client
	user string
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Github.Token, cfg.Github.User), nil
}

func New(token, user string) *Client {
	api := gh.NewClient(nil)
	if token != "" {
		api = api.WithAuthToken(token)
	}

	return &Client{
		api:  api,
		user: user,
	}
}

func (c *Client) List(ctx context.Context, limit int) ([]Repo, error) {
	repos, _, err := c.api.Repositories.ListByUser(ctx, c.user, &gh.RepositoryListByUserOptions{
		Sort:        "updated",
		ListOptions: gh.ListOptions{PerPage: limit},
	})
	if err != nil {
		return nil, oops.Wrapf(err, "failed to list repositories")
	}

	result := make([]Repo, 0, len(repos))
	for _, repo := range repos {
		result = append(result, toRepo(repo))
	}

	return result, nil
}

func (c *Client) Search(ctx context.Context, keywords []string) ([]Repo, error) {
	repos, _, err := c.api.Repositories.ListByUser(ctx, c.user, &gh.RepositoryListByUserOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, oops.Wrapf(err, "failed to list repositories")
	}

	var result []Repo

	for _, repo := range repos {
		haystack := strings.ToLower(repo.GetName() + " " + repo.GetDescription())

		matches := 0
		for _, keyword := range keywords {
			if strings.Contains(haystack, strings.ToLower(keyword)) {
				matches++
			}
		}

		if matches > 0 {
			item := toRepo(repo)
			item.Matches = matches
			result = append(result, item)
		}
	}

	return result, nil
}

func (c *Client) GetReadme(ctx context.Context, repoName string) (*FileContent, error) {
	readme, _, err := c.api.Repositories.GetReadme(ctx, c.user, repoName, nil)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to get README for %s", repoName)
	}

	content, err := readme.GetContent()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to decode README for %s", repoName)
	}

	return &FileContent{
		RepoName: repoName,
		Path:     readme.GetPath(),
		Branch:   "main",
		Content:  content,
	}, nil
}

func (c *Client) GetFile(ctx context.Context, repoName, path string) (*FileContent, error) {
	file, _, _, err := c.api.Repositories.GetContents(ctx, c.user, repoName, path, nil)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to get %s/%s", repoName, path)
	}
	if file == nil {
		return nil, oops.Errorf("%s/%s is not a file", repoName, path)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, oops.Wrapf(err, "failed to decode %s/%s", repoName, path)
	}

	return &FileContent{
		RepoName: repoName,
		Path:     path,
		Branch:   "main",
		Content:  content,
	}, nil
}

// SearchAndRead finds the best matching repository and returns it together
// with its README.
func (c *Client) SearchAndRead(ctx context.Context, keywords []string) (*Repo, *FileContent, error) {
	repos, err := c.Search(ctx, keywords)
	if err != nil {
		return nil, nil, err
	}
	if len(repos) == 0 {
		return nil, nil, oops.Errorf("no repositories matching %s", strings.Join(keywords, ", "))
	}

	best := repos[0]
	for _, repo := range repos[1:] {
		if repo.Matches > best.Matches {
			best = repo
		}
	}

	readme, err := c.GetReadme(ctx, best.Name)
	if err != nil {
		// Repo without a README is still a useful result.
		return &best, nil, nil
	}

	return &best, readme, nil
}

func toRepo(repo *gh.Repository) Repo {
	return Repo{
		Name:        repo.GetName(),
		Description: repo.GetDescription(),
		Language:    repo.GetLanguage(),
		Stars:       repo.GetStargazersCount(),
		Updated:     repo.GetUpdatedAt().String(),
		URL:         repo.GetHTMLURL(),
	}
}
