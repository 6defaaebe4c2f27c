package medium

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"pamubot/app/config"

	"github.com/mmcdole/gofeed"
	"github.com/samber/do"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"
)

const previewLength = 200

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

type Article struct {
	Title   string
	Date    string
	Link    string
	Preview string
	Matches int
}

type ArticleContent struct {
	Title   string
	Content string
}

// Client reads the subject's Medium publications via the public RSS feed.
type Client struct {
	feedURL    string
	parser     *gofeed.Parser
	httpClient *http.Client

	group singleflight.Group
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Medium.Username), nil
}

func New(username string) *Client {
	return &Client{
		feedURL: fmt.Sprintf("https://medium.com/feed/@%s", username),
		parser:  gofeed.NewParser(),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

func (c *Client) List(ctx context.Context, limit int) ([]Article, error) {
	feed, err := c.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	items := feed.Items
	if len(items) > limit {
		items = items[:limit]
	}

	articles := make([]Article, 0, len(items))
	for _, item := range items {
		articles = append(articles, Article{
			Title:   item.Title,
			Date:    item.Published,
			Link:    item.Link,
			Preview: preview(item.Description, previewLength),
		})
	}

	return articles, nil
}

func (c *Client) Search(ctx context.Context, keywords []string) ([]Article, error) {
	feed, err := c.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	var articles []Article

	for _, item := range feed.Items {
		haystack := strings.ToLower(item.Title + " " + item.Description)

		matches := 0
		for _, keyword := range keywords {
			if strings.Contains(haystack, strings.ToLower(keyword)) {
				matches++
			}
		}

		if matches > 0 {
			articles = append(articles, Article{
				Title:   item.Title,
				Date:    item.Published,
				Link:    item.Link,
				Preview: preview(item.Description, previewLength),
				Matches: matches,
			})
		}
	}

	return articles, nil
}

func (c *Client) GetContent(ctx context.Context, link string) (*ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; pamubot/1.0)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oops.Wrapf(err, "failed to fetch article")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, oops.Errorf("article fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, oops.Wrapf(err, "failed to read article body")
	}

	title, text := extractArticle(string(body))

	return &ArticleContent{
		Title:   title,
		Content: text,
	}, nil
}

// fetchFeed parses the RSS feed, collapsing concurrent fetches into one request.
func (c *Client) fetchFeed(ctx context.Context) (*gofeed.Feed, error) {
	result, err, _ := c.group.Do("feed", func() (any, error) {
		feed, err := c.parser.ParseURLWithContext(c.feedURL, ctx)
		if err != nil {
			return nil, oops.Wrapf(err, "failed to fetch medium feed")
		}
		return feed, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*gofeed.Feed), nil
}

func extractArticle(html string) (title, text string) {
	if m := regexp.MustCompile(`<title[^>]*>(.*?)</title>`).FindStringSubmatch(html); len(m) > 1 {
		title = strings.TrimSpace(stripTags(m[1]))
	}

	// Drop scripts and styles before stripping the remaining markup.
	html = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`).ReplaceAllString(html, " ")
	text = stripTags(html)

	return title, text
}

func stripTags(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

func preview(description string, maxLen int) string {
	text := stripTags(description)
	if len(text) > maxLen {
		text = text[:maxLen]
	}

	return text
}
