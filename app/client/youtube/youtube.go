package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"pamubot/app/config"

	"github.com/mmcdole/gofeed"
	"github.com/samber/do"
	"github.com/samber/oops"
	"golang.org/x/sync/singleflight"
)

type Video struct {
	Title       string
	VideoID     string
	Link        string
	Published   string
	Description string
	Matches     int
}

// Client reads the subject's YouTube channel via the public videos feed and
// the timedtext captions endpoint.
type Client struct {
	feedURL    string
	parser     *gofeed.Parser
	httpClient *http.Client

	group singleflight.Group
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Youtube.ChannelID), nil
}

func New(channelID string) *Client {
	return &Client{
		feedURL: fmt.Sprintf("https://www.youtube.com/feeds/videos.xml?channel_id=%s", channelID),
		parser:  gofeed.NewParser(),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

func (c *Client) List(ctx context.Context, limit int) ([]Video, error) {
	feed, err := c.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	items := feed.Items
	if len(items) > limit {
		items = items[:limit]
	}

	videos := make([]Video, 0, len(items))
	for _, item := range items {
		videos = append(videos, itemToVideo(item))
	}

	return videos, nil
}

func (c *Client) Search(ctx context.Context, keywords []string) ([]Video, error) {
	feed, err := c.fetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	var videos []Video

	for _, item := range feed.Items {
		haystack := strings.ToLower(item.Title + " " + item.Description)

		matches := 0
		for _, keyword := range keywords {
			if strings.Contains(haystack, strings.ToLower(keyword)) {
				matches++
			}
		}

		if matches > 0 {
			video := itemToVideo(item)
			video.Matches = matches
			videos = append(videos, video)
		}
	}

	return videos, nil
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

func (c *Client) GetTranscript(ctx context.Context, videoID string) (string, error) {
	url := fmt.Sprintf("https://www.youtube.com/api/timedtext?lang=en&v=%s", videoID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", oops.Wrapf(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", oops.Wrapf(err, "failed to fetch transcript")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", oops.Errorf("transcript fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", oops.Wrapf(err, "failed to read transcript body")
	}

	var parsed timedText
	if err = xml.Unmarshal(body, &parsed); err != nil {
		return "", oops.Wrapf(err, "failed to parse transcript XML")
	}

	if len(parsed.Texts) == 0 {
		return "", oops.Errorf("no captions available for video %s", videoID)
	}

	lines := make([]string, 0, len(parsed.Texts))
	for _, t := range parsed.Texts {
		line := strings.TrimSpace(html.UnescapeString(t.Value))
		if line != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, " "), nil
}

func (c *Client) fetchFeed(ctx context.Context) (*gofeed.Feed, error) {
	result, err, _ := c.group.Do("feed", func() (any, error) {
		feed, err := c.parser.ParseURLWithContext(c.feedURL, ctx)
		if err != nil {
			return nil, oops.Wrapf(err, "failed to fetch youtube feed")
		}
		return feed, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*gofeed.Feed), nil
}

func itemToVideo(item *gofeed.Item) Video {
	video := Video{
		Title:     item.Title,
		Link:      item.Link,
		Published: item.Published,
	}

	if ext, ok := item.Extensions["yt"]; ok {
		if ids, ok := ext["videoId"]; ok && len(ids) > 0 {
			video.VideoID = ids[0].Value
		}
	}

	if len(item.Description) > 300 {
		video.Description = item.Description[:300]
	} else {
		video.Description = item.Description
	}

	return video
}
