package brain

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"pamubot/app/config"

	"github.com/samber/do"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	topN           = 3
	scoreThreshold = 2
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]`)

// Document is one retrieved knowledge-base entry.
type Document struct {
	SourcePath string
	Content    string
}

// Client retrieves documents from the on-disk personal knowledge base.
// Shortcut keys resolve through shortcuts.yaml at the brain root; free-text
// keywords fall back to scored search over markdown files.
type Client struct {
	root string
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return New(cfg.Brain.Root), nil
}

func New(root string) *Client {
	return &Client{root: root}
}

func (c *Client) Search(_ context.Context, shortcuts, keywords []string) ([]Document, error) {
	var results []Document

	shortcutMap, err := c.loadShortcuts()
	if err != nil {
		return nil, err
	}

	for _, key := range shortcuts {
		relPath, ok := shortcutMap[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}

		content, err := c.readFileSafe(relPath)
		if err != nil {
			continue
		}

		results = append(results, Document{
			SourcePath: relPath,
			Content:    content,
		})
	}

	if len(keywords) > 0 {
		scored, err := c.searchByKeywords(keywords)
		if err != nil {
			return nil, err
		}
		results = append(results, scored...)
	}

	return results, nil
}

// ShortcutKeys lists the configured shortcut names, for prompt construction.
func (c *Client) ShortcutKeys() []string {
	shortcutMap, err := c.loadShortcuts()
	if err != nil {
		return nil
	}

	keys := make([]string, 0, len(shortcutMap))
	for key := range shortcutMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return keys
}

func (c *Client) loadShortcuts() (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(c.root, "shortcuts.yaml"))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, oops.Wrapf(err, "failed to read shortcuts file")
	}

	var shortcuts map[string]string
	if err = yaml.Unmarshal(data, &shortcuts); err != nil {
		return nil, oops.Wrapf(err, "failed to parse shortcuts file")
	}

	return shortcuts, nil
}

// readFileSafe rejects paths that escape the brain root.
func (c *Client) readFileSafe(relPath string) (string, error) {
	absRoot, err := filepath.Abs(c.root)
	if err != nil {
		return "", oops.Wrapf(err, "failed to resolve brain root")
	}

	// Join cleans the path; require the separator so a sibling directory
	// sharing the root's name as a prefix does not slip through.
	fullPath := filepath.Join(absRoot, relPath)
	if !strings.HasPrefix(fullPath, absRoot+string(filepath.Separator)) {
		return "", oops.Errorf("path %s escapes brain root", relPath)
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", oops.Wrapf(err, "failed to read %s", relPath)
	}

	return string(data), nil
}

type scoredFile struct {
	relPath string
	content string
	score   int
}

func (c *Client) searchByKeywords(keywords []string) ([]Document, error) {
	queryTokens := tokenize(strings.Join(keywords, " "))
	if len(queryTokens) == 0 {
		return nil, nil
	}

	var scored []scoredFile

	err := filepath.Walk(c.root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || !strings.HasSuffix(info.Name(), ".md") {
			return nil //nolint:nilerr
		}

		relPath, err := filepath.Rel(c.root, path)
		if err != nil {
			return nil //nolint:nilerr
		}

		content, err := c.readFileSafe(relPath)
		if err != nil {
			return nil //nolint:nilerr
		}

		counts := make(map[string]int)
		for _, token := range tokenize(content) {
			counts[token]++
		}

		score := 0
		for _, token := range queryTokens {
			if counts[token] > 0 {
				score++
			}
		}

		if score >= scoreThreshold {
			scored = append(scored, scoredFile{
				relPath: relPath,
				content: content,
				score:   score,
			})
		}

		return nil
	})
	if err != nil {
		return nil, oops.Wrapf(err, "failed to walk brain root")
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}

	results := make([]Document, 0, len(scored))
	for _, file := range scored {
		results = append(results, Document{
			SourcePath: file.relPath,
			Content:    file.content,
		})
	}

	return results, nil
}

func tokenize(text string) []string {
	text = strings.ToLower(text)
	text = nonAlnum.ReplaceAllString(text, " ")

	return strings.Fields(text)
}
