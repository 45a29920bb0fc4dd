// Package collector searches YouTube for candidate videos and stores each result page on disk
// so a later transcribe run can pick them up.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/foxseedlab/chunkscribe/internal/logging"
	"github.com/foxseedlab/chunkscribe/internal/source"
)

var ErrNoQueryTerms = errors.New("query group has no terms")

// QueryGroup is a set of synonyms searched together as "a|b|c".
type QueryGroup struct {
	Name  string
	Terms []string
}

func (g QueryGroup) Query() string {
	return strings.Join(g.Terms, "|")
}

// Slug names the group's result files.
func (g QueryGroup) Slug() string {
	name := g.Name
	if name == "" {
		name = strings.Join(g.Terms, "-")
	}
	return slugify(name)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
	if slug == "" {
		return "query"
	}
	return slug
}

// ParseQueryGroup reads "name=term1,term2" or "term1,term2".
func ParseQueryGroup(arg string) (QueryGroup, error) {
	var g QueryGroup
	terms := arg
	if name, rest, ok := strings.Cut(arg, "="); ok {
		g.Name = strings.TrimSpace(name)
		terms = rest
	}
	for _, t := range strings.Split(terms, ",") {
		if t = strings.TrimSpace(t); t != "" {
			g.Terms = append(g.Terms, t)
		}
	}
	if len(g.Terms) == 0 {
		return QueryGroup{}, fmt.Errorf("%q: %w", arg, ErrNoQueryTerms)
	}
	return g, nil
}

type Video struct {
	ID           string `json:"video_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ChannelTitle string `json:"channel"`
	PublishedAt  string `json:"publish_time"`
	URL          string `json:"url"`
}

// Page is one search response. Raw is the response body as returned by the API and is what
// gets stored.
type Page struct {
	NextPageToken string
	Videos        []Video
	Raw           []byte
}

type Searcher interface {
	Search(ctx context.Context, query, pageToken string, maxResults int) (*Page, error)
}

type Collector struct {
	searcher   Searcher
	dir        string
	maxResults int
	maxPages   int
	pause      time.Duration
}

const pageFetchPause = 300 * time.Millisecond

func New(searcher Searcher, dir string, maxResults, maxPages int) *Collector {
	return &Collector{
		searcher:   searcher,
		dir:        dir,
		maxResults: maxResults,
		maxPages:   maxPages,
		pause:      pageFetchPause,
	}
}

// PageFileName is the stored name of one result page; page is 1-based.
func PageFileName(slug string, page int) string {
	return fmt.Sprintf("%s_page_%02d.json", slug, page)
}

// Collect runs every group and returns the written page files in order.
func (c *Collector) Collect(ctx context.Context, groups []QueryGroup) ([]string, error) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, g := range groups {
		files, err := c.collectGroup(ctx, g)
		written = append(written, files...)
		if err != nil {
			return written, fmt.Errorf("collect %s: %w", g.Slug(), err)
		}
	}
	return written, nil
}

func (c *Collector) collectGroup(ctx context.Context, g QueryGroup) ([]string, error) {
	logger := logging.WithComponent("collector")
	if len(g.Terms) == 0 {
		return nil, ErrNoQueryTerms
	}
	var written []string
	token := ""
	for page := 1; page <= c.maxPages; page++ {
		if page > 1 {
			select {
			case <-ctx.Done():
				return written, ctx.Err()
			case <-time.After(c.pause):
			}
		}
		res, err := c.searcher.Search(ctx, g.Query(), token, c.maxResults)
		if err != nil {
			return written, err
		}
		path := filepath.Join(c.dir, PageFileName(g.Slug(), page))
		if err := os.WriteFile(path, res.Raw, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
		logger.Info().
			Str("query", g.Query()).
			Int("page", page).
			Int("videos", len(res.Videos)).
			Str("path", path).
			Msg("search page stored")

		if res.NextPageToken == "" {
			break
		}
		token = res.NextPageToken
	}
	return written, nil
}

type storedPage struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			PublishedAt  string `json:"publishedAt"`
		} `json:"snippet"`
	} `json:"items"`
}

// LoadVideos reads every stored page in dir, in file name order, and returns the videos with
// duplicates removed. The first occurrence of a video id wins.
func LoadVideos(dir string) ([]Video, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	seen := make(map[string]struct{})
	var videos []Video
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		var page storedPage
		if err := json.Unmarshal(b, &page); err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(f), err)
		}
		for _, item := range page.Items {
			id := item.ID.VideoID
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			videos = append(videos, Video{
				ID:           id,
				Title:        item.Snippet.Title,
				Description:  item.Snippet.Description,
				ChannelTitle: item.Snippet.ChannelTitle,
				PublishedAt:  item.Snippet.PublishedAt,
				URL:          source.WatchURL(id),
			})
		}
	}
	return videos, nil
}
