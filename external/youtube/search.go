package youtube

import (
	"context"
	"fmt"

	"github.com/foxseedlab/chunkscribe/internal/collector"
	"github.com/foxseedlab/chunkscribe/internal/source"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// videoDurationMedium limits results to videos between 4 and 20 minutes.
const videoDurationMedium = "medium"

type Searcher struct {
	svc *youtube.Service
}

func NewSearcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Searcher, error) {
	all := append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Searcher{svc: svc}, nil
}

func (s *Searcher) Search(ctx context.Context, query, pageToken string, maxResults int) (*collector.Page, error) {
	call := s.svc.Search.List([]string{"id", "snippet"}).
		Q(query).
		Type("video").
		VideoDuration(videoDurationMedium).
		MaxResults(int64(maxResults)).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("youtube search %q: %w", query, err)
	}

	raw, err := resp.MarshalJSON()
	if err != nil {
		return nil, err
	}
	page := &collector.Page{NextPageToken: resp.NextPageToken, Raw: raw}
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" {
			continue
		}
		v := collector.Video{ID: item.Id.VideoId, URL: source.WatchURL(item.Id.VideoId)}
		if item.Snippet != nil {
			v.Title = item.Snippet.Title
			v.Description = item.Snippet.Description
			v.ChannelTitle = item.Snippet.ChannelTitle
			v.PublishedAt = item.Snippet.PublishedAt
		}
		page.Videos = append(page.Videos, v)
	}
	return page, nil
}
