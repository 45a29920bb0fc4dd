// Package source turns command-line arguments into pipeline inputs.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var ErrUnsupportedSource = errors.New("unsupported source")

type Kind string

const (
	KindFile    Kind = "file"
	KindYouTube Kind = "youtube"
)

// Source is one stream to transcribe. Location is a local path for files and the canonical
// watch URL for YouTube videos.
type Source struct {
	Raw      string
	Kind     Kind
	StreamID string
	Location string
}

func (s Source) IsRemote() bool {
	return s.Kind == KindYouTube
}

// Fetcher downloads a remote source into dir and returns the local audio path.
type Fetcher interface {
	Fetch(ctx context.Context, src Source, dir string) (string, error)
}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{6,20}$`)

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func Parse(arg string) (Source, error) {
	raw := strings.TrimSpace(arg)
	if raw == "" {
		return Source{}, fmt.Errorf("empty argument: %w", ErrUnsupportedSource)
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		id, err := youTubeVideoID(raw)
		if err != nil {
			return Source{}, err
		}
		return Source{Raw: raw, Kind: KindYouTube, StreamID: id, Location: WatchURL(id)}, nil
	}

	base := filepath.Base(raw)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	if id == "" || id == "." || id == string(filepath.Separator) {
		return Source{}, fmt.Errorf("%q has no usable file name: %w", raw, ErrUnsupportedSource)
	}
	return Source{Raw: raw, Kind: KindFile, StreamID: id, Location: raw}, nil
}

func youTubeVideoID(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%q: %w: %v", raw, ErrUnsupportedSource, err)
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "m.", "music."} {
		host = strings.TrimPrefix(host, prefix)
	}

	var id string
	switch host {
	case "youtu.be":
		id = strings.Trim(u.Path, "/")
	case "youtube.com":
		path := strings.Trim(u.Path, "/")
		switch {
		case path == "watch":
			id = u.Query().Get("v")
		case strings.HasPrefix(path, "shorts/"), strings.HasPrefix(path, "live/"), strings.HasPrefix(path, "embed/"):
			id = path[strings.Index(path, "/")+1:]
		}
	default:
		return "", fmt.Errorf("%q is not a YouTube URL: %w", raw, ErrUnsupportedSource)
	}
	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("%q has no video id: %w", raw, ErrUnsupportedSource)
	}
	return id, nil
}
