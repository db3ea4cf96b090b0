package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/core/port"
)

const (
	defaultYouTubeBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultSearchTimeout  = 10 * time.Second
	watchURLPrefix        = "https://www.youtube.com/watch?v="
)

// YouTubeConfig configures the video search client.
type YouTubeConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// YouTubeClient proxies search queries to the YouTube Data API.
type YouTubeClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type youtubeSearchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type youtubeErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewYouTubeClient builds the API client. An API key is required; callers
// without one should fall back to the static searcher.
func NewYouTubeClient(cfg YouTubeConfig) (*YouTubeClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("youtube: API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultYouTubeBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSearchTimeout
	}

	return &YouTubeClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Search queries the API for videos matching the query.
func (yc *YouTubeClient) Search(ctx context.Context, query string, limit int) ([]domain.Video, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", fmt.Sprintf("%d", limit))
	params.Set("q", query)
	params.Set("key", yc.apiKey)

	endpoint := yc.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("youtube: create request: %w", err)
	}

	resp, err := yc.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube: search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("youtube: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr youtubeErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("youtube: API error %d: %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("youtube: API returned status %d", resp.StatusCode)
	}

	var parsed youtubeSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("youtube: decode response: %w", err)
	}

	videos := make([]domain.Video, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ID.VideoID == "" {
			continue
		}
		videos = append(videos, domain.Video{
			ID:        item.ID.VideoID,
			Title:     item.Snippet.Title,
			Channel:   item.Snippet.ChannelTitle,
			URL:       watchURLPrefix + item.ID.VideoID,
			Thumbnail: item.Snippet.Thumbnails.Default.URL,
		})
	}

	return videos, nil
}

var _ port.VideoSearcher = (*YouTubeClient)(nil)
