package media

import (
	"context"
	"net/http"
	"net/url"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// SearchResult is an Overseerr search hit.
type SearchResult struct {
	ID          int    `json:"id"`
	MediaType   string `json:"mediaType"`
	Title       string `json:"title"`
	Overview    string `json:"overview,omitempty"`
	ReleaseDate string `json:"releaseDate,omitempty"`
	MediaStatus string `json:"mediaStatus"`
}

// MediaRequest is an Overseerr request summary.
type MediaRequest struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	RequestedBy string `json:"requestedBy"`
	CreatedAt   string `json:"createdAt"`
}

// Overseerr talks to an Overseerr v1 API.
type Overseerr struct {
	c *client
}

// NewOverseerr creates an Overseerr client.
func NewOverseerr(creds CredentialSource, opts Options) *Overseerr {
	return &Overseerr{c: newClient(domain.ServiceOverseerr, "Overseerr", "X-Api-Key", "/api/v1", creds, opts)}
}

// Search finds movies and shows along with their request state.
func (o *Overseerr) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var data struct {
		Results []struct {
			ID           int    `json:"id"`
			MediaType    string `json:"mediaType"`
			Title        string `json:"title"`
			Name         string `json:"name"`
			Overview     string `json:"overview"`
			ReleaseDate  string `json:"releaseDate"`
			FirstAirDate string `json:"firstAirDate"`
			MediaInfo    *struct {
				Status int `json:"status"`
			} `json:"mediaInfo"`
		} `json:"results"`
	}
	q := url.Values{"query": {query}, "page": {"1"}, "language": {"en"}}
	if err := o.c.get(ctx, "/search", q, &data); err != nil {
		return nil, err
	}
	results := data.Results
	if len(results) > 10 {
		results = results[:10]
	}
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		item := SearchResult{
			ID:          r.ID,
			MediaType:   r.MediaType,
			Title:       firstNonEmpty(r.Title, r.Name),
			Overview:    truncate(r.Overview, overviewLimit),
			ReleaseDate: firstNonEmpty(r.ReleaseDate, r.FirstAirDate),
			MediaStatus: "Unknown",
		}
		if r.MediaInfo != nil {
			item.MediaStatus = mediaStatusLabel(r.MediaInfo.Status)
		}
		out = append(out, item)
	}
	return out, nil
}

// RequestMovie submits a movie request by TMDB id. Upstream rejections are
// reported in the result rather than as an error.
func (o *Overseerr) RequestMovie(ctx context.Context, tmdbID int) (*ActionResult, error) {
	body := map[string]any{"mediaType": "movie", "mediaId": tmdbID}
	if err := o.c.do(ctx, http.MethodPost, "/request", nil, body, nil); err != nil {
		return &ActionResult{Success: false, Message: err.Error()}, nil
	}
	return &ActionResult{Success: true, Message: "Movie request submitted successfully"}, nil
}

// RequestTV submits a series request by TVDB id. No seasons means all seasons.
func (o *Overseerr) RequestTV(ctx context.Context, tvdbID int, seasons []int) (*ActionResult, error) {
	body := map[string]any{"mediaType": "tv", "mediaId": tvdbID}
	if len(seasons) > 0 {
		body["seasons"] = seasons
	}
	if err := o.c.do(ctx, http.MethodPost, "/request", nil, body, nil); err != nil {
		return &ActionResult{Success: false, Message: err.Error()}, nil
	}
	return &ActionResult{Success: true, Message: "TV show request submitted successfully"}, nil
}

// ListRequests lists the most recent requests.
func (o *Overseerr) ListRequests(ctx context.Context) ([]MediaRequest, error) {
	var data struct {
		Results []struct {
			ID        int    `json:"id"`
			Type      string `json:"type"`
			Status    int    `json:"status"`
			CreatedAt string `json:"createdAt"`
			Media     *struct {
				Title string `json:"title"`
				Name  string `json:"name"`
			} `json:"media"`
			RequestedBy *struct {
				DisplayName string `json:"displayName"`
			} `json:"requestedBy"`
		} `json:"results"`
	}
	q := url.Values{"take": {"20"}, "skip": {"0"}, "sort": {"added"}}
	if err := o.c.get(ctx, "/request", q, &data); err != nil {
		return nil, err
	}
	out := make([]MediaRequest, 0, len(data.Results))
	for _, r := range data.Results {
		req := MediaRequest{
			ID:          r.ID,
			Type:        r.Type,
			Title:       "Unknown",
			Status:      requestStatusLabel(r.Status),
			RequestedBy: "Unknown",
			CreatedAt:   r.CreatedAt,
		}
		if r.Media != nil {
			req.Title = orUnknown(firstNonEmpty(r.Media.Title, r.Media.Name))
		}
		if r.RequestedBy != nil {
			req.RequestedBy = orUnknown(r.RequestedBy.DisplayName)
		}
		out = append(out, req)
	}
	return out, nil
}

// Ping checks the status endpoint.
func (o *Overseerr) Ping(ctx context.Context) error {
	return o.c.get(ctx, "/status", nil, nil)
}

func mediaStatusLabel(status int) string {
	switch status {
	case 1:
		return "Unknown"
	case 2:
		return "Pending"
	case 3:
		return "Processing"
	case 4:
		return "Partially Available"
	case 5:
		return "Available"
	default:
		return "Not Requested"
	}
}

func requestStatusLabel(status int) string {
	switch status {
	case 1:
		return "Pending Approval"
	case 2:
		return "Approved"
	case 3:
		return "Declined"
	default:
		return "Unknown"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
