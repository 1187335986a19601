package media

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// Movie is a Radarr movie summary.
type Movie struct {
	ID        int    `json:"id,omitempty"`
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
	Overview  string `json:"overview,omitempty"`
	Status    string `json:"status,omitempty"`
	Monitored bool   `json:"monitored"`
	HasFile   bool   `json:"hasFile"`
	TmdbID    int    `json:"tmdbId,omitempty"`
}

// MovieQueueItem is a movie download in progress.
type MovieQueueItem struct {
	MovieTitle string  `json:"movieTitle"`
	Status     string  `json:"status"`
	TimeLeft   string  `json:"timeLeft"`
	Size       float64 `json:"size"`
	SizeLeft   float64 `json:"sizeleft"`
}

type radarrMovie struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	Overview  string `json:"overview"`
	Status    string `json:"status"`
	Monitored bool   `json:"monitored"`
	HasFile   bool   `json:"hasFile"`
	TmdbID    int    `json:"tmdbId"`
}

// Radarr talks to a Radarr v3 API.
type Radarr struct {
	c *client
}

// NewRadarr creates a Radarr client.
func NewRadarr(creds CredentialSource, opts Options) *Radarr {
	return &Radarr{c: newClient(domain.ServiceRadarr, "Radarr", "X-Api-Key", "/api/v3", creds, opts)}
}

// SearchMovie looks up movies by title.
func (r *Radarr) SearchMovie(ctx context.Context, term string) ([]Movie, error) {
	var data []radarrMovie
	if err := r.c.get(ctx, "/movie/lookup", url.Values{"term": {term}}, &data); err != nil {
		return nil, err
	}
	if len(data) > 10 {
		data = data[:10]
	}
	out := make([]Movie, 0, len(data))
	for _, m := range data {
		movie := toMovie(m)
		movie.Overview = truncate(m.Overview, overviewLimit)
		movie.TmdbID = m.TmdbID
		out = append(out, movie)
	}
	return out, nil
}

// ListMovies lists every managed movie.
func (r *Radarr) ListMovies(ctx context.Context) ([]Movie, error) {
	var data []radarrMovie
	if err := r.c.get(ctx, "/movie", nil, &data); err != nil {
		return nil, err
	}
	out := make([]Movie, 0, len(data))
	for _, m := range data {
		out = append(out, toMovie(m))
	}
	return out, nil
}

// Queue lists movie downloads.
func (r *Radarr) Queue(ctx context.Context) ([]MovieQueueItem, error) {
	var data struct {
		Records []struct {
			Status   string  `json:"status"`
			TimeLeft string  `json:"timeleft"`
			Size     float64 `json:"size"`
			SizeLeft float64 `json:"sizeleft"`
			Movie    *titled `json:"movie"`
		} `json:"records"`
	}
	q := url.Values{"pageSize": {"20"}, "includeMovie": {"true"}}
	if err := r.c.get(ctx, "/queue", q, &data); err != nil {
		return nil, err
	}
	out := make([]MovieQueueItem, 0, len(data.Records))
	for _, rec := range data.Records {
		item := MovieQueueItem{
			MovieTitle: "Unknown",
			Status:     rec.Status,
			TimeLeft:   rec.TimeLeft,
			Size:       rec.Size,
			SizeLeft:   rec.SizeLeft,
		}
		if rec.Movie != nil {
			item.MovieTitle = orUnknown(rec.Movie.Title)
		}
		out = append(out, item)
	}
	return out, nil
}

// MonitorMovie turns monitoring on for a managed movie.
func (r *Radarr) MonitorMovie(ctx context.Context, movieID int) (*ActionResult, error) {
	path := fmt.Sprintf("/movie/%d", movieID)
	var movie map[string]any
	if err := r.c.get(ctx, path, nil, &movie); err != nil {
		return nil, err
	}
	movie["monitored"] = true
	if err := r.c.do(ctx, http.MethodPut, path, nil, movie, nil); err != nil {
		return &ActionResult{Success: false, Message: err.Error()}, nil
	}
	title, _ := movie["title"].(string)
	return &ActionResult{Success: true, Message: fmt.Sprintf("Now monitoring %s", orUnknown(title))}, nil
}

// Ping checks the system status endpoint.
func (r *Radarr) Ping(ctx context.Context) error {
	return r.c.get(ctx, "/system/status", nil, nil)
}

func toMovie(m radarrMovie) Movie {
	return Movie{
		ID:        m.ID,
		Title:     m.Title,
		Year:      m.Year,
		Status:    m.Status,
		Monitored: m.Monitored,
		HasFile:   m.HasFile,
	}
}
