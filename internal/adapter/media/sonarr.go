package media

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// Series is a Sonarr series summary.
type Series struct {
	ID          int    `json:"id,omitempty"`
	Title       string `json:"title"`
	Year        int    `json:"year,omitempty"`
	Overview    string `json:"overview,omitempty"`
	Status      string `json:"status,omitempty"`
	SeasonCount int    `json:"seasonCount,omitempty"`
	Monitored   bool   `json:"monitored"`
	TvdbID      int    `json:"tvdbId,omitempty"`
}

// CalendarEntry is an upcoming episode.
type CalendarEntry struct {
	SeriesTitle   string `json:"seriesTitle"`
	EpisodeTitle  string `json:"episodeTitle"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	AirDateUTC    string `json:"airDateUtc"`
	HasFile       bool   `json:"hasFile"`
}

// EpisodeQueueItem is an episode download in progress.
type EpisodeQueueItem struct {
	SeriesTitle  string  `json:"seriesTitle"`
	EpisodeTitle string  `json:"episodeTitle"`
	Status       string  `json:"status"`
	TimeLeft     string  `json:"timeLeft"`
	Size         float64 `json:"size"`
	SizeLeft     float64 `json:"sizeleft"`
}

// ActionResult reports the outcome of a mutating call.
type ActionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type sonarrSeries struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Year        int    `json:"year"`
	Overview    string `json:"overview"`
	Status      string `json:"status"`
	SeasonCount int    `json:"seasonCount"`
	Monitored   bool   `json:"monitored"`
	TvdbID      int    `json:"tvdbId"`
	Statistics  *struct {
		SeasonCount int `json:"seasonCount"`
	} `json:"statistics"`
}

type titled struct {
	Title string `json:"title"`
}

// Sonarr talks to a Sonarr v3 API.
type Sonarr struct {
	c   *client
	now func() time.Time
}

// NewSonarr creates a Sonarr client.
func NewSonarr(creds CredentialSource, opts Options) *Sonarr {
	return &Sonarr{
		c:   newClient(domain.ServiceSonarr, "Sonarr", "X-Api-Key", "/api/v3", creds, opts),
		now: time.Now,
	}
}

// SearchSeries looks up series by title, including ones not yet managed.
func (s *Sonarr) SearchSeries(ctx context.Context, term string) ([]Series, error) {
	var data []sonarrSeries
	if err := s.c.get(ctx, "/series/lookup", url.Values{"term": {term}}, &data); err != nil {
		return nil, err
	}
	if len(data) > 10 {
		data = data[:10]
	}
	out := make([]Series, 0, len(data))
	for _, item := range data {
		series := toSeries(item)
		series.Overview = truncate(item.Overview, overviewLimit)
		series.TvdbID = item.TvdbID
		out = append(out, series)
	}
	return out, nil
}

// ListSeries lists every managed series.
func (s *Sonarr) ListSeries(ctx context.Context) ([]Series, error) {
	var data []sonarrSeries
	if err := s.c.get(ctx, "/series", nil, &data); err != nil {
		return nil, err
	}
	out := make([]Series, 0, len(data))
	for _, item := range data {
		out = append(out, toSeries(item))
	}
	return out, nil
}

// Calendar lists episodes airing within the next days.
func (s *Sonarr) Calendar(ctx context.Context, days int) ([]CalendarEntry, error) {
	if days <= 0 {
		days = 7
	}
	start := s.now().UTC()
	end := start.AddDate(0, 0, days)
	q := url.Values{
		"start":         {start.Format(time.DateOnly)},
		"end":           {end.Format(time.DateOnly)},
		"includeSeries": {"true"},
	}

	var data []struct {
		Title         string  `json:"title"`
		SeasonNumber  int     `json:"seasonNumber"`
		EpisodeNumber int     `json:"episodeNumber"`
		AirDateUTC    string  `json:"airDateUtc"`
		HasFile       bool    `json:"hasFile"`
		Series        *titled `json:"series"`
	}
	if err := s.c.get(ctx, "/calendar", q, &data); err != nil {
		return nil, err
	}
	out := make([]CalendarEntry, 0, len(data))
	for _, e := range data {
		entry := CalendarEntry{
			SeriesTitle:   "Unknown",
			EpisodeTitle:  e.Title,
			SeasonNumber:  e.SeasonNumber,
			EpisodeNumber: e.EpisodeNumber,
			AirDateUTC:    e.AirDateUTC,
			HasFile:       e.HasFile,
		}
		if e.Series != nil {
			entry.SeriesTitle = orUnknown(e.Series.Title)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Queue lists episode downloads.
func (s *Sonarr) Queue(ctx context.Context) ([]EpisodeQueueItem, error) {
	var data struct {
		Records []struct {
			Status   string  `json:"status"`
			TimeLeft string  `json:"timeleft"`
			Size     float64 `json:"size"`
			SizeLeft float64 `json:"sizeleft"`
			Series   *titled `json:"series"`
			Episode  *titled `json:"episode"`
		} `json:"records"`
	}
	q := url.Values{"pageSize": {"20"}, "includeSeries": {"true"}, "includeEpisode": {"true"}}
	if err := s.c.get(ctx, "/queue", q, &data); err != nil {
		return nil, err
	}
	out := make([]EpisodeQueueItem, 0, len(data.Records))
	for _, r := range data.Records {
		item := EpisodeQueueItem{
			SeriesTitle:  "Unknown",
			EpisodeTitle: "Unknown",
			Status:       r.Status,
			TimeLeft:     r.TimeLeft,
			Size:         r.Size,
			SizeLeft:     r.SizeLeft,
		}
		if r.Series != nil {
			item.SeriesTitle = orUnknown(r.Series.Title)
		}
		if r.Episode != nil {
			item.EpisodeTitle = orUnknown(r.Episode.Title)
		}
		out = append(out, item)
	}
	return out, nil
}

// MonitorSeries turns monitoring on for a managed series.
func (s *Sonarr) MonitorSeries(ctx context.Context, seriesID int) (*ActionResult, error) {
	path := fmt.Sprintf("/series/%d", seriesID)
	var series map[string]any
	if err := s.c.get(ctx, path, nil, &series); err != nil {
		return nil, err
	}
	series["monitored"] = true
	if err := s.c.do(ctx, http.MethodPut, path, nil, series, nil); err != nil {
		return &ActionResult{Success: false, Message: err.Error()}, nil
	}
	title, _ := series["title"].(string)
	return &ActionResult{Success: true, Message: fmt.Sprintf("Now monitoring %s", orUnknown(title))}, nil
}

// Ping checks the system status endpoint.
func (s *Sonarr) Ping(ctx context.Context) error {
	return s.c.get(ctx, "/system/status", nil, nil)
}

func toSeries(item sonarrSeries) Series {
	count := item.SeasonCount
	if count == 0 && item.Statistics != nil {
		count = item.Statistics.SeasonCount
	}
	return Series{
		ID:          item.ID,
		Title:       item.Title,
		Year:        item.Year,
		Status:      item.Status,
		SeasonCount: count,
		Monitored:   item.Monitored,
	}
}
