package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/thinkarr/internal/domain"
)

type staticCreds map[domain.ServiceName]domain.ServiceCredentials

func (s staticCreds) Service(_ context.Context, name domain.ServiceName) (domain.ServiceCredentials, error) {
	creds, ok := s[name]
	if !ok {
		return domain.ServiceCredentials{}, fmt.Errorf("%s: %w", name, domain.ErrServiceNotConfigured)
	}
	return creds, nil
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

func TestPlexSearchLibrary(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hubs/search", r.URL.Path)
		assert.Equal(t, "Inception", r.URL.Query().Get("query"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "plex-token", r.Header.Get("X-Plex-Token"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		writeJSON(w, `{"MediaContainer":{"Hub":[
			{"type":"movie","Metadata":[{"title":"Inception","year":2010,"summary":"`+strings.Repeat("x", 300)+`","rating":8.8,"key":"/library/metadata/1"}]},
			{"type":"show","Metadata":[]}
		]}}`)
	})
	plex := NewPlex(staticCreds{domain.ServicePlex: {URL: srv.URL, Key: "plex-token"}}, Options{})

	results, err := plex.SearchLibrary(context.Background(), "Inception")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Inception", results[0].Title)
	assert.Equal(t, 2010, results[0].Year)
	assert.Equal(t, "movie", results[0].Type)
	assert.Len(t, results[0].Summary, 200)
}

func TestPlexCheckAvailability(t *testing.T) {
	var items []string
	for i := range 7 {
		items = append(items, fmt.Sprintf(`{"title":"Alien %d","type":"movie","key":"/k/%d"}`, i, i))
	}
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"MediaContainer":{"Hub":[{"type":"movie","Metadata":[`+strings.Join(items, ",")+`]}]}}`)
	})
	plex := NewPlex(staticCreds{domain.ServicePlex: {URL: srv.URL, Key: "t"}}, Options{})

	avail, err := plex.CheckAvailability(context.Background(), "Alien")
	require.NoError(t, err)
	assert.True(t, avail.Available)
	assert.Len(t, avail.Results, 5)

	empty := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"MediaContainer":{}}`)
	})
	plex = NewPlex(staticCreds{domain.ServicePlex: {URL: empty.URL, Key: "t"}}, Options{})
	avail, err = plex.CheckAvailability(context.Background(), "Nothing")
	require.NoError(t, err)
	assert.False(t, avail.Available)
	assert.Empty(t, avail.Results)
}

func TestPlexOnDeckErrors(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/library/onDeck", r.URL.Path)
		w.WriteHeader(http.StatusUnauthorized)
	})
	plex := NewPlex(staticCreds{domain.ServicePlex: {URL: srv.URL, Key: "bad"}}, Options{})

	_, err := plex.OnDeck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Plex API error: HTTP 401")

	unconfigured := NewPlex(staticCreds{}, Options{})
	_, err = unconfigured.RecentlyAdded(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServiceNotConfigured)
}

func TestSonarrCalendarAndQueue(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "sonarr-key", r.Header.Get("X-Api-Key"))
		switch r.URL.Path {
		case "/api/v3/calendar":
			assert.Equal(t, "2024-03-01", r.URL.Query().Get("start"))
			assert.Equal(t, "2024-03-04", r.URL.Query().Get("end"))
			writeJSON(w, `[{"title":"Pilot","seasonNumber":1,"episodeNumber":1,"airDateUtc":"2024-03-02T01:00:00Z","hasFile":false,"series":{"title":"Shogun"}},
				{"title":"Orphan","seasonNumber":2,"episodeNumber":3}]`)
		case "/api/v3/queue":
			assert.Equal(t, "20", r.URL.Query().Get("pageSize"))
			writeJSON(w, `{"records":[{"status":"downloading","timeleft":"00:10:00","size":1000,"sizeleft":250,"series":{"title":"Shogun"},"episode":{"title":"Pilot"}}]}`)
		default:
			http.NotFound(w, r)
		}
	})
	sonarr := NewSonarr(staticCreds{domain.ServiceSonarr: {URL: srv.URL, Key: "sonarr-key"}}, Options{})
	sonarr.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	entries, err := sonarr.Calendar(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Shogun", entries[0].SeriesTitle)
	assert.Equal(t, "Unknown", entries[1].SeriesTitle)

	queue, err := sonarr.Queue(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, "Pilot", queue[0].EpisodeTitle)
	assert.Equal(t, 250.0, queue[0].SizeLeft)
}

func TestSonarrSearchSeriesLimitsResults(t *testing.T) {
	var series []string
	for i := range 12 {
		series = append(series, fmt.Sprintf(`{"title":"Show %d","year":2000,"tvdbId":%d,"statistics":{"seasonCount":3}}`, i, 100+i))
	}
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/series/lookup", r.URL.Path)
		writeJSON(w, "["+strings.Join(series, ",")+"]")
	})
	sonarr := NewSonarr(staticCreds{domain.ServiceSonarr: {URL: srv.URL, Key: "k"}}, Options{})

	results, err := sonarr.SearchSeries(context.Background(), "show")
	require.NoError(t, err)
	require.Len(t, results, 10)
	assert.Equal(t, 100, results[0].TvdbID)
	assert.Equal(t, 3, results[0].SeasonCount)
}

func TestRadarrMonitorMovie(t *testing.T) {
	var putBody map[string]any
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/movie/42", r.URL.Path)
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, `{"id":42,"title":"Dune","monitored":false,"qualityProfileId":4}`)
		case http.MethodPut:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&putBody))
			writeJSON(w, `{}`)
		}
	})
	radarr := NewRadarr(staticCreds{domain.ServiceRadarr: {URL: srv.URL, Key: "k"}}, Options{})

	result, err := radarr.MonitorMovie(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Now monitoring Dune", result.Message)
	assert.Equal(t, true, putBody["monitored"])
	assert.Equal(t, 4.0, putBody["qualityProfileId"])
}

func TestOverseerrSearchAndRequests(t *testing.T) {
	var requestBody map[string]any
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "over-key", r.Header.Get("X-Api-Key"))
		switch {
		case r.URL.Path == "/api/v1/search":
			writeJSON(w, `{"results":[
				{"id":1,"mediaType":"movie","title":"Arrival","releaseDate":"2016-11-11","mediaInfo":{"status":5}},
				{"id":2,"mediaType":"tv","name":"Severance","firstAirDate":"2022-02-18"},
				{"id":3,"mediaType":"movie","title":"Heat","mediaInfo":{"status":9}}]}`)
		case r.URL.Path == "/api/v1/request" && r.Method == http.MethodPost:
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&requestBody))
			if requestBody["mediaId"] == 999.0 {
				w.WriteHeader(http.StatusConflict)
				return
			}
			writeJSON(w, `{"id":10}`)
		case r.URL.Path == "/api/v1/request":
			writeJSON(w, `{"results":[{"id":10,"type":"movie","status":2,"createdAt":"2024-01-01","media":{"title":"Arrival"},"requestedBy":{"displayName":"sam"}},
				{"id":11,"type":"tv","status":7}]}`)
		}
	})
	over := NewOverseerr(staticCreds{domain.ServiceOverseerr: {URL: srv.URL, Key: "over-key"}}, Options{})
	ctx := context.Background()

	results, err := over.Search(ctx, "a")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "Available", results[0].MediaStatus)
	assert.Equal(t, "Severance", results[1].Title)
	assert.Equal(t, "2022-02-18", results[1].ReleaseDate)
	assert.Equal(t, "Unknown", results[1].MediaStatus)
	assert.Equal(t, "Not Requested", results[2].MediaStatus)

	res, err := over.RequestTV(ctx, 371980, []int{1, 2})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "tv", requestBody["mediaType"])
	assert.Equal(t, []any{1.0, 2.0}, requestBody["seasons"])

	res, err = over.RequestMovie(ctx, 999)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "HTTP 409")

	requests, err := over.ListRequests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "Approved", requests[0].Status)
	assert.Equal(t, "sam", requests[0].RequestedBy)
	assert.Equal(t, "Unknown", requests[1].Title)
	assert.Equal(t, "Unknown", requests[1].Status)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "ok", truncate("ok", 4))
}
