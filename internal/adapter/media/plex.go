package media

import (
	"context"
	"net/url"
	"strconv"

	"github.com/xiaot623/thinkarr/internal/domain"
)

// PlexItem is a library entry returned to the model.
type PlexItem struct {
	Title   string  `json:"title"`
	Year    int     `json:"year,omitempty"`
	Type    string  `json:"type"`
	Summary string  `json:"summary,omitempty"`
	Rating  float64 `json:"rating,omitempty"`
	Key     string  `json:"key"`
}

// Availability reports whether a title exists in the library.
type Availability struct {
	Available bool       `json:"available"`
	Results   []PlexItem `json:"results"`
}

type plexMetadata struct {
	Title   string  `json:"title"`
	Year    int     `json:"year"`
	Type    string  `json:"type"`
	Summary string  `json:"summary"`
	Rating  float64 `json:"rating"`
	Key     string  `json:"key"`
}

type plexContainer struct {
	MediaContainer struct {
		Hub []struct {
			Type     string         `json:"type"`
			Metadata []plexMetadata `json:"Metadata"`
		} `json:"Hub"`
		Metadata []plexMetadata `json:"Metadata"`
	} `json:"MediaContainer"`
}

// Plex talks to a Plex Media Server.
type Plex struct {
	c *client
}

// NewPlex creates a Plex client.
func NewPlex(creds CredentialSource, opts Options) *Plex {
	return &Plex{c: newClient(domain.ServicePlex, "Plex", "X-Plex-Token", "", creds, opts)}
}

// SearchLibrary searches every library section.
func (p *Plex) SearchLibrary(ctx context.Context, query string) ([]PlexItem, error) {
	var data plexContainer
	q := url.Values{"query": {query}, "limit": {"10"}}
	if err := p.c.get(ctx, "/hubs/search", q, &data); err != nil {
		return nil, err
	}
	results := []PlexItem{}
	for _, hub := range data.MediaContainer.Hub {
		for _, item := range hub.Metadata {
			entry := toPlexItem(item)
			if hub.Type != "" {
				entry.Type = hub.Type
			}
			results = append(results, entry)
		}
	}
	return results, nil
}

// CheckAvailability reports whether title has any library match.
func (p *Plex) CheckAvailability(ctx context.Context, title string) (*Availability, error) {
	results, err := p.SearchLibrary(ctx, title)
	if err != nil {
		return nil, err
	}
	if len(results) > 5 {
		results = results[:5]
	}
	return &Availability{Available: len(results) > 0, Results: results}, nil
}

// OnDeck lists in-progress items.
func (p *Plex) OnDeck(ctx context.Context) ([]PlexItem, error) {
	return p.list(ctx, "/library/onDeck")
}

// RecentlyAdded lists the newest library additions.
func (p *Plex) RecentlyAdded(ctx context.Context) ([]PlexItem, error) {
	return p.list(ctx, "/library/recentlyAdded")
}

// Ping checks the server identity endpoint.
func (p *Plex) Ping(ctx context.Context) error {
	return p.c.get(ctx, "/identity", nil, nil)
}

func (p *Plex) list(ctx context.Context, path string) ([]PlexItem, error) {
	var data plexContainer
	q := url.Values{
		"X-Plex-Container-Start": {"0"},
		"X-Plex-Container-Size":  {strconv.Itoa(10)},
	}
	if err := p.c.get(ctx, path, q, &data); err != nil {
		return nil, err
	}
	results := make([]PlexItem, 0, len(data.MediaContainer.Metadata))
	for _, item := range data.MediaContainer.Metadata {
		results = append(results, toPlexItem(item))
	}
	return results, nil
}

func toPlexItem(m plexMetadata) PlexItem {
	return PlexItem{
		Title:   m.Title,
		Year:    m.Year,
		Type:    m.Type,
		Summary: truncate(m.Summary, overviewLimit),
		Rating:  m.Rating,
		Key:     m.Key,
	}
}
