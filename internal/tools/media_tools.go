package tools

import (
	"context"

	"github.com/xiaot623/thinkarr/internal/adapter/media"
)

// PlexProvider is the library server capability set.
type PlexProvider interface {
	SearchLibrary(ctx context.Context, query string) ([]media.PlexItem, error)
	CheckAvailability(ctx context.Context, title string) (*media.Availability, error)
	OnDeck(ctx context.Context) ([]media.PlexItem, error)
	RecentlyAdded(ctx context.Context) ([]media.PlexItem, error)
}

// SonarrProvider is the TV automation capability set.
type SonarrProvider interface {
	SearchSeries(ctx context.Context, term string) ([]media.Series, error)
	ListSeries(ctx context.Context) ([]media.Series, error)
	Calendar(ctx context.Context, days int) ([]media.CalendarEntry, error)
	Queue(ctx context.Context) ([]media.EpisodeQueueItem, error)
	MonitorSeries(ctx context.Context, seriesID int) (*media.ActionResult, error)
}

// RadarrProvider is the movie automation capability set.
type RadarrProvider interface {
	SearchMovie(ctx context.Context, term string) ([]media.Movie, error)
	ListMovies(ctx context.Context) ([]media.Movie, error)
	Queue(ctx context.Context) ([]media.MovieQueueItem, error)
	MonitorMovie(ctx context.Context, movieID int) (*media.ActionResult, error)
}

// OverseerrProvider is the request service capability set.
type OverseerrProvider interface {
	Search(ctx context.Context, query string) ([]media.SearchResult, error)
	RequestMovie(ctx context.Context, tmdbID int) (*media.ActionResult, error)
	RequestTV(ctx context.Context, tvdbID int, seasons []int) (*media.ActionResult, error)
	ListRequests(ctx context.Context) ([]media.MediaRequest, error)
}

type noArgs struct{}

type plexQueryArgs struct {
	Query string `json:"query" jsonschema_description:"Search query (title, keyword, or actor name)"`
}

type plexTitleArgs struct {
	Title string `json:"title" jsonschema_description:"Title of the movie or TV show to check"`
}

// PlexTools are the Plex library tools.
func PlexTools(p PlexProvider) []Tool {
	return []Tool{
		Define("plex_search_library",
			"Search the Plex media library for movies, TV shows, or other content by title or keyword.",
			func(ctx context.Context, args plexQueryArgs) (any, error) {
				return p.SearchLibrary(ctx, args.Query)
			}),
		Define("plex_check_availability",
			"Check if a specific movie or TV show is available in the Plex library.",
			func(ctx context.Context, args plexTitleArgs) (any, error) {
				return p.CheckAvailability(ctx, args.Title)
			}),
		Define("plex_get_on_deck",
			"Get the list of shows and movies currently on deck (in progress) in Plex.",
			func(ctx context.Context, _ noArgs) (any, error) {
				return p.OnDeck(ctx)
			}),
		Define("plex_get_recently_added",
			"Get recently added content in the Plex library.",
			func(ctx context.Context, _ noArgs) (any, error) {
				return p.RecentlyAdded(ctx)
			}),
	}
}

type seriesTermArgs struct {
	Term string `json:"term" jsonschema_description:"Search term (TV show title)"`
}

type calendarArgs struct {
	Days int `json:"days,omitempty" jsonschema:"minimum=1,maximum=90" jsonschema_description:"Number of days to look ahead (default 7)"`
}

type seriesIDArgs struct {
	SeriesID int `json:"seriesId" jsonschema_description:"Sonarr series id from sonarr_list_series"`
}

// SonarrTools are the Sonarr TV tools.
func SonarrTools(s SonarrProvider) []Tool {
	return []Tool{
		Define("sonarr_search_series",
			"Search for TV series by title. Returns results from Sonarr's lookup, including series that are not monitored yet.",
			func(ctx context.Context, args seriesTermArgs) (any, error) {
				return s.SearchSeries(ctx, args.Term)
			}),
		Define("sonarr_list_series",
			"List all TV series currently managed by Sonarr.",
			func(ctx context.Context, _ noArgs) (any, error) {
				return s.ListSeries(ctx)
			}),
		Define("sonarr_get_calendar",
			"Get upcoming TV episode air dates from Sonarr.",
			func(ctx context.Context, args calendarArgs) (any, error) {
				return s.Calendar(ctx, args.Days)
			}),
		Define("sonarr_get_queue",
			"Get the current Sonarr download queue showing episodes being downloaded.",
			func(ctx context.Context, _ noArgs) (any, error) {
				return s.Queue(ctx)
			}),
		Define("sonarr_monitor_series",
			"Start monitoring a series already managed by Sonarr so new episodes are downloaded.",
			func(ctx context.Context, args seriesIDArgs) (any, error) {
				return s.MonitorSeries(ctx, args.SeriesID)
			}),
	}
}

type movieTermArgs struct {
	Term string `json:"term" jsonschema_description:"Search term (movie title)"`
}

type movieIDArgs struct {
	MovieID int `json:"movieId" jsonschema_description:"Radarr movie id from radarr_list_movies"`
}

// RadarrTools are the Radarr movie tools.
func RadarrTools(r RadarrProvider) []Tool {
	return []Tool{
		Define("radarr_search_movie",
			"Search for movies by title. Returns results from Radarr's lookup.",
			func(ctx context.Context, args movieTermArgs) (any, error) {
				return r.SearchMovie(ctx, args.Term)
			}),
		Define("radarr_list_movies",
			"List all movies currently managed by Radarr.",
			func(ctx context.Context, _ noArgs) (any, error) {
				return r.ListMovies(ctx)
			}),
		Define("radarr_get_queue",
			"Get the current Radarr download queue showing movies being downloaded.",
			func(ctx context.Context, _ noArgs) (any, error) {
				return r.Queue(ctx)
			}),
		Define("radarr_monitor_movie",
			"Start monitoring a movie already managed by Radarr so it is downloaded when available.",
			func(ctx context.Context, args movieIDArgs) (any, error) {
				return r.MonitorMovie(ctx, args.MovieID)
			}),
	}
}

type overseerrQueryArgs struct {
	Query string `json:"query" jsonschema_description:"Search query (movie or TV show title)"`
}

type requestMovieArgs struct {
	TmdbID int `json:"tmdbId" jsonschema_description:"TMDB ID of the movie to request"`
}

type requestTVArgs struct {
	TvdbID  int   `json:"tvdbId" jsonschema_description:"TVDB ID of the TV show to request"`
	Seasons []int `json:"seasons,omitempty" jsonschema_description:"Specific season numbers to request (omit for all)"`
}

// OverseerrTools are the Overseerr request tools.
func OverseerrTools(o OverseerrProvider) []Tool {
	return []Tool{
		Define("overseerr_search",
			"Search for movies or TV shows on Overseerr. Shows availability and request status.",
			func(ctx context.Context, args overseerrQueryArgs) (any, error) {
				return o.Search(ctx, args.Query)
			}),
		Define("overseerr_request_movie",
			"Request a movie via Overseerr. Use overseerr_search first to get the tmdbId.",
			func(ctx context.Context, args requestMovieArgs) (any, error) {
				return o.RequestMovie(ctx, args.TmdbID)
			}),
		Define("overseerr_request_tv",
			"Request a TV show via Overseerr. Use overseerr_search first to get the tvdbId.",
			func(ctx context.Context, args requestTVArgs) (any, error) {
				return o.RequestTV(ctx, args.TvdbID, args.Seasons)
			}),
		Define("overseerr_list_requests",
			"List recent media requests from Overseerr.",
			func(ctx context.Context, _ noArgs) (any, error) {
				return o.ListRequests(ctx)
			}),
	}
}
