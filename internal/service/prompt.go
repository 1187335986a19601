package service

import (
	"slices"
	"strings"

	"github.com/xiaot623/thinkarr/internal/domain"
)

var serviceCapabilities = map[domain.ServiceName]string{
	domain.ServicePlex:      "Plex (library search, watch history, on deck)",
	domain.ServiceSonarr:    "Sonarr (TV show management, calendar, queue)",
	domain.ServiceRadarr:    "Radarr (movie management, queue)",
	domain.ServiceOverseerr: "Overseerr (media requests)",
}

const promptIntro = `You are Thinkarr, a friendly and helpful media management assistant. You help users look after their media libraries and find something new to watch.`

const promptGuidelines = `Guidelines:
- Keep answers short and direct.
- Never assume a title is or is not available. Check the media library first with the plex_check_availability tool.
- When a title is missing from the library, offer to look it up in Overseerr with the overseerr_search tool to see whether it has already been requested.
- When a title has not been requested yet, offer to request it with the overseerr_request_movie or overseerr_request_tv tool.
- When a title is requested but not yet available, offer to look at the download queues with the radarr_get_queue or sonarr_get_queue tool.
- When talking about a movie or show, include the year, rating and a short synopsis if you have them.
- Format replies with markdown: bold titles, bullet lists for several results.
- If a request needs a service that is not configured, tell the user which service has to be set up.
- Stay on the topic of media. Opinions on whether a movie or show is worth watching are welcome; unrelated questions are not.`

// SystemPrompt builds the system message for the given configured services.
func SystemPrompt(services []domain.ServiceName) string {
	var sb strings.Builder
	sb.WriteString(promptIntro)
	sb.WriteString("\n\n")

	var listed []string
	for _, name := range domain.AllServices {
		if !slices.Contains(services, name) {
			continue
		}
		listed = append(listed, "- "+serviceCapabilities[name])
	}
	if len(listed) == 0 {
		sb.WriteString("No media services are currently configured.")
	} else {
		sb.WriteString("You have access to the following services:\n")
		sb.WriteString(strings.Join(listed, "\n"))
	}

	sb.WriteString("\n\n")
	sb.WriteString(promptGuidelines)
	return sb.String()
}
