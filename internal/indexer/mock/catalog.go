package mock

import (
	"regexp"
	"strconv"
	"strings"
)

// MockSeries is a series that the mock site carries releases for.
type MockSeries struct {
	Title   string
	Seasons int
	// Episodes per season.
	Episodes int
}

// mockTVCatalog contains every series the mock site knows about.
var mockTVCatalog = []MockSeries{
	{Title: "Game of Thrones", Seasons: 8, Episodes: 10},
	{Title: "The 100", Seasons: 7, Episodes: 16},
	{Title: "Arrow", Seasons: 8, Episodes: 23},
	{Title: "Fairy Tail", Seasons: 9, Episodes: 48},
	{Title: "Breaking Bad", Seasons: 5, Episodes: 13},
	{Title: "The Expanse", Seasons: 6, Episodes: 13},
}

var queryPattern = regexp.MustCompile(`(?i)^(.+?)\s+S(\d{1,2})(?:E(\d{1,3}))?$`)

// parsedQuery is a search string split into series, season and episode.
type parsedQuery struct {
	Series  MockSeries
	Season  int
	Episode int // 0 for a season search
}

// parseQuery matches a query like "Game of Thrones S05E08" against the catalog.
func parseQuery(q string) (parsedQuery, bool) {
	m := queryPattern.FindStringSubmatch(strings.TrimSpace(q))
	if m == nil {
		return parsedQuery{}, false
	}
	season, _ := strconv.Atoi(m[2])
	episode := 0
	if m[3] != "" {
		episode, _ = strconv.Atoi(m[3])
	}

	for _, s := range mockTVCatalog {
		if !strings.EqualFold(s.Title, m[1]) {
			continue
		}
		if season < 1 || season > s.Seasons || episode > s.Episodes {
			return parsedQuery{}, false
		}
		return parsedQuery{Series: s, Season: season, Episode: episode}, true
	}
	return parsedQuery{}, false
}
