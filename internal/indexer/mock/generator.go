package mock

import (
	"crypto/sha1" //nolint:gosec // SHA1 is the BitTorrent info hash size
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/slipstream/providercheck/internal/indexer/common"
)

// Release is one row as served by the mock site's JSON API.
type Release struct {
	Title    string `json:"title"`
	InfoHash string `json:"info_hash"`
	Magnet   string `json:"magnet,omitempty"`
	Download string `json:"download,omitempty"`
	Seeders  int    `json:"seeders"`
	Leechers int    `json:"leechers"`
	Size     string `json:"size"`
}

var mockTrackers = []string{"udp://tracker.opentrackr.org:1337/announce", "udp://open.stealth.si:80/announce"}

type quality struct {
	tag  string
	size string
}

var episodeQualities = []quality{
	{"2160p.WEB-DL.DDP5.1.HDR.H.265-MOCK", "6.2 GB"},
	{"1080p.WEB-DL.DDP5.1.H.264-MOCK", "2.4 GB"},
	{"720p.HDTV.x264-MOCK", "850 MB"},
}

var seasonQualities = []quality{
	{"1080p.BluRay.x264-MOCK", "38.5 GB"},
	{"720p.WEB-DL.x264-MOCK", "12 GB"},
}

// generateReleases creates the deterministic releases for a parsed query.
func generateReleases(baseURL string, q parsedQuery) []Release {
	title := sanitizeTitle(q.Series.Title)
	tag := fmt.Sprintf("S%02d", q.Season)
	qualities := seasonQualities
	if q.Episode > 0 {
		tag = fmt.Sprintf("S%02dE%02d", q.Season, q.Episode)
		qualities = episodeQualities
	}

	releases := make([]Release, 0, len(qualities))
	for i, ql := range qualities {
		name := fmt.Sprintf("%s.%s.%s", title, tag, ql.tag)
		r := Release{
			Title:    name,
			InfoHash: infoHash(name),
			Seeders:  120 - i*35,
			Leechers: 4 + i*3,
			Size:     ql.size,
		}
		// Every other release is served as a .torrent download rather than a magnet.
		if i%2 == 0 {
			r.Magnet = common.BuildMagnet(r.InfoHash, name, mockTrackers)
		} else {
			r.Download = fmt.Sprintf("%s/torrent/%s.torrent", strings.TrimRight(baseURL, "/"), r.InfoHash)
		}
		releases = append(releases, r)
	}
	return releases
}

// recentReleases returns the newest episode of every series, newest first.
func recentReleases(baseURL string) []Release {
	var out []Release
	for _, s := range mockTVCatalog {
		out = append(out, generateReleases(baseURL, parsedQuery{Series: s, Season: s.Seasons, Episode: s.Episodes})[0])
	}
	return out
}

func infoHash(name string) string {
	sum := sha1.Sum([]byte(name)) //nolint:gosec // see import
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// sanitizeTitle converts a title to release format (dots instead of spaces, no special chars).
func sanitizeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('.')
		}
	}
	return b.String()
}
