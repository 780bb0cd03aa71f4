package genericrss

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/slipstream/providercheck/internal/indexer/common"
	"github.com/slipstream/providercheck/internal/indexer/types"
)

var errUnrecognized = errors.New("unable to parse feed: unrecognized format")

// ParseFeed detects the feed format and converts its items to results.
// RSS 2.0 with or without the EzRSS torrent namespace is tried first, then
// TorrentPotato JSON.
func ParseFeed(data []byte) ([]types.Result, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return parseTorrentPotato(trimmed)
	}
	return parseRSS(data)
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title     string       `xml:"title"`
	Link      string       `xml:"link"`
	Size      int64        `xml:"size"`
	Enclosure rssEnclosure `xml:"enclosure"`
	Torrent   ezrssTorrent `xml:"torrent"`

	// Some EzRSS feeds put the torrent fields directly on the item.
	InfoHash      string `xml:"infoHash"`
	MagnetURI     string `xml:"magnetURI"`
	Seeds         int    `xml:"seeds"`
	Peers         int    `xml:"peers"`
	ContentLength int64  `xml:"contentLength"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type ezrssTorrent struct {
	InfoHash      string `xml:"infoHash"`
	MagnetURI     string `xml:"magnetURI"`
	Seeds         int    `xml:"seeds"`
	Peers         int    `xml:"peers"`
	ContentLength int64  `xml:"contentLength"`
}

func parseRSS(data []byte) ([]types.Result, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var feed rssFeed
	if err := dec.Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: %v", errUnrecognized, err)
	}

	results := make([]types.Result, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		if r, ok := item.result(); ok {
			results = append(results, r)
		}
	}
	return results, nil
}

func (item rssItem) result() (types.Result, bool) {
	t := item.Torrent
	if t.InfoHash == "" && t.MagnetURI == "" {
		t = ezrssTorrent{
			InfoHash:      item.InfoHash,
			MagnetURI:     item.MagnetURI,
			Seeds:         item.Seeds,
			Peers:         item.Peers,
			ContentLength: item.ContentLength,
		}
	}

	link := strings.TrimSpace(t.MagnetURI)
	for _, candidate := range []string{item.Enclosure.URL, item.Link} {
		if link == "" {
			link = strings.TrimSpace(candidate)
		}
	}
	if item.Enclosure.Type == "application/x-nzb" || strings.Contains(link, ".nzb") {
		return nil, false
	}

	hash := common.NormalizeInfoHash(t.InfoHash)
	if hash == "" && strings.HasPrefix(link, "magnet:") {
		hash = common.InfoHashFromMagnet(link)
	}
	if link == "" && hash != "" {
		link = common.BuildMagnet(hash, item.Title, nil)
	}
	title := strings.TrimSpace(item.Title)
	if title == "" || link == "" {
		return nil, false
	}

	size := int64(-1)
	for _, candidate := range []int64{t.ContentLength, item.Size, item.Enclosure.Length} {
		if size < 0 && candidate > 0 {
			size = candidate
		}
	}
	return types.NewResult(title, link, hash, t.Seeds, t.Peers, size), true
}

type torrentPotatoResponse struct {
	Results []torrentPotatoItem `json:"results"`
}

type torrentPotatoItem struct {
	ReleaseName string `json:"release_name"`
	DownloadURL string `json:"download_url"`
	Size        int64  `json:"size"` // MiB
	Leechers    int    `json:"leechers"`
	Seeders     int    `json:"seeders"`
}

func parseTorrentPotato(data []byte) ([]types.Result, error) {
	var resp torrentPotatoResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", errUnrecognized, err)
	}

	results := make([]types.Result, 0, len(resp.Results))
	for _, item := range resp.Results {
		if item.ReleaseName == "" || item.DownloadURL == "" {
			continue
		}
		size := int64(-1)
		if item.Size > 0 {
			size = item.Size << 20
		}
		link := item.DownloadURL
		results = append(results, types.NewResult(item.ReleaseName, link, common.InfoHashFromMagnet(link), item.Seeders, item.Leechers, size))
	}
	return results, nil
}
