// Package common holds torrent helpers shared by adapters.
package common

import (
	"net/url"
	"regexp"
	"strings"
)

var infoHashPattern = regexp.MustCompile(`^(?:[0-9a-fA-F]{40}|[A-Za-z2-7]{32})$`)

// NormalizeInfoHash strips a urn:btih: prefix and surrounding space and lowercases hex hashes.
// It returns "" for values that are not a 40-char hex or 32-char base32 hash.
func NormalizeInfoHash(raw string) string {
	value := strings.TrimSpace(raw)
	if len(value) >= 9 && strings.EqualFold(value[:9], "urn:btih:") {
		value = value[9:]
	}
	if !infoHashPattern.MatchString(value) {
		return ""
	}
	if len(value) == 40 {
		return strings.ToLower(value)
	}
	return strings.ToUpper(value)
}

// BuildMagnet builds a magnet link from an info hash, display name and trackers.
// It returns "" when the hash is invalid.
func BuildMagnet(infoHash, name string, trackers []string) string {
	hash := NormalizeInfoHash(infoHash)
	if hash == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("magnet:?xt=urn:btih:")
	b.WriteString(hash)
	if name = strings.TrimSpace(name); name != "" {
		b.WriteString("&dn=")
		b.WriteString(url.QueryEscape(name))
	}
	for _, tracker := range trackers {
		if tracker = strings.TrimSpace(tracker); tracker == "" {
			continue
		}
		b.WriteString("&tr=")
		b.WriteString(url.QueryEscape(tracker))
	}
	return b.String()
}

// InfoHashFromMagnet extracts the normalized info hash from a magnet link.
func InfoHashFromMagnet(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Scheme != "magnet" {
		return ""
	}
	for _, xt := range u.Query()["xt"] {
		if h := NormalizeInfoHash(xt); h != "" {
			return h
		}
	}
	return ""
}
