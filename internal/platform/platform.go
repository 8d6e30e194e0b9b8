// Package platform recognizes which short-form video platform a URL points
// at. Submission validates against this before any job is created.
package platform

import (
	"fmt"
	"net/url"
	"strings"
)

// Platform identifiers, matching what gets persisted on the job.
const (
	Instagram     = "instagram"
	TikTok        = "tiktok"
	YouTubeShorts = "youtube_shorts"
	Unknown       = "unknown"
)

// Detect returns the platform for a URL, or Unknown.
func Detect(rawURL string) string {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "instagram.com"), strings.Contains(lower, "instagr.am"):
		return Instagram
	case strings.Contains(lower, "tiktok.com"), strings.Contains(lower, "vm.tiktok"):
		return TikTok
	case strings.Contains(lower, "youtube.com/shorts"), strings.Contains(lower, "youtu.be"):
		return YouTubeShorts
	default:
		return Unknown
	}
}

// Validate checks that rawURL is a well-formed http(s) URL on a supported
// platform and returns the detected platform.
func Validate(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("url must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url is missing a host")
	}
	p := Detect(rawURL)
	if p == Unknown {
		return "", fmt.Errorf("unsupported platform for url %q", rawURL)
	}
	return p, nil
}
