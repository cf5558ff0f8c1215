// Package videoid extracts canonical YouTube video ids from user input.
// It is pure: no I/O, no side effects.
package videoid

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidVideoRef is returned when the input is not a recognizable video
// reference.
var ErrInvalidVideoRef = errors.New("not a valid video reference")

// idPattern matches a canonical YouTube video id.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Extract normalizes a raw video reference (bare id or URL) into a canonical
// video id.
func Extract(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidVideoRef
	}

	// Bare id
	if idPattern.MatchString(raw) {
		return raw, nil
	}

	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidVideoRef, err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	switch host {
	case "youtube.com", "m.youtube.com", "music.youtube.com":
		return extractFromYoutubeURL(u)
	case "youtu.be":
		return validateID(strings.Trim(u.Path, "/"))
	default:
		return "", fmt.Errorf("%w: unrecognized host %q", ErrInvalidVideoRef, u.Hostname())
	}
}

func extractFromYoutubeURL(u *url.URL) (string, error) {
	if v := u.Query().Get("v"); v != "" {
		return validateID(v)
	}

	// Path forms: /shorts/<id>, /embed/<id>, /live/<id>
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) == 2 {
		switch parts[0] {
		case "shorts", "embed", "live":
			return validateID(parts[1])
		}
	}

	return "", fmt.Errorf("%w: no video id in URL", ErrInvalidVideoRef)
}

func validateID(id string) (string, error) {
	if !idPattern.MatchString(id) {
		return "", fmt.Errorf("%w: malformed id %q", ErrInvalidVideoRef, id)
	}
	return id, nil
}
