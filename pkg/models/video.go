package models

import (
	"fmt"
	"time"
)

// Video represents shared metadata for a single YouTube video. One row exists
// per external video id regardless of how many users have added it.
type Video struct {
	ID           string     `json:"id" db:"id"`
	YoutubeID    string     `json:"youtube_id" db:"youtube_id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description" db:"description"`
	ChannelTitle string     `json:"channel_title" db:"channel_title"`
	PublishedAt  *time.Time `json:"published_at,omitempty" db:"published_at"`
	ThumbnailURL string     `json:"thumbnail_url" db:"thumbnail_url"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// UnknownChannel is the placeholder channel title written when the provider
// could not be reached. Rows carrying it are re-fetched on the next lookup.
const UnknownChannel = "Unknown Channel"

// PlaceholderVideo builds the degraded metadata returned when the provider is
// unavailable at resolution time.
func PlaceholderVideo(youtubeID string) *Video {
	return &Video{
		YoutubeID:    youtubeID,
		Title:        fmt.Sprintf("Video %s", youtubeID),
		Description:  "",
		ChannelTitle: UnknownChannel,
	}
}

// IsPlaceholder reports whether the video still carries provider-outage
// placeholder data and should be re-fetched.
func (v *Video) IsPlaceholder() bool {
	return v.ChannelTitle == "" || v.ChannelTitle == UnknownChannel
}
