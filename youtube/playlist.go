// Package youtube retrieves the authenticated user's playlists from the
// YouTube Data API v3 and selects the "music" playlists among them.
//
// A playlist is a music playlist when its title starts with a fixed,
// case-sensitive prefix ("music-" by default). Results are ordered by title
// using plain byte-wise string comparison.
package youtube

import (
	"slices"
	"strings"
	"time"

	"google.golang.org/api/youtube/v3"
)

// DefaultTitlePrefix marks a playlist as a music playlist.
const DefaultTitlePrefix = "music-"

// Playlist is a playlist owned by the authenticated user.
type Playlist struct {
	// ID is the opaque playlist identifier.
	ID string `json:"id"`

	// Title is the playlist title from its snippet.
	Title string `json:"title"`

	Description  string    `json:"description,omitempty"`
	ChannelTitle string    `json:"channel_title,omitempty"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	PublishedAt  time.Time `json:"published_at,omitzero"`
}

// PlaylistItem is one entry of a playlist.
type PlaylistItem struct {
	ID           string `json:"id"`
	PlaylistID   string `json:"playlist_id"`
	Title        string `json:"title"`
	Position     int64  `json:"position"`
	VideoID      string `json:"video_id,omitempty"`
	ResourceKind string `json:"resource_kind,omitempty"`
	ChannelTitle string `json:"channel_title,omitempty"`
	Thumbnail    string `json:"thumbnail,omitempty"`
}

// PlaylistWithItems pairs a playlist with its entries.
type PlaylistWithItems struct {
	Playlist
	Items []PlaylistItem `json:"items"`
}

// SortByTitle orders playlists by title ascending. Equal titles keep their
// relative order.
func SortByTitle(playlists []Playlist) {
	slices.SortStableFunc(playlists, func(a, b Playlist) int {
		return strings.Compare(a.Title, b.Title)
	})
}

// FilterByPrefix returns the playlists whose title starts with prefix, sorted
// by title. Playlists without an ID are dropped. The input is not modified.
func FilterByPrefix(playlists []Playlist, prefix string) []Playlist {
	sorted := slices.Clone(playlists)
	SortByTitle(sorted)

	matched := make([]Playlist, 0, len(sorted))
	for _, p := range sorted {
		if p.ID == "" || !strings.HasPrefix(p.Title, prefix) {
			continue
		}
		matched = append(matched, p)
	}
	return matched
}

// SelectMusic returns the IDs of the playlists whose title starts with prefix,
// ordered by title. The result is never nil.
func SelectMusic(playlists []Playlist, prefix string) []string {
	matched := FilterByPrefix(playlists, prefix)
	ids := make([]string, 0, len(matched))
	for _, p := range matched {
		ids = append(ids, p.ID)
	}
	return ids
}

func playlistFromAPI(p *youtube.Playlist) Playlist {
	out := Playlist{ID: p.Id}
	if s := p.Snippet; s != nil {
		out.Title = s.Title
		out.Description = s.Description
		out.ChannelTitle = s.ChannelTitle
		out.Thumbnail = thumbnailURL(s.Thumbnails)
		if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			out.PublishedAt = t
		}
	}
	return out
}

func playlistItemFromAPI(item *youtube.PlaylistItem) PlaylistItem {
	out := PlaylistItem{ID: item.Id}
	if s := item.Snippet; s != nil {
		out.PlaylistID = s.PlaylistId
		out.Title = s.Title
		out.Position = s.Position
		out.ChannelTitle = s.VideoOwnerChannelTitle
		out.Thumbnail = thumbnailURL(s.Thumbnails)
		if s.ResourceId != nil {
			out.VideoID = s.ResourceId.VideoId
			out.ResourceKind = s.ResourceId.Kind
		}
	}
	return out
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Medium, t.Default, t.High} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
