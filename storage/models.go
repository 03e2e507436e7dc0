package storage

import (
	"fmt"
	"time"
)

// Snapshot is one successful result of the music playlist fetch.
type Snapshot struct {
	// ID is the internal UUID for this snapshot.
	ID string `json:"id"`
	// Prefix is the title prefix the fetch selected on.
	Prefix string `json:"prefix"`
	// PlaylistIDs are the selected playlist IDs in title order.
	PlaylistIDs []string `json:"playlist_ids"`
	// FetchedAt is when the fetch completed.
	FetchedAt time.Time `json:"fetched_at"`
}

// Validate checks that the snapshot has all required fields.
func (s *Snapshot) Validate() error {
	if s.Prefix == "" {
		return fmt.Errorf("%w: prefix is required", ErrInvalidInput)
	}
	for i, id := range s.PlaylistIDs {
		if id == "" {
			return fmt.Errorf("%w: playlist id %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}
