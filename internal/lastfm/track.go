package lastfm

import "fmt"

// Track is a single entry from a user's listening history. Instances come
// out of the lookup client fully built and are never modified afterwards.
// Playing distinguishes the track currently on from the last one played.
type Track struct {
	Artist   string
	Title    string
	Album    string
	Genres   []string
	Duration int // seconds
	Loved    bool
	MBID     string
	Playing  bool
}

// Describe renders the reply line for a track attributed to account.
func (t *Track) Describe(account string) string {
	if t.Playing {
		return fmt.Sprintf("%s is listening to %s by %s.", account, t.Title, t.Artist)
	}
	return fmt.Sprintf("%s last listened to %s by %s.", account, t.Title, t.Artist)
}
