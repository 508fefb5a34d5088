package lastfm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func newTestClient(t *testing.T, status int, body string) (*Client, *url.Values) {
	t.Helper()

	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key")
	c.baseURL = srv.URL
	return c, &query
}

func TestMostRecentTrackSingleNowPlaying(t *testing.T) {
	body := `{"recenttracks":{"track":{"name":"Song X","artist":{"#text":"Artist Y"},"album":{"#text":"Album Z"},"@attr":{"nowplaying":"true"}}}}`
	c, query := newTestClient(t, http.StatusOK, body)

	track, err := c.MostRecentTrack(context.Background(), "alice")
	if err != nil {
		t.Fatalf("MostRecentTrack failed: %v", err)
	}

	if track.Title != "Song X" || track.Artist != "Artist Y" || track.Album != "Album Z" {
		t.Errorf("Wrong track fields: %+v", track)
	}
	if !track.Playing {
		t.Error("Track should be marked now playing")
	}

	// Request contract
	if query.Get("method") != "user.getRecentTracks" {
		t.Errorf("Wrong method param: %q", query.Get("method"))
	}
	if query.Get("user") != "alice" || query.Get("limit") != "1" {
		t.Errorf("Wrong user/limit params: %v", *query)
	}
	if query.Get("api_key") != "test-key" || query.Get("format") != "json" {
		t.Errorf("Wrong api_key/format params: %v", *query)
	}
}

func TestMostRecentTrackPrefersNowPlayingEntry(t *testing.T) {
	body := `{"recenttracks":{"track":[
		{"name":"Older","artist":{"#text":"A"}},
		{"name":"Current","artist":{"#text":"B"},"@attr":{"nowplaying":"true"}}
	]}}`
	c, _ := newTestClient(t, http.StatusOK, body)

	track, err := c.MostRecentTrack(context.Background(), "alice")
	if err != nil {
		t.Fatalf("MostRecentTrack failed: %v", err)
	}
	if track.Title != "Current" || !track.Playing {
		t.Errorf("Now-playing entry should win over position, got %+v", track)
	}
}

func TestMostRecentTrackFirstOfSequence(t *testing.T) {
	body := `{"recenttracks":{"track":[
		{"name":"Newest","artist":"A"},
		{"name":"Older","artist":"B"}
	]}}`
	c, _ := newTestClient(t, http.StatusOK, body)

	track, err := c.MostRecentTrack(context.Background(), "alice")
	if err != nil {
		t.Fatalf("MostRecentTrack failed: %v", err)
	}
	if track.Title != "Newest" || track.Artist != "A" {
		t.Errorf("Should default to the first entry, got %+v", track)
	}
	if track.Playing {
		t.Error("No entry was marked now playing")
	}
}

func TestMostRecentTrackEmptyHistory(t *testing.T) {
	for name, body := range map[string]string{
		"empty list":    `{"recenttracks":{"track":[]}}`,
		"null list":     `{"recenttracks":{"track":null}}`,
		"missing track": `{"recenttracks":{}}`,
		"missing key":   `{}`,
	} {
		c, _ := newTestClient(t, http.StatusOK, body)
		_, err := c.MostRecentTrack(context.Background(), "alice")
		if !errors.Is(err, ErrNoTracks) {
			t.Errorf("%s: expected ErrNoTracks, got %v", name, err)
		}
	}
}

func TestMostRecentTrackXMLFallback(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<lfm status="ok">
  <recenttracks user="alice">
    <track nowplaying="true">
      <artist mbid="abc">Artist Y</artist>
      <name>Song X</name>
      <album>Album Z</album>
    </track>
  </recenttracks>
</lfm>`
	c, _ := newTestClient(t, http.StatusOK, body)

	track, err := c.MostRecentTrack(context.Background(), "alice")
	if err != nil {
		t.Fatalf("MostRecentTrack failed: %v", err)
	}
	if track.Title != "Song X" || track.Artist != "Artist Y" || !track.Playing {
		t.Errorf("XML response parsed wrong: %+v", track)
	}
}

func TestMostRecentTrackServerError(t *testing.T) {
	c, _ := newTestClient(t, http.StatusInternalServerError, "oops")

	_, err := c.MostRecentTrack(context.Background(), "alice")
	if err == nil {
		t.Fatal("Expected an error for a 500 response")
	}
	if errors.Is(err, ErrNoTracks) {
		t.Error("A failed request is not the same as an empty history")
	}
}

func TestMostRecentTrackGarbageBody(t *testing.T) {
	c, _ := newTestClient(t, http.StatusOK, "<html>not an API response")

	_, err := c.MostRecentTrack(context.Background(), "alice")
	if err == nil {
		t.Fatal("Expected an error for an unparseable body")
	}
	if errors.Is(err, ErrNoTracks) {
		t.Error("An unparseable body is not the same as an empty history")
	}
}

func TestArtistStringForm(t *testing.T) {
	body := `{"recenttracks":{"track":{"name":"Song","artist":"Plain Artist"}}}`
	c, _ := newTestClient(t, http.StatusOK, body)

	track, err := c.MostRecentTrack(context.Background(), "alice")
	if err != nil {
		t.Fatalf("MostRecentTrack failed: %v", err)
	}
	if track.Artist != "Plain Artist" {
		t.Errorf("String-form artist not extracted, got %q", track.Artist)
	}
	if track.Album != "" {
		t.Errorf("Absent album should stay absent, got %q", track.Album)
	}
}
