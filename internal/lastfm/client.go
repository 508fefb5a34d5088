package lastfm

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// DefaultBaseURL is the audioscrobbler API root.
	DefaultBaseURL = "http://ws.audioscrobbler.com"

	// DefaultTimeout bounds a lookup on its own; the external API being
	// down is independent of the health of the IRC connection.
	DefaultTimeout = 10 * time.Second
)

// ErrNoTracks means the service answered but reported no listening
// history for the account.
var ErrNoTracks = errors.New("lastfm: no recent tracks")

// Client queries the Last.FM web API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates a Last.FM API client using the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
	}
}

// MostRecentTrack returns what account is listening to right now or, failing
// that, the last track it scrobbled. Returns ErrNoTracks when the account
// has no history to report.
func (c *Client) MostRecentTrack(ctx context.Context, account string) (*Track, error) {
	q := url.Values{}
	q.Set("method", "user.getRecentTracks")
	q.Set("user", account)
	q.Set("limit", "1")
	q.Set("api_key", c.apiKey)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/2.0/?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("lastfm: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lastfm: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lastfm: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("lastfm: read response: %w", err)
	}

	tracks, err := parseRecentTracks(body)
	if err != nil {
		return nil, err
	}
	return pickTrack(tracks)
}

// parsers are tried in order; the first one that accepts the body wins.
// The API normally honors format=json but has been seen falling back to
// its XML envelope.
var parsers = []func([]byte) ([]apiTrack, error){parseJSON, parseXML}

func parseRecentTracks(body []byte) ([]apiTrack, error) {
	var firstErr error
	for _, parse := range parsers {
		tracks, err := parse(body)
		if err == nil {
			return tracks, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, fmt.Errorf("lastfm: unparseable response: %w", firstErr)
}

// pickTrack chooses which track to report. The API lists most recent first,
// but an entry flagged now-playing is authoritative over position.
func pickTrack(tracks []apiTrack) (*Track, error) {
	if len(tracks) == 0 {
		return nil, ErrNoTracks
	}

	chosen := tracks[0]
	for _, t := range tracks {
		if t.nowPlaying {
			chosen = t
			break
		}
	}

	return &Track{
		Artist:   chosen.artist,
		Title:    chosen.name,
		Album:    chosen.album,
		Duration: chosen.duration,
		Loved:    chosen.loved,
		MBID:     chosen.mbid,
		Playing:  chosen.nowPlaying,
	}, nil
}

// apiTrack is the format-independent shape both parsers normalize into.
type apiTrack struct {
	name       string
	artist     string
	album      string
	mbid       string
	duration   int
	loved      bool
	nowPlaying bool
}

type jsonEnvelope struct {
	RecentTracks *struct {
		Track trackList `json:"track"`
	} `json:"recenttracks"`
}

type jsonTrack struct {
	Name     string    `json:"name"`
	MBID     string    `json:"mbid"`
	Duration string    `json:"duration"`
	Loved    string    `json:"loved"`
	Artist   textField `json:"artist"`
	Album    textField `json:"album"`
	Attr     *struct {
		NowPlaying string `json:"nowplaying"`
	} `json:"@attr"`
}

// trackList absorbs the API's habit of returning a single track object
// when the history holds one entry and an array otherwise.
type trackList []jsonTrack

func (l *trackList) UnmarshalJSON(data []byte) error {
	var many []jsonTrack
	if err := json.Unmarshal(data, &many); err == nil {
		*l = many
		return nil
	}

	var one jsonTrack
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = trackList{one}
	return nil
}

// textField is a plain string in some responses and {"#text": ...} in
// others, depending on which API revision answers.
type textField struct {
	Value string
}

func (f *textField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Value = s
		return nil
	}

	var obj struct {
		Text string `json:"#text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	f.Value = obj.Text
	return nil
}

func parseJSON(body []byte) ([]apiTrack, error) {
	var env jsonEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.RecentTracks == nil {
		return nil, nil
	}

	tracks := make([]apiTrack, 0, len(env.RecentTracks.Track))
	for _, t := range env.RecentTracks.Track {
		duration, _ := strconv.Atoi(t.Duration)
		tracks = append(tracks, apiTrack{
			name:       t.Name,
			artist:     t.Artist.Value,
			album:      t.Album.Value,
			mbid:       t.MBID,
			duration:   duration,
			loved:      t.Loved == "1",
			nowPlaying: t.Attr != nil && t.Attr.NowPlaying != "",
		})
	}
	return tracks, nil
}

type xmlEnvelope struct {
	XMLName      xml.Name `xml:"lfm"`
	RecentTracks struct {
		Tracks []xmlTrack `xml:"track"`
	} `xml:"recenttracks"`
}

type xmlTrack struct {
	Name       string `xml:"name"`
	MBID       string `xml:"mbid"`
	Duration   string `xml:"duration"`
	Loved      string `xml:"loved"`
	Artist     string `xml:"artist"`
	Album      string `xml:"album"`
	NowPlaying string `xml:"nowplaying,attr"`
}

func parseXML(body []byte) ([]apiTrack, error) {
	var env xmlEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, err
	}

	tracks := make([]apiTrack, 0, len(env.RecentTracks.Tracks))
	for _, t := range env.RecentTracks.Tracks {
		duration, _ := strconv.Atoi(t.Duration)
		tracks = append(tracks, apiTrack{
			name:       t.Name,
			artist:     t.Artist,
			album:      t.Album,
			mbid:       t.MBID,
			duration:   duration,
			loved:      t.Loved == "1",
			nowPlaying: t.NowPlaying != "",
		})
	}
	return tracks, nil
}
