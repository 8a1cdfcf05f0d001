// Spotify API implementation of [CatalogProvider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/songdl/internal/models"
	"github.com/desertthunder/songdl/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	playlistPageSize = 100
	userPageSize     = 50
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	IsLocal    bool            `json:"is_local"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
//
// Track is nil for items Spotify no longer serves.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks is a page of playlist items.
type SpotifyPaginatedPlaylistTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTrackCount struct {
	Total int `json:"total"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Owner       Owner              `json:"owner"`
	Public      bool               `json:"public"`
	Tracks      playlistTrackCount `json:"tracks"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithSpotifyHTTPClient sets the base HTTP client used for token and API requests.
func WithSpotifyHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.baseClient = c }
}

// WithSpotifyEndpoints overrides the API and token URLs.
func WithSpotifyEndpoints(baseURL, tokenURL string) SpotifyOption {
	return func(s *SpotifyService) {
		if baseURL != "" {
			s.baseURL = strings.TrimRight(baseURL, "/")
		}
		if tokenURL != "" {
			s.config.Endpoint.TokenURL = tokenURL
		}
	}
}

// SpotifyService implements [CatalogProvider] for the Spotify Web API.
// Uses [oauth2] for authentication: a pre-issued access token, an authorization code, or the client credentials grant.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	baseClient *http.Client
	httpClient *http.Client
	baseURL    string
	appOnly    bool
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"playlist-read-private", "playlist-read-collaborative"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyAuthURL,
				TokenURL: spotifyTokenURL,
			},
		},
		baseClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate configures the HTTP client. Accepts "access_token" or "auth_code" in credentials and
// falls back to the client credentials grant, which only reaches public playlists.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)

	if accessToken := credentials["access_token"]; accessToken != "" {
		s.token = &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
		s.httpClient = s.config.Client(ctx, s.token)
		s.appOnly = false
		return nil
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.token = token
		s.httpClient = s.config.Client(ctx, s.token)
		s.appOnly = false
		return nil
	}

	cc := &clientcredentials.Config{
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		TokenURL:     s.config.Endpoint.TokenURL,
	}
	token, err := cc.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: client credentials grant: %v", shared.ErrAuthFailed, err)
	}
	s.token = token
	s.httpClient = oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, cc.TokenSource(ctx)))
	s.appOnly = true
	return nil
}

// spotifyStatusError is a non-2xx API response. kind is the shared sentinel it maps to.
type spotifyStatusError struct {
	code int
	kind error
}

func (e *spotifyStatusError) Error() string {
	return fmt.Sprintf("%v: spotify API status %d", e.kind, e.code)
}

func (e *spotifyStatusError) Unwrap() error { return e.kind }

// statusCode returns the HTTP status carried by err, or 0.
func statusCode(err error) int {
	var se *spotifyStatusError
	if errors.As(err, &se) {
		return se.code
	}
	return 0
}

// doRequest performs an authenticated GET request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	if s.httpClient == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return &spotifyStatusError{code: resp.StatusCode, kind: shared.ErrNotAuthenticated}
	case resp.StatusCode == http.StatusNotFound:
		return &spotifyStatusError{code: resp.StatusCode, kind: shared.ErrPlaylistNotFound}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return &spotifyStatusError{code: resp.StatusCode, kind: shared.ErrAPIRequest}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserPlaylists retrieves a page of the current user's playlists.
//
// A client credentials token has no user, so Spotify rejects it here.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 || limit > userPageSize {
		limit = userPageSize
	}

	var response SpotifyPaginatedPlaylists
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		if code := statusCode(err); s.appOnly && (code == http.StatusUnauthorized || code == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: listing playlists needs a user access_token, client credentials only read playlists by id (status %d)",
				shared.ErrNotAuthenticated, code)
		}
		return nil, err
	}
	return &response, nil
}

// PlaylistTracks retrieves a page of playlist items.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error) {
	if limit <= 0 || limit > playlistPageSize {
		limit = playlistPageSize
	}

	var response SpotifyPaginatedPlaylistTracks
	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), limit, offset)
	if err := s.doRequest(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Playlist retrieves a playlist's metadata by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifySimplePlaylist, error) {
	var playlist SpotifySimplePlaylist
	endpoint := fmt.Sprintf("/playlists/%s?fields=id,name,description,public,owner,tracks.total", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, endpoint, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, userPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			all = append(all, toPlaylist(sp))
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += userPageSize
	}

	return all, nil
}

// ResolvePlaylist looks the playlist up by ID, then by name among the user's playlists.
//
// The name search runs only when Spotify answers the ID lookup with 404, or 400 for
// a string that is not a valid ID. Any other failure is returned as is.
func (s *SpotifyService) ResolvePlaylist(ctx context.Context, idOrName string) (*models.Playlist, error) {
	if idOrName == "" {
		return nil, fmt.Errorf("%w: playlist id or name", shared.ErrMissingArgument)
	}

	sp, err := s.Playlist(ctx, idOrName)
	if err == nil {
		pl := toPlaylist(*sp)
		return &pl, nil
	}
	if code := statusCode(err); code != http.StatusNotFound && code != http.StatusBadRequest {
		return nil, err
	}

	playlists, err := s.GetPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	for _, pl := range playlists {
		if strings.EqualFold(pl.Name, idOrName) {
			return &pl, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, idOrName)
}

// PlaylistItems pages through a playlist 100 items at a time until a short page.
//
// Local files and items without a track are skipped.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string) ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	offset := 0

	for {
		page, err := s.PlaylistTracks(ctx, playlistID, playlistPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, it := range page.Items {
			if it.Track == nil || it.Track.IsLocal || it.Track.Name == "" {
				continue
			}
			items = append(items, toCatalogItem(*it.Track))
		}

		if len(page.Items) < playlistPageSize {
			break
		}
		offset += playlistPageSize
	}

	return items, nil
}

// ExportPlaylist resolves idOrName and fetches all of its items.
func (s *SpotifyService) ExportPlaylist(ctx context.Context, idOrName string) (*models.PlaylistExport, error) {
	pl, err := s.ResolvePlaylist(ctx, idOrName)
	if err != nil {
		return nil, err
	}

	items, err := s.PlaylistItems(ctx, pl.ID)
	if err != nil {
		return nil, err
	}

	return &models.PlaylistExport{Playlist: *pl, Items: items}, nil
}

func toPlaylist(sp SpotifySimplePlaylist) models.Playlist {
	return models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
	}
}

func toCatalogItem(tr SpotifyTrack) models.CatalogItem {
	item := models.CatalogItem{
		Title:      tr.Name,
		Album:      tr.Album.Name,
		ExternalID: tr.ID,
	}
	if len(tr.Artists) > 0 {
		item.Artist = tr.Artists[0].Name
	}
	return item
}
