// Package services connects crossfade to music streaming platforms.
//
// # Providers and Services
//
// A [Provider] describes one platform and turns per-request [Credentials] into an
// authenticated [Service]. Credentials are never stored; each transfer authenticates
// again with the values it was given. The [Catalog] maps platform ids to providers:
//
//	spotify        access_token, or auth_code from the login redirect
//	youtube_music  auth_file pointing at a browser.json or oauth.json
//
// A [Service] lists, reads, searches and creates playlists. Every platform maps its
// payloads onto [models.Playlist] and [models.Track] so matching works across them.
//
// # Spotify
//
// [SpotifyProvider] holds the application's OAuth2 client config. The CLI uses
// [SpotifyProvider.AuthURL] and [SpotifyProvider.Exchange] to obtain a user token;
// [SpotifyService] then calls the Web API with it. ISRCs come from external_ids.
//
// # YouTube Music
//
// [YouTubeService] talks to an HTTP proxy around ytmusicapi. The auth_file path is
// forwarded in the X-Auth-File header; the proxy reads the browser headers itself.
//
// # Retries
//
// All platform calls go through [RetryClient], which retries 429, 502, 503 and 504
// with linear backoff and honours Retry-After. [StatusError] classifies the
// final response into the shared sentinel errors:
//   - [shared.ErrAuthFailed] : 401/403, the credentials were rejected
//   - [shared.ErrPlaylistNotFound] : 404
//   - [shared.ErrRateLimited] : 429 after retries ran out
//   - [shared.ErrServiceUnavailable] : 5xx
//   - [shared.ErrAPIRequest] : any other failure
//
// # Transfer API Client
//
// [APIService] is the client for a running crossfade server, used by the
// status, jobs and watch commands.
package services
