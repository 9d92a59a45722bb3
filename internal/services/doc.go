// Package services defines the source and destination interfaces for workout
// transfers and implements them for MapMyRun and Strava.
//
// # Source Interface
//
// [SourceService] is a stateful authenticated session: Login establishes it,
// FetchExportIndex and ExportWorkout drive the provider's export surface and
// materialize files in the working directory. Each service instance is one
// independent session; there is no shared global client.
//
// # MapMyRun Implementation
//
// [MapMyRunService] holds session cookies in an [net/http/cookiejar.Jar] and
// talks to the same web endpoints a browser would. Login success is the
// dashboard redirect; a login page carrying the credential error fragment
// means rejected credentials. A later redirect back to the login surface
// means the session expired and surfaces as [shared.ErrNotAuthenticated] so
// the caller can re-login once and retry.
//
// # Destination Interfaces
//
// [UploadService] covers Strava's asynchronous upload model: Upload submits a
// file and returns a handle, UploadStatus polls the remote processing job.
// The access token is an argument on every call; the service holds no token
// state. [OAuthService] covers the authorization-code flow used to obtain
// that token.
//
// # Strava Implementation
//
// [StravaService] posts multipart forms to the uploads endpoint and decodes
// the upload resource JSON. A 429 response becomes [*RateLimitError] with the
// server's Retry-After delay so the caller can wait and resubmit the same
// file.
//
// # Error Handling
//
// Services use typed errors from the shared package:
//   - [shared.ErrInvalidCredentials] : login rejected by the source service
//   - [shared.ErrNotAuthenticated] : no session, or session expired
//   - [shared.ErrRateLimited] : matched via errors.Is against [*RateLimitError]
//   - [shared.ErrUploadRejected] : destination refused the submission
//   - [shared.ErrAPIRequest] : transport-level HTTP failure
package services
