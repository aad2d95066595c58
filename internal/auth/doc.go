// Package auth implements bearer-token authentication for the station
// API.
//
// Tokens are JWTs signed with RS256 (PEM or JWKS key sources) or HS256.
// Claims carry a role (viewer or operator) and scopes; command endpoints
// require the control scope, telemetry streams the telemetry scope.
package auth
