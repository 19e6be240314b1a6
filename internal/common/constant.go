package common

// AuthorizationHeaderName is the HTTP header (and gRPC metadata key, lower
// cased) carrying the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the token in the authorization header.
const BearerPrefix = "Bearer "

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6
