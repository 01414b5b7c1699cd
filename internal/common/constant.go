// Package common contains shared constants and sentinel errors used across
// TeamDesk components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the team
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// UsersCollection is the remote collection holding one document per user.
const UsersCollection = "users"
