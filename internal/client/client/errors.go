package client

import "errors"

var (
	ErrUnavailable  = errors.New("hub unavailable")
	ErrUnauthorized = errors.New("unauthorized")
)
