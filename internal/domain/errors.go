package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNoCredential  = errors.New("no signing credential configured")
	ErrInactive      = errors.New("component inactive")
	ErrSigningFailed = errors.New("signing failed")
	ErrWSDisconnect  = errors.New("websocket disconnected")
)
