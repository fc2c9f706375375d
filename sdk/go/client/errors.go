package client

import "errors"

var (
	ErrClientClosed = errors.New("client is closed")
	ErrRefused      = errors.New("admission refused by server")
)
