package backend

import "errors"

var ErrUnknownBackend = errors.New("unknown translation backend")
var ErrMissingAPIKey = errors.New("translation backend requires an api key")
