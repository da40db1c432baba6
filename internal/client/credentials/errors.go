package credentials

import "errors"

var (
	ErrEmptyToken    = errors.New("empty access token")
	ErrCorruptRecord = errors.New("corrupt credential record")
)
