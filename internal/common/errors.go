package common

import "errors"

var (
	// repository specific errors
	ErrorIncorrectMetadata = errors.New("incorrect metadata")
)
