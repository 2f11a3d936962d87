package srs

import "errors"

var (
	ErrInvalidQuality = errors.New("srs: quality must be between 0 and 5")
	ErrInvalidPolicy  = errors.New("srs: policy out of bounds")
)
