package domain

import "errors"

// File areas, one table each
const (
	AreaOriginals    = "originals"
	AreaPreservation = "preservation"
)

var (
	ErrAIPNotFound  = errors.New("aip not found")
	ErrFileNotFound = errors.New("no file associated with aip")
)
