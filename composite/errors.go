package composite

import "errors"

// Errors returned by the compositor and the image codec.
var (
	ErrImproperUse  = errors.New("composite: improper use")
	ErrCorruptImage = errors.New("composite: corrupt image")
)
