package vision

import "errors"

// Sentinel errors for template matching.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrTemplateNotFound indicates no PNG exists for the requested name.
	ErrTemplateNotFound = errors.New("vision: template not found")

	// ErrDecodeFailed indicates an image could not be decoded as PNG.
	ErrDecodeFailed = errors.New("vision: decode failed")

	// ErrTemplateTooLarge indicates the template exceeds the screenshot
	// dimensions, so no placement exists.
	ErrTemplateTooLarge = errors.New("vision: template larger than screenshot")

	// ErrFlatTemplate indicates a single-color template, which has no
	// structure for correlation to lock onto.
	ErrFlatTemplate = errors.New("vision: template has no contrast")
)
