package tariff

import "errors"

var (
	// ErrInvalidDocument reports a tariff document that fails structural
	// validation at the parse boundary.
	ErrInvalidDocument = errors.New("tariff: invalid document")
)
