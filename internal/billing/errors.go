package billing

import "errors"

var (
	// ErrNilDocument reports a calculation attempted without a tariff.
	ErrNilDocument = errors.New("billing: nil tariff document")
	// ErrInvalidPeriod reports a zero or inverted billing period.
	ErrInvalidPeriod = errors.New("billing: invalid billing period")
)
