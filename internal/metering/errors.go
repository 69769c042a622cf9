package metering

import "errors"

var (
	// ErrNoReadings reports an empty billing period. A bill with no usage
	// is meaningfully different from "no data retrieved", so this is never
	// silently zeroed.
	ErrNoReadings = errors.New("metering: no readings in period")
)
