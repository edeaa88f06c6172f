package limits

import "errors"

var (
	ErrMissingDefaultLimits = errors.New("DEFAULT limits must be defined first")
	ErrInvalidThresholds    = errors.New("invalid limits thresholds")
	ErrUnknownSet           = errors.New("unknown limits set")
	ErrUnknownGroup         = errors.New("unknown limits group")
	ErrUnknownItem          = errors.New("item has no registered limits")
)
