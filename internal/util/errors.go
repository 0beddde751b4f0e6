package util

import "errors"

var (
	ErrLogNotFound            = errors.New("log entry not found")
	ErrUnsupportedDatabaseURL = errors.New("unsupported database url")
	ErrInvalidGroupBy         = errors.New("invalid group_by")
	ErrInvalidMetric          = errors.New("invalid metric")
	ErrInvalidRules           = errors.New("invalid tagging rules")
)
