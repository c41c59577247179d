package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrLocationRequired = errors.New("location is required")

	// Value construction errors. Invalid data never reaches the evaluator.
	ErrInvalidLocation = errors.New("invalid location")
	ErrInvalidSchedule = errors.New("invalid prayer schedule")

	// Reminder pipeline errors
	ErrScheduleNotFound     = errors.New("prayer schedule not found")
	ErrScheduleUnavailable  = errors.New("prayer schedule provider unavailable")
	ErrDirectoryUnavailable = errors.New("subscriber directory unavailable")
	ErrDeliveryFailed       = errors.New("notification delivery failed")
)
