package reactor

import "errors"

// Kernel errors
var (
	// Registration errors
	ErrParentNil         = errors.New("parent manager is nil")
	ErrRegisterSelf      = errors.New("cannot register a manager with itself")
	ErrAlreadyRegistered = errors.New("manager is already registered")

	// Dispatch errors
	ErrHandlerPanic = errors.New("handler panicked")

	// Config errors
	ErrConfigNotPointer        = errors.New("config must be a non-nil pointer to a struct")
	ErrConfigUnsupportedFormat = errors.New("unsupported config file format")

	// Observer errors
	ErrObserverNil          = errors.New("observer is nil")
	ErrNoSubjectForEmission = errors.New("no subject available for event emission")
)
