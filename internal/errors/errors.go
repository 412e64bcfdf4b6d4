// Package errors provides the error taxonomy used by gather.
// It defines error kinds, file and configuration error types, and helpers
// for consistent creation, wrapping, and inspection across the application.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors package functions re-exported for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
	// Join returns an error that wraps the given errors
	Join = errors.Join
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// DirectoryUnreadable: a directory cannot be listed (missing, permission, not a directory)
	DirectoryUnreadable
	// FileNameInvalid: a directory entry name is not valid text
	FileNameInvalid
	// MoveFailed: the rename itself failed
	MoveFailed
	// DirectoryCreateFailed: creating the destination directory failed
	DirectoryCreateFailed
	// NameCollision: the destination name is already taken
	NameCollision
	// InvalidConfig: configuration could not be loaded or validated
	InvalidConfig
	// LockFailed: the run lock on the target directory could not be taken
	LockFailed
)

var kindNames = map[ErrorKind]string{
	Unknown:               "Unknown",
	DirectoryUnreadable:   "DirectoryUnreadable",
	FileNameInvalid:       "FileNameInvalid",
	MoveFailed:            "MoveFailed",
	DirectoryCreateFailed: "DirectoryCreateFailed",
	NameCollision:         "NameCollision",
	InvalidConfig:         "InvalidConfig",
	LockFailed:            "LockFailed",
}

// String returns the name of the kind
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// FileError represents a failed filesystem operation on a path
type FileError struct {
	ApplicationError
	path string
	op   string
}

// NewFileError creates a new file error
func NewFileError(op string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  op + " failed",
			err:  err,
			kind: kind,
		},
		path: path,
		op:   op,
	}
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// Op returns the operation that failed
func (e *FileError) Op() string {
	return e.op
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: InvalidConfig,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

type kinded interface {
	Kind() ErrorKind
}

// KindOf returns the kind of the first classified error in err's chain.
// Joined errors are searched in order.
func KindOf(err error) ErrorKind {
	if err == nil {
		return Unknown
	}
	if k, ok := err.(kinded); ok && k.Kind() != Unknown {
		return k.Kind()
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if kind := KindOf(inner); kind != Unknown {
				return kind
			}
		}
		return Unknown
	case interface{ Unwrap() error }:
		return KindOf(x.Unwrap())
	}
	return Unknown
}

// IsKind reports whether any error in err's chain has the given kind
func IsKind(err error, kind ErrorKind) bool {
	if err == nil {
		return false
	}
	if k, ok := err.(kinded); ok && k.Kind() == kind {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() []error }:
		for _, inner := range x.Unwrap() {
			if IsKind(inner, kind) {
				return true
			}
		}
	case interface{ Unwrap() error }:
		return IsKind(x.Unwrap(), kind)
	}
	return false
}

// IsDirectoryUnreadable checks if the error is a directory listing failure
func IsDirectoryUnreadable(err error) bool {
	return IsKind(err, DirectoryUnreadable)
}

// IsNameCollision checks if the error is a destination name collision
func IsNameCollision(err error) bool {
	return IsKind(err, NameCollision)
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	return IsKind(err, InvalidConfig)
}
