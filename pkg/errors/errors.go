// Package errors provides the structured error system shared by every layer
// of the VFS. Error codes form a closed enumeration: consumers (shell,
// utilities) switch on codes, so new codes are an API change.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents a symbolic error code for VFS operations.
type ErrorCode string

// The closed set of operational error codes surfaced to callers.
// Programming errors (malformed descriptors, double registration) are not
// part of this set; those panic instead of returning.
const (
	// Resolution errors
	ErrCodeNoSuchDevice   ErrorCode = "NO_SUCH_DEVICE"
	ErrCodeOpNotSupported ErrorCode = "OP_NOT_SUPPORTED"

	// Filesystem errors
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeAccessDenied ErrorCode = "ACCESS_DENIED"
	ErrCodeReadOnly     ErrorCode = "READ_ONLY"
	ErrCodeNotDirectory ErrorCode = "NOT_A_DIRECTORY"
	ErrCodeNotSupported ErrorCode = "NOT_SUPPORTED"
)

// ErrorCategory represents the general category of an error.
type ErrorCategory string

const (
	CategoryResolver   ErrorCategory = "resolver"
	CategoryFilesystem ErrorCategory = "filesystem"
	CategoryInternal   ErrorCategory = "internal"
)

// VFSError represents a structured error with path and operation context.
type VFSError struct {
	Code     ErrorCode     `json:"code"`
	Category ErrorCategory `json:"category"`
	Message  string        `json:"message"`

	// Contextual information
	Path      string    `json:"path,omitempty"`
	Op        string    `json:"op,omitempty"`
	Cause     error     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// Error implements the error interface.
func (e *VFSError) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(" ")
	}
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Code))
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

// Unwrap returns the underlying cause error for error wrapping compatibility.
func (e *VFSError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so callers can use errors.Is against any error
// carrying the same code.
func (e *VFSError) Is(target error) bool {
	if vfsErr, ok := target.(*VFSError); ok {
		return e.Code == vfsErr.Code
	}
	return false
}

// String returns a detailed representation for logging.
func (e *VFSError) String() string {
	parts := []string{
		fmt.Sprintf("Code=%s", e.Code),
		fmt.Sprintf("Category=%s", e.Category),
	}
	if e.Message != "" {
		parts = append(parts, fmt.Sprintf("Message=%q", e.Message))
	}
	if e.Path != "" {
		parts = append(parts, fmt.Sprintf("Path=%s", e.Path))
	}
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("Op=%s", e.Op))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("Cause=%q", e.Cause.Error()))
	}
	return fmt.Sprintf("VFSError{%s}", strings.Join(parts, ", "))
}

// New creates a new VFS error with the category derived from the code.
func New(code ErrorCode, message string) *VFSError {
	return &VFSError{
		Code:      code,
		Category:  GetCategory(code),
		Message:   message,
		Timestamp: time.Now(),
	}
}

// GetCategory determines the category for an error code.
func GetCategory(code ErrorCode) ErrorCategory {
	switch code {
	case ErrCodeNoSuchDevice, ErrCodeOpNotSupported:
		return CategoryResolver
	case ErrCodeNotFound, ErrCodeAccessDenied, ErrCodeReadOnly,
		ErrCodeNotDirectory, ErrCodeNotSupported:
		return CategoryFilesystem
	default:
		return CategoryInternal
	}
}

// WithPath sets the path the error relates to.
func (e *VFSError) WithPath(path string) *VFSError {
	e.Path = path
	return e
}

// WithOp sets the operation that produced the error.
func (e *VFSError) WithOp(op string) *VFSError {
	e.Op = op
	return e
}

// WithCause sets the underlying cause.
func (e *VFSError) WithCause(cause error) *VFSError {
	e.Cause = cause
	return e
}

// Constructors for the common cases.

// NoSuchDevice reports that no provider is registered for a scheme.
func NoSuchDevice(scheme string) *VFSError {
	return New(ErrCodeNoSuchDevice, fmt.Sprintf("no provider for scheme %q", scheme))
}

// OpNotSupported reports that a provider lacks a capability.
func OpNotSupported(op string) *VFSError {
	return New(ErrCodeOpNotSupported, "provider does not implement "+op).WithOp(op)
}

// NotFound reports a missing path.
func NotFound(path string) *VFSError {
	return New(ErrCodeNotFound, "no such file or directory").WithPath(path)
}

// AccessDenied reports a permission failure.
func AccessDenied(path string) *VFSError {
	return New(ErrCodeAccessDenied, "access denied").WithPath(path)
}

// ReadOnly reports a failed write to a non-writable target.
func ReadOnly(path string) *VFSError {
	return New(ErrCodeReadOnly, "target not writable").WithPath(path)
}

// NotDirectory reports a directory operation on a non-directory.
func NotDirectory(path string) *VFSError {
	return New(ErrCodeNotDirectory, "not a directory").WithPath(path)
}

// NotSupported reports an operation the driver does not provide at all.
func NotSupported(op string) *VFSError {
	return New(ErrCodeNotSupported, op+" not supported").WithOp(op)
}

// CodeOf extracts the error code, or empty string for foreign errors.
func CodeOf(err error) ErrorCode {
	if vfsErr, ok := err.(*VFSError); ok {
		return vfsErr.Code
	}
	return ""
}

// Predicates used by callers that branch on failure class.

func IsNoSuchDevice(err error) bool { return CodeOf(err) == ErrCodeNoSuchDevice }
func IsNotFound(err error) bool     { return CodeOf(err) == ErrCodeNotFound }
func IsAccessDenied(err error) bool { return CodeOf(err) == ErrCodeAccessDenied }
func IsReadOnly(err error) bool     { return CodeOf(err) == ErrCodeReadOnly }
func IsNotDirectory(err error) bool { return CodeOf(err) == ErrCodeNotDirectory }

func IsOpNotSupported(err error) bool {
	c := CodeOf(err)
	return c == ErrCodeOpNotSupported || c == ErrCodeNotSupported
}
