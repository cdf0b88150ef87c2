package core

// errors.go defines the closed set of conversion error kinds and the
// user-facing message catalogue.
//
// Every per-file failure carries an ErrorKind so callers can branch with
// errors.As instead of matching error text. The catalogue below maps each
// kind (and a handful of transport-level failures) to a message, a suggested
// action, and a support code.
//
// # Error Codes Reference
//
//	FILE001 - File too large: file exceeds the per-file size limit
//	FILE002 - Invalid CSV: the file could not be read as delimited text
//	FILE003 - Encoding error: the file is not valid in the configured encoding
//	FILE004 - No file: the request carried no files
//	FILE005 - Empty file: header row only, no data rows
//	XLSX001 - Spreadsheet error: the table could not be written as XLSX
//	ZIP001  - Archive error: the bulk download could not be built
//	AUTH001 - Access denied: the password was wrong
//	AUTH002 - Access required: no password was supplied
//	UPL002  - System busy: too many conversions in progress
//	UPL004  - Request cancelled
//	UPL005  - Request timeout
//	RATE001 - Rate limited
//	ERR000  - Unknown error

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why a file (or the bulk archive) was not produced.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindSizeLimitExceeded
	KindParse
	KindEmptyTable
	KindEncode
	KindPackage
	KindAccessDenied
)

func (k ErrorKind) String() string {
	switch k {
	case KindSizeLimitExceeded:
		return "size_limit_exceeded"
	case KindParse:
		return "parse_error"
	case KindEmptyTable:
		return "empty_table"
	case KindEncode:
		return "encode_error"
	case KindPackage:
		return "package_error"
	case KindAccessDenied:
		return "access_denied"
	default:
		return "none"
	}
}

// IsWarning reports whether the kind is a skip (warning) rather than a failure.
func (k ErrorKind) IsWarning() bool {
	return k == KindSizeLimitExceeded || k == KindEmptyTable
}

// Sentinel errors wrapped by stage functions.
var (
	ErrNoColumns      = errors.New("no columns to parse from file")
	ErrEncoding       = errors.New("encoding error")
	ErrDuplicateEntry = errors.New("duplicate archive entry")
	ErrAccessDenied   = errors.New("incorrect password")
	ErrAccessRequired = errors.New("password required")
)

// FileError is the typed failure for one file or for the bulk archive.
type FileError struct {
	Kind ErrorKind
	File string
	Err  error
}

func (e *FileError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.File, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Detail returns the underlying error text without the file prefix.
func (e *FileError) Detail() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// KindOf returns the ErrorKind carried by err, or KindNone.
func KindOf(err error) ErrorKind {
	var fe *FileError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindNone
}

func newFileError(kind ErrorKind, file string, err error) *FileError {
	return &FileError{Kind: kind, File: file, Err: err}
}

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var kindMessages = map[ErrorKind]UserMessage{
	KindSizeLimitExceeded: {
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	},
	KindParse: {
		Message: "File is not a valid CSV",
		Action:  "Ensure every row has the same number of columns as the header",
		Code:    "FILE002",
	},
	KindEmptyTable: {
		Message: "The file has a header but no data rows",
		Action:  "Upload a CSV file with at least one data row",
		Code:    "FILE005",
	},
	KindEncode: {
		Message: "The table could not be written as a spreadsheet",
		Action:  "Remove control characters or very long values and try again",
		Code:    "XLSX001",
	},
	KindPackage: {
		Message: "The bulk download could not be built",
		Action:  "Download the files individually",
		Code:    "ZIP001",
	},
	KindAccessDenied: {
		Message: "Incorrect password",
		Action:  "Check the password and try again",
		Code:    "AUTH001",
	},
}

// errorPattern maps a technical error fragment to a user message.
// The first match wins, so specific patterns come first.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var encodingMessage = UserMessage{
	Message: "File contains invalid characters",
	Action:  "Save the file as UTF-8",
	Code:    "FILE003",
}

var errorPatterns = []errorPattern{
	{pattern: "encoding error", msg: encodingMessage},
	{
		pattern: "password required",
		msg: UserMessage{
			Message: "A password is required",
			Action:  "Enter the shared password",
			Code:    "AUTH002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select one or more CSV files",
			Code:    "FILE004",
		},
	},
	{
		pattern: "history disabled",
		msg: UserMessage{
			Message: "Conversion history is not enabled",
			Action:  "Set DATABASE_URL to record conversions",
			Code:    "HIST001",
		},
	},
	{
		pattern: "file limit exceeded",
		msg: UserMessage{
			Message: "Too many files were selected",
			Action:  "Upload fewer files at once",
			Code:    "FILE006",
		},
	},
	{
		pattern: "too many",
		msg: UserMessage{
			Message: "System is busy processing other conversions",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "UPL004",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Try fewer or smaller files",
			Code:    "UPL005",
		},
	},
	{
		pattern: "request body too large",
		msg: UserMessage{
			Message: "Upload is too large",
			Action:  "Upload fewer files at once",
			Code:    "FILE001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. Typed FileErrors
// map by kind; everything else falls back to case-insensitive pattern
// matching, then to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if kind := KindOf(err); kind != KindNone {
		msg := kindMessages[kind]
		if kind == KindParse && errors.Is(err, ErrEncoding) {
			return encodingMessage
		}
		return msg
	}
	if errors.Is(err, ErrAccessDenied) {
		return kindMessages[KindAccessDenied]
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a display string: "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}
