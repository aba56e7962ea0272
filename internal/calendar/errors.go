package calendar

import (
	"errors"
	"fmt"
)

// ErrorKind classifies calendar failures so callers can map them to a
// response without inspecting messages.
type ErrorKind int

// ErrorKind values
const (
	ErrKindUnexpected ErrorKind = iota
	ErrKindTimeout
	ErrKindConnection
	ErrKindParse
	ErrKindNotFound
	ErrKindBusy
	ErrKindValidation
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindTimeout:
		return "timeout"
	case ErrKindConnection:
		return "connection"
	case ErrKindParse:
		return "parse"
	case ErrKindNotFound:
		return "not_found"
	case ErrKindBusy:
		return "busy"
	case ErrKindValidation:
		return "validation"
	default:
		return "unexpected"
	}
}

// User-facing messages. These are shown to hosts as-is and stored on the
// source as its last error.
const (
	msgTimeout        = "Timeout: Le serveur ne répond pas"
	msgConnection     = "Erreur de connexion: %s"
	msgParse          = "Erreur de parsing iCal: %s"
	msgSourceNotFound = "Source de calendrier introuvable"
	msgBusy           = "Synchronisation déjà en cours"
	msgUnexpected     = "Erreur inattendue: %s"
)

// CalendarError is the single error type produced by the calendar engine.
type CalendarError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *CalendarError) Error() string {
	return e.Message
}

func (e *CalendarError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is, or wraps, a CalendarError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *CalendarError
	return errors.As(err, &ce) && ce.Kind == kind
}

func timeoutError(err error) *CalendarError {
	return &CalendarError{Kind: ErrKindTimeout, Message: msgTimeout, Err: err}
}

func connectionError(err error) *CalendarError {
	return &CalendarError{Kind: ErrKindConnection, Message: fmt.Sprintf(msgConnection, err), Err: err}
}

func parseError(err error) *CalendarError {
	return &CalendarError{Kind: ErrKindParse, Message: fmt.Sprintf(msgParse, err), Err: err}
}

func notFoundError() *CalendarError {
	return &CalendarError{Kind: ErrKindNotFound, Message: msgSourceNotFound}
}

func busyError() *CalendarError {
	return &CalendarError{Kind: ErrKindBusy, Message: msgBusy}
}

func validationError(format string, args ...any) *CalendarError {
	return &CalendarError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

// asCalendarError passes CalendarErrors through and wraps anything else as unexpected.
func asCalendarError(err error) *CalendarError {
	var ce *CalendarError
	if errors.As(err, &ce) {
		return ce
	}
	return &CalendarError{Kind: ErrKindUnexpected, Message: fmt.Sprintf(msgUnexpected, err), Err: err}
}
