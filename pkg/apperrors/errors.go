package apperrors

import "errors"

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation failed")

	// AI capability failures. Each wraps the classified transport error.
	ErrIdentification = errors.New("plant identification failed")
	ErrGuideParse     = errors.New("care guide response could not be parsed")
	ErrDiagnosis      = errors.New("plant diagnosis failed")
	ErrChat           = errors.New("chat request failed")

	ErrInvalidGuide = errors.New("invalid care guide")
	ErrPersistence  = errors.New("garden could not be saved")
)

// User-facing messages shown in place of raw errors.
const (
	MessageIdentification = "Could not identify the plant. Please try another image."
	MessageGuideParse     = "Could not retrieve care instructions for this plant."
	MessageDiagnosis      = "Could not diagnose the plant. Please try another photo."
	MessageChat           = "Sorry, I seem to be having trouble. Please try again in a moment."
	MessagePersistence    = "Your garden could not be saved. Your changes are kept for now but may be lost on restart."
	MessageNotFound       = "That plant is not in your garden."
	MessageUnknown        = "An unknown error occurred."
)

// UserMessage maps an error to the fixed message the presentation layer shows.
// Validation and conflict errors carry their own text, which is returned as is.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIdentification):
		return MessageIdentification
	case errors.Is(err, ErrGuideParse), errors.Is(err, ErrInvalidGuide):
		return MessageGuideParse
	case errors.Is(err, ErrDiagnosis):
		return MessageDiagnosis
	case errors.Is(err, ErrChat):
		return MessageChat
	case errors.Is(err, ErrPersistence):
		return MessagePersistence
	case errors.Is(err, ErrNotFound):
		return MessageNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConflict):
		return err.Error()
	default:
		return MessageUnknown
	}
}
