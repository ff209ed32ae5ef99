package model

import "errors"

var (
	// ErrTermTableMissing: the term table cannot be opened or read.
	ErrTermTableMissing = errors.New("term table missing or unreadable")
	// ErrNoTerms: the term table holds no valid term.
	ErrNoTerms = errors.New("no valid terms loaded")
	// ErrTranscriptMissing: the transcript cannot be opened.
	ErrTranscriptMissing = errors.New("transcript missing or unreadable")
	// ErrInvalidFormat: a transcript line is not in file(locator): code form.
	ErrInvalidFormat = errors.New("invalid transcript line format")
)

// IsFatal reports whether err is a precondition failure that must abort the run.
func IsFatal(err error) bool {
	return errors.Is(err, ErrTermTableMissing) ||
		errors.Is(err, ErrNoTerms) ||
		errors.Is(err, ErrTranscriptMissing)
}
