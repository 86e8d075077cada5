// Package notifier
package notifier

import "errors"

// Severity of a user-facing notification.
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Sound cues.
const (
	CueAlert = "alert"
)

// Notifier delivers user-facing messages and audible cues.
type Notifier interface {
	Notify(message, title string, severity Severity) error
	PlaySound(cue string) error
}

// Multi fans a notification out to several notifiers. Every notifier is
// tried; errors are joined.
type Multi []Notifier

func (m Multi) Notify(message, title string, severity Severity) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(message, title, severity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) PlaySound(cue string) error {
	var errs []error
	for _, n := range m {
		if err := n.PlaySound(cue); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Silent drops every sound and forwards messages to the wrapped notifier.
type Silent struct {
	Notifier
}

func (Silent) PlaySound(string) error { return nil }
