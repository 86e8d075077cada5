package notifier

import (
	"fmt"
	"io"
	"sync"

	"github.com/amirphl/alertdesk/internal/utils"
)

// TerminalNotifier logs messages and rings the terminal bell for sounds.
type TerminalNotifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminalNotifier(out io.Writer) *TerminalNotifier {
	return &TerminalNotifier{out: out}
}

func (t *TerminalNotifier) Notify(message, title string, severity Severity) error {
	log := utils.GetLogger()
	switch severity {
	case SeverityError:
		log.Errorw(message, "title", title)
	case SeverityWarning:
		log.Warnw(message, "title", title)
	default:
		log.Infow(message, "title", title, "severity", severity.String())
	}
	return nil
}

func (t *TerminalNotifier) PlaySound(cue string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := fmt.Fprint(t.out, "\a"); err != nil {
		return fmt.Errorf("failed to play %s cue: %w", cue, err)
	}
	return nil
}
