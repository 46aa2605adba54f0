package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Spinner shows activity while a call is in flight (login, api refresh,
// upload). It renders only on terminals; piped output stays clean.
type Spinner struct {
	frames   []string
	current  int
	prefix   string
	mu       sync.Mutex
	writer   io.Writer
	active   bool
	colorize bool
	done     chan struct{}
	started  time.Time
}

// NewSpinner creates a spinner with the given prefix text.
func NewSpinner(prefix string) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		prefix:   prefix,
		writer:   os.Stdout,
		colorize: IsTerminal(),
	}
}

// SetWriter sets the output writer.
func (s *Spinner) SetWriter(w io.Writer) *Spinner {
	s.writer = w
	return s
}

// Start begins animating. No-op when output is not a terminal.
func (s *Spinner) Start() {
	if !IsTerminal() {
		return
	}
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.done = make(chan struct{})
	s.started = time.Now()
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				if !s.active {
					s.mu.Unlock()
					return
				}
				s.render()
				s.current = (s.current + 1) % len(s.frames)
				s.mu.Unlock()
			case <-s.done:
				return
			}
		}
	}()
}

// Stop halts the spinner and clears its line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	close(s.done)
	fmt.Fprint(s.writer, "\r"+strings.Repeat(" ", 80)+"\r")
}

// Succeed stops the spinner and prints a success line.
func (s *Spinner) Succeed(message string) {
	s.Stop()
	Success(message)
}

// Fail stops the spinner and prints an error line.
func (s *Spinner) Fail(message string) {
	s.Stop()
	Error(message)
}

func (s *Spinner) render() {
	frame := s.frames[s.current]
	if s.colorize {
		frame = ColorCyan + frame + ColorReset
	}
	out := fmt.Sprintf("\r%s %s", frame, s.prefix)
	if elapsed := time.Since(s.started); elapsed > 2*time.Second {
		out += " " + Colorize("("+FormatDuration(elapsed)+")", ColorDim)
	}
	fmt.Fprint(s.writer, out)
}

// FormatDuration renders a duration for status lines: seconds under a
// minute, then m/s, then h/m.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
