// Package cli provides terminal output for the bridgectl tool: colored
// status lines, hourly usage meters and a request spinner.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Color codes for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorBlue   = "\033[34m"
	ColorPurple = "\033[35m"
	ColorCyan   = "\033[36m"
	ColorWhite  = "\033[37m"
	ColorBold   = "\033[1m"
)

// UsageMeter renders consumed allowance against a limit as a bar. Unlike a
// task progress bar the colors run green to red as the bar fills, because a
// full hourly window means throttled swaps.
type UsageMeter struct {
	width    int
	prefix   string
	writer   io.Writer
	colorize bool
}

// NewUsageMeter creates a usage meter labelled with prefix.
func NewUsageMeter(prefix string) *UsageMeter {
	return &UsageMeter{
		width:    50,
		prefix:   prefix,
		writer:   os.Stdout,
		colorize: isTerminal(),
	}
}

// SetWriter sets the output writer.
func (m *UsageMeter) SetWriter(w io.Writer) *UsageMeter {
	m.writer = w
	return m
}

// DisableColor disables colored output.
func (m *UsageMeter) DisableColor() *UsageMeter {
	m.colorize = false
	return m
}

// Render prints one meter line. Percent is clamped to [0, 100]; caption is
// appended verbatim, typically the raw used/limit figures.
func (m *UsageMeter) Render(percent float64, caption string) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(float64(m.width) * percent / 100)

	bar := strings.Repeat("█", filled) + strings.Repeat("░", m.width-filled)
	if m.colorize {
		switch {
		case percent < 50:
			bar = ColorGreen + bar + ColorReset
		case percent < 85:
			bar = ColorYellow + bar + ColorReset
		default:
			bar = ColorRed + bar + ColorReset
		}
	}

	line := fmt.Sprintf("%s [%s] %.1f%%", m.prefix, bar, percent)
	if caption != "" {
		line += " " + caption
	}
	fmt.Fprintln(m.writer, line)
}

// Spinner shows activity while a request is in flight.
type Spinner struct {
	frames   []string
	current  int
	prefix   string
	mu       sync.Mutex
	writer   io.Writer
	active   bool
	colorize bool
	done     chan bool
}

// NewSpinner creates a new spinner.
func NewSpinner(prefix string) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		prefix:   prefix,
		writer:   os.Stdout,
		colorize: isTerminal(),
		done:     make(chan bool),
	}
}

// Start starts the spinner.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
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

// Stop stops the spinner and clears the line.
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

// Success stops the spinner and shows a success message.
func (s *Spinner) Success(message string) {
	s.Stop()
	if s.colorize {
		fmt.Fprintf(s.writer, "%s✓%s %s\n", ColorGreen, ColorReset, message)
	} else {
		fmt.Fprintf(s.writer, "✓ %s\n", message)
	}
}

// Error stops the spinner and shows an error message.
func (s *Spinner) Error(message string) {
	s.Stop()
	if s.colorize {
		fmt.Fprintf(s.writer, "%s✗%s %s\n", ColorRed, ColorReset, message)
	} else {
		fmt.Fprintf(s.writer, "✗ %s\n", message)
	}
}

func (s *Spinner) render() {
	frame := s.frames[s.current]
	if s.colorize {
		frame = ColorCyan + frame + ColorReset
	}
	fmt.Fprintf(s.writer, "\r%s %s", frame, s.prefix)
}

// Helper functions

// Colorize returns a colored string.
func Colorize(text string, color string) string {
	if !isTerminal() {
		return text
	}
	return color + text + ColorReset
}

// Success prints a success message.
func Success(message string) {
	if isTerminal() {
		fmt.Printf("%s✓%s %s\n", ColorGreen, ColorReset, message)
	} else {
		fmt.Printf("✓ %s\n", message)
	}
}

// Error prints an error message.
func Error(message string) {
	if isTerminal() {
		fmt.Printf("%s✗%s %s\n", ColorRed, ColorReset, message)
	} else {
		fmt.Printf("✗ %s\n", message)
	}
}

// Warning prints a warning message.
func Warning(message string) {
	if isTerminal() {
		fmt.Printf("%s⚠%s %s\n", ColorYellow, ColorReset, message)
	} else {
		fmt.Printf("⚠ %s\n", message)
	}
}

// Info prints an info message.
func Info(message string) {
	if isTerminal() {
		fmt.Printf("%sℹ%s %s\n", ColorBlue, ColorReset, message)
	} else {
		fmt.Printf("ℹ %s\n", message)
	}
}

// isTerminal checks if stdout is a terminal.
func isTerminal() bool {
	fileInfo, _ := os.Stdout.Stat()
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
