// Package browser opens URLs outside the terminal and copies text to the
// terminal clipboard.
package browser

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrNoOpener is returned when no way to open a URL is available.
var ErrNoOpener = errors.New("no browser available")

// Opener opens a URL in an external application.
type Opener interface {
	Open(url string) error
}

// CommandOpener runs a command with the URL appended as the last argument.
type CommandOpener struct {
	// Command overrides the platform opener, e.g. "firefox --new-tab".
	Command string

	goos  string
	start func(name string, args ...string) error
}

// NewCommandOpener creates an opener for the configured command, or the
// platform default when command is empty.
func NewCommandOpener(command string) *CommandOpener {
	return &CommandOpener{Command: command, goos: runtime.GOOS, start: startDetached}
}

func (o *CommandOpener) Open(url string) error {
	argv := o.argv(url)
	if len(argv) == 0 {
		return ErrNoOpener
	}
	start := o.start
	if start == nil {
		start = startDetached
	}
	if err := start(argv[0], argv[1:]...); err != nil {
		return fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	return nil
}

func (o *CommandOpener) argv(url string) []string {
	if fields := strings.Fields(o.Command); len(fields) > 0 {
		return append(fields, url)
	}
	switch o.goos {
	case "darwin":
		return []string{"open", url}
	case "windows":
		return []string{"rundll32", "url.dll,FileProtocolHandler", url}
	case "linux", "freebsd", "openbsd", "netbsd":
		return []string{"xdg-open", url}
	}
	return nil
}

// EnvOpener opens URLs with the browser named in $BROWSER.
type EnvOpener struct {
	getenv func(string) string
	start  func(name string, args ...string) error
}

// NewEnvOpener creates an opener that reads $BROWSER at call time.
func NewEnvOpener() *EnvOpener {
	return &EnvOpener{getenv: os.Getenv, start: startDetached}
}

func (o *EnvOpener) Open(url string) error {
	getenv := o.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	fields := strings.Fields(getenv("BROWSER"))
	if len(fields) == 0 {
		return ErrNoOpener
	}
	start := o.start
	if start == nil {
		start = startDetached
	}
	if err := start(fields[0], append(fields[1:], url)...); err != nil {
		return fmt.Errorf("failed to run %s: %w", fields[0], err)
	}
	return nil
}

// Fallback tries Primary and, if it fails, Secondary.
type Fallback struct {
	Primary   Opener
	Secondary Opener
}

func (f Fallback) Open(url string) error {
	if f.Primary == nil && f.Secondary == nil {
		return ErrNoOpener
	}
	var firstErr error
	if f.Primary != nil {
		if firstErr = f.Primary.Open(url); firstErr == nil {
			return nil
		}
	}
	if f.Secondary == nil {
		return firstErr
	}
	if err := f.Secondary.Open(url); err != nil {
		if firstErr != nil {
			return fmt.Errorf("%v; fallback: %w", firstErr, err)
		}
		return err
	}
	return nil
}

// Default returns the platform opener with $BROWSER as fallback.
func Default(command string) Opener {
	return Fallback{Primary: NewCommandOpener(command), Secondary: NewEnvOpener()}
}

// startDetached launches the command without waiting for it to exit.
func startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// CopyToClipboard writes text to the terminal clipboard using OSC52.
// The writer defaults to stdout when nil.
func CopyToClipboard(text string, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	_, err := fmt.Fprintf(w, "\u001b]52;c;%s\u0007", encoded)
	return err
}
