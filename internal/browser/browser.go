// Package browser opens the provider consent page in a detached browser
// window, the desktop equivalent of the login popup.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"
)

// WindowOptions is the requested popup geometry. Desktop browsers launched
// via the system opener ignore it, but openers that control the window
// (embedded webviews, test fakes) honor it, and it is recorded on the
// initiation event.
type WindowOptions struct {
	Width  int
	Height int
	Left   int
	Top    int
}

// DefaultWindowOptions is the fixed popup geometry used for every login so
// the provider consent UX is consistent.
var DefaultWindowOptions = WindowOptions{Width: 600, Height: 800, Left: 200, Top: 100}

// Opener opens an authorization URL in a user-visible browser window.
type Opener interface {
	Open(url string, opts WindowOptions) error
}

// PopupBlockedError is returned when the popup window could not be opened.
// It is surfaced synchronously at initiation time: with no window there is
// no session to carry the failure, so the caller must see it directly.
type PopupBlockedError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *PopupBlockedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("popup blocked: %v", e.Err)
	}
	return "popup blocked"
}

// Unwrap returns the underlying launch error.
func (e *PopupBlockedError) Unwrap() error {
	return e.Err
}

// launcher starts the prepared command. Replaced in tests to avoid opening
// real browser windows.
var launcher = func(cmd *exec.Cmd) error {
	return cmd.Start()
}

// SystemOpener opens URLs with the platform's default browser.
// It supports Linux, macOS, and Windows.
type SystemOpener struct{}

// Open launches the default browser at the given URL. The command is started
// but not waited on; the browser outlives the call.
func (SystemOpener) Open(url string, _ WindowOptions) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return &PopupBlockedError{URL: url, Err: fmt.Errorf("unsupported platform: %s", runtime.GOOS)}
	}

	if err := launcher(cmd); err != nil {
		return &PopupBlockedError{URL: url, Err: err}
	}

	return nil
}
