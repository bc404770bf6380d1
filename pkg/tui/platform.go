package tui

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/atotto/clipboard"
)

// Tests swap these out to avoid touching the desktop.
var (
	copyToClipboardFn = clipboard.WriteAll
	openURLFn         = openURLImpl
)

// CopyToClipboard copies text to the system clipboard.
func CopyToClipboard(text string) error { return copyToClipboardFn(text) }

// OpenURL opens url in the default browser.
func OpenURL(url string) error { return openURLFn(url) }

// The browser outlives the call, so the command gets no deadline.
func openURLImpl(url string) error {
	ctx := context.Background()
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", url)
	case "linux":
		if _, err := exec.LookPath("xdg-open"); err != nil {
			return fmt.Errorf("xdg-open not found (install xdg-utils)")
		}
		cmd = exec.CommandContext(ctx, "xdg-open", url)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
