// Package browser opens URLs in the user's default web browser. The flow
// treats it as an opaque "present this URL" side effect.
package browser

import (
	"fmt"
	"os/exec"
	"runtime"

	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// OpenURL opens url in the default browser, falling back to OS-specific
// commands when the open library fails.
func OpenURL(url string) error {
	err := open.Run(url)
	if err == nil {
		return nil
	}
	log.Debugf("open-golang failed: %v, trying platform command", err)
	return openPlatform(url)
}

func openPlatform(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "linux":
		return exec.Command("xdg-open", url).Start()
	default:
		return fmt.Errorf("unsupported platform %s, open the URL manually", runtime.GOOS)
	}
}
