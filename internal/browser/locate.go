package browser

import (
	"errors"
	"os/exec"
	"runtime"
)

// ErrChromeNotFound means no Chrome or Chromium executable was found.
var ErrChromeNotFound = errors.New("chrome executable not found")

// candidates lists executable names and install paths tried by Locate.
func candidates() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"google-chrome",
			"chromium",
		}
	case "windows":
		return []string{
			"chrome",
			"chrome.exe",
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	default:
		return []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
			"headless_shell",
		}
	}
}

// Locate returns the Chrome executable that will be launched. A non-empty
// execPath is checked as given.
func Locate(execPath string, lookPath func(string) (string, error)) (string, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if execPath != "" {
		return lookPath(execPath)
	}
	for _, name := range candidates() {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}
	return "", ErrChromeNotFound
}
