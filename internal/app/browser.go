package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"runtime"
	"time"
)

// browserMethod represents a method to open the browser
type browserMethod struct {
	name string
	cmd  string
	args []string
}

// browserOpenMethods returns platform-specific browser opening methods
func browserOpenMethods(url string) []browserMethod {
	switch runtime.GOOS {
	case "windows":
		return []browserMethod{
			{name: "start_command", cmd: "cmd", args: []string{"/c", "start", "", url}},
			{name: "rundll32", cmd: "rundll32", args: []string{"url.dll,FileProtocolHandler", url}},
		}
	case "darwin":
		return []browserMethod{{name: "open", cmd: "open", args: []string{url}}}
	default:
		return []browserMethod{
			{name: "xdg-open", cmd: "xdg-open", args: []string{url}},
			{name: "sensible-browser", cmd: "sensible-browser", args: []string{url}},
		}
	}
}

// OpenBrowser waits until the health endpoint answers, then opens the UI in
// the default browser. It gives up when ctx is done.
func (a *Application) OpenBrowser(ctx context.Context) {
	url := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	client := &http.Client{Timeout: time.Second}

	for attempt := 1; attempt <= 10; attempt++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}

		resp, err := client.Get(url + "/api/health")
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			continue
		}

		for _, method := range browserOpenMethods(url) {
			if err := exec.CommandContext(ctx, method.cmd, method.args...).Start(); err != nil {
				a.Logger.DebugContext(ctx, "Browser open method failed",
					slog.String("method", method.name),
					slog.String("error", err.Error()))
				continue
			}
			a.Logger.InfoContext(ctx, "Browser opened", slog.String("url", url))
			return
		}
		fmt.Printf("\neduaudit is running. Open %s in your browser.\n\n", url)
		return
	}
	a.Logger.WarnContext(ctx, "Server did not become ready for browser opening", slog.String("url", url))
}
