package auth

import (
	"context"
	"os"

	"github.com/pkg/browser"
)

func init() {
	// stdout carries command output and the serve protocol.
	browser.Stdout = os.Stderr
}

// OpenBrowser opens authURL in the user's default browser.
func OpenBrowser(ctx context.Context, authURL string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return browser.OpenURL(authURL)
}
