package models

import (
	"fmt"
	"strings"
	"time"
)

// Backend selects how availability is looked up
type Backend string

const (
	BackendAPI      Backend = "api"
	BackendRendered Backend = "rendered"
	BackendAuto     Backend = "auto"
)

// ParseBackend normalizes a configured backend name. An empty name means
// auto; "playwright" is accepted as an older spelling of rendered.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return BackendAuto, nil
	case "api":
		return BackendAPI, nil
	case "rendered", "playwright", "browser":
		return BackendRendered, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownBackend, s)
}

// Check is the outcome of one monitoring pass
type Check struct {
	RunID      string    `json:"run_id"`
	Identifier string    `json:"identifier"`
	Available  int       `json:"available"`
	Threshold  int       `json:"threshold"`
	Backend    Backend   `json:"backend"`
	CheckedAt  time.Time `json:"checked_at"`
	Notified   bool      `json:"notified"`
}

// Below reports whether availability dropped under the alert threshold
func (c Check) Below() bool {
	return c.Available < c.Threshold
}

// StatusLine is the single line printed at the end of a run
func (c Check) StatusLine() string {
	return fmt.Sprintf("%s → %d (threshold %d) via %s", c.Identifier, c.Available, c.Threshold, c.Backend)
}

// AlertText is the chat message sent when availability is below threshold
func (c Check) AlertText(pageURL string) string {
	return fmt.Sprintf("⚠️ %s availability is %d (< %d).\n%s", c.Identifier, c.Available, c.Threshold, pageURL)
}
