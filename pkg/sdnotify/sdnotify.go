// Package sdnotify sends systemd service notifications (READY,
// WATCHDOG, STATUS, STOPPING) over the notify socket. Absence of the
// socket (not running under systemd) is a silent no-op, matching
// spec'd optional integration.
package sdnotify

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready signals systemd that initialization is complete.
func Ready() {
	notify("READY=1")
}

// Watchdog pings the systemd watchdog after a healthy cycle.
func Watchdog() {
	notify("WATCHDOG=1")
}

// Status reports free-form status text, shown in `systemctl status`.
func Status(msg string, args ...interface{}) {
	notify("STATUS=" + fmt.Sprintf(msg, args...))
}

// Degraded reports a degraded status with the failure count.
func Degraded(consecutiveFailures int) {
	Status("Degraded - %d failures", consecutiveFailures)
}

// Stopping signals systemd that shutdown has begun.
func Stopping() {
	notify("STOPPING=1")
}

func notify(state string) {
	// SdNotify returns (false, nil) when NOTIFY_SOCKET is unset, which
	// is the expected case outside of systemd; errors beyond that are
	// not actionable here so are swallowed deliberately.
	_, _ = daemon.SdNotify(false, state)
}
