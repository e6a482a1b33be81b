//go:build unix

package transmit

import (
	"os"

	"golang.org/x/sys/unix"
)

var terminationSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGQUIT}

var ignoredSignals = []os.Signal{unix.SIGPIPE}
