//go:build !unix

package transmit

import (
	"os"
)

var terminationSignals = []os.Signal{os.Interrupt}

var ignoredSignals []os.Signal
