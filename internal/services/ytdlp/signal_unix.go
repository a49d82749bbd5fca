//go:build unix

package ytdlp

import "golang.org/x/sys/unix"

var terminateSignal = unix.SIGTERM
