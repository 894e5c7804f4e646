//go:build windows

package main

import (
	"os"
)

func setupResizeSignal() (chan os.Signal, func()) {
	// no SIGWINCH; the channel never receives
	return make(chan os.Signal, 1), func() {}
}
