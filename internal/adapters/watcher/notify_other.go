//go:build !linux

package watcher

import "github.com/rjeczalik/notify"

// closeWriteEvent falls back to plain writes where close-write is not
// reported by the OS.
const closeWriteEvent = notify.Write
