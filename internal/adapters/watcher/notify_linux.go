//go:build linux

package watcher

import "github.com/rjeczalik/notify"

// closeWriteEvent is inotify's IN_CLOSE_WRITE.
const closeWriteEvent = notify.InCloseWrite
