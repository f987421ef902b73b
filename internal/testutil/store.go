package testutil

import (
	"errors"

	"github.com/brianly1003/lobo/internal/domain/ports"
)

// ErrStoreBroken is returned by every BrokenStore operation.
var ErrStoreBroken = errors.New("store unavailable")

// BrokenStore is a ports.Store whose reads and writes always fail.
type BrokenStore struct{}

func (BrokenStore) Read(string) (string, bool, error) { return "", false, ErrStoreBroken }
func (BrokenStore) Write(string, string) error        { return ErrStoreBroken }
func (BrokenStore) Flush() error                      { return ErrStoreBroken }
func (BrokenStore) Close() error                      { return nil }

var _ ports.Store = BrokenStore{}
