package ports

// Store is the key-value persistence collaborator.
type Store interface {
	// Read returns the value for key and whether it was present.
	Read(key string) (string, bool, error)

	// Write sets the value for key.
	Write(key, value string) error

	// Flush makes previous writes durable.
	Flush() error

	// Close releases the store.
	Close() error
}
