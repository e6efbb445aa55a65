package server

// DefaultOptions returns the recommended set of options for production use:
// panic recovery, request IDs and the health service.
func DefaultOptions() []Option {
	return []Option{
		WithRecovery(),
		WithRequestID(),
		WithHealth(),
	}
}
