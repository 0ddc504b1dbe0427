package orchestrator

// DefaultPreamble opens every prompt unless configured otherwise.
const DefaultPreamble = "Please respond to the following user message in a helpful and friendly manner."

// Config holds configuration for the orchestrator.
type Config struct {
	// Preamble is the instruction placed before the context and the user
	// message. Empty means DefaultPreamble.
	Preamble string
}

func (c Config) preamble() string {
	if c.Preamble == "" {
		return DefaultPreamble
	}
	return c.Preamble
}
