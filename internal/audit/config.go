package audit

// Audit output targets.
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
)

// Config contains audit logging configuration.
type Config struct {
	// Enabled turns audit output on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Output is stdout, stderr or a file path.
	Output string `yaml:"output,omitempty" json:"output,omitempty"`

	// SkipTypes lists event types that are not written.
	SkipTypes []EventType `yaml:"skipTypes,omitempty" json:"skipTypes,omitempty"`
}

// DefaultConfig returns the default audit configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Output:  OutputStdout,
	}
}

// GetEffectiveOutput returns the output, defaulting to stdout.
func (c *Config) GetEffectiveOutput() string {
	if c.Output == "" {
		return OutputStdout
	}
	return c.Output
}

func (c *Config) skips(t EventType) bool {
	for _, s := range c.SkipTypes {
		if s == t {
			return true
		}
	}
	return false
}
