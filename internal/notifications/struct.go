package notifications

import "time"

// Webhook is an HTTP endpoint receiving JSON notifications.
type Webhook struct {
	URL      string `mapstructure:"webhook-url"`
	Username string `mapstructure:"webhook-username"`
	Password string `mapstructure:"webhook-password"`
	// Insecure skips TLS certificate verification of the endpoint.
	Insecure bool          `mapstructure:"webhook-insecure"`
	Timeout  time.Duration `mapstructure:"-"`
}

// SweepFailure summarises a sweep that finished with failed stacks.
type SweepFailure struct {
	Service   string         `json:"service"`
	SweepID   string         `json:"sweep_id"`
	Provider  string         `json:"provider"`
	Prefix    string         `json:"prefix"`
	Failed    int            `json:"failed"`
	Succeeded int            `json:"succeeded"`
	Failures  []StackFailure `json:"failures"`
}

type StackFailure struct {
	Stack string `json:"stack"`
	State string `json:"state"`
	Error string `json:"error"`
}
