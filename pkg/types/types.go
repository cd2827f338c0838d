package types

// Attributes are the global attributes of a data file, keyed by name.
type Attributes map[string]string

// Context is the per-dataset metadata accumulated by a handler across the
// representative files of a dataset.
type Context map[string]string

// Merge copies fields from other into c without overwriting fields that are
// already initialized (non-empty).
func (c Context) Merge(other Context) {
	for k, v := range other {
		if c[k] == "" {
			c[k] = v
		}
	}
}

// Clone returns a shallow copy of the context.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Credential is one messaging service entry from pid_credentials.
type Credential struct {
	URL        string `json:"url"`
	Port       string `json:"port"`
	VHost      string `json:"vhost"`
	User       string `json:"user"`
	Password   string `json:"password"`
	SSLEnabled bool   `json:"ssl_enabled"`
	Priority   int    `json:"priority"`
}

// PIDConfig is the messaging configuration used for PID registration.
type PIDConfig struct {
	Exchange    string       `json:"exchange"`
	Credentials []Credential `json:"credentials"`
}
