package process

import (
	"log/slog"

	"github.com/viant/scy/cred/secret"
	cssh "golang.org/x/crypto/ssh"
)

// Option represents a Windows option
type Option func(w *Windows)

// WithHost runs popups on a remote host over ssh.
func WithHost(host string) Option {
	return func(w *Windows) {
		w.host = host
	}
}

// WithSecret sets the scy secret resource holding the ssh credentials.
func WithSecret(resource secret.Resource) Option {
	return func(w *Windows) {
		w.secret = resource
	}
}

// WithSSHConfig sets the ssh client config directly.
func WithSSHConfig(config *cssh.ClientConfig) Option {
	return func(w *Windows) {
		w.sshConfig = config
	}
}

// WithEnvironment adds an environment variable to every popup process.
func WithEnvironment(key, value string) Option {
	return func(w *Windows) {
		if w.env == nil {
			w.env = map[string]string{}
		}
		w.env[key] = value
	}
}

// WithRunnerFactory replaces the gosh runner construction.
func WithRunnerFactory(factory RunnerFactory) Option {
	return func(w *Windows) {
		w.factory = factory
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Windows) {
		if logger != nil {
			w.logger = logger
		}
	}
}
