package seeder

import "seedgraph/core/reconcile"

// Config holds configuration for a seeding session.
type Config struct {
	// Policy is the duplicate-key policy (halt, merge, skip, always_add).
	Policy string `mapstructure:"policy" default:"halt"`
	// MaxKeyAttempts bounds key synthesis under the always_add policy.
	MaxKeyAttempts int `mapstructure:"max_key_attempts" default:"100"`
}

// IsValidPolicy checks if the configured policy is supported.
func (c Config) IsValidPolicy() bool {
	_, err := reconcile.ParsePolicy(c.Policy)
	return err == nil
}
