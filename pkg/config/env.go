package config

// Values of MEDFLOW_SERVER_ENVIRONMENT.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
	EnvTest        = "test"
)

// IsDevelopment enables console logs and the /debug profiler.
func (c *ServerConfig) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// IsProductionLike is true where localhost defaults for the audit store and
// broker are refused.
func (c *ServerConfig) IsProductionLike() bool {
	switch c.Environment {
	case EnvStaging, EnvProduction:
		return true
	}
	return false
}
