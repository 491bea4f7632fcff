package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig     = "SLIDECAST_CONFIG"
	EnvClientID   = "SLIDECAST_CLIENT_ID"
	EnvTenantID   = "SLIDECAST_TENANT_ID"
	EnvStagingDir = "SLIDECAST_STAGING_DIR"
	EnvEngine     = "SLIDECAST_ENGINE"
)

// EnvOverrides holds values read from environment variables.
type EnvOverrides struct {
	ConfigPath string
	ClientID   string
	TenantID   string
	StagingDir string
	Engine     string
}

// ReadEnvOverrides reads the SLIDECAST_* environment variables.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		ClientID:   os.Getenv(EnvClientID),
		TenantID:   os.Getenv(EnvTenantID),
		StagingDir: os.Getenv(EnvStagingDir),
		Engine:     os.Getenv(EnvEngine),
	}
}
