package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	envAppEnv            = "APP_ENV"
	envAppServiceName    = "APP_SERVICE_NAME"
	envAppServiceVersion = "APP_SERVICE_VERSION"
	envConfigFile        = "CONFIG_FILE"
	envConfigDir         = "CONFIG_DIR"
	envConfigName        = "CONFIG_NAME"
)

const defaultConfigDir = "./configs"

// AppConfig carries service identity and config file location,
// loaded from environment variables before anything else starts.
type AppConfig struct {
	// ConfigFile is the full path to the yaml config file.
	ConfigFile string
	// ServiceName identifies the service in logs and message sources.
	ServiceName string
	// ServiceVersion is the deployed version of the service.
	ServiceVersion string
	// Environment is the deployment environment (e.g. "local", "staging", "pro").
	Environment string
}

// newAppConfig reads identity from the environment. A .env file is loaded
// first if present; missing .env is not an error.
func newAppConfig() (AppConfig, error) {
	_ = godotenv.Load()

	env := os.Getenv(envAppEnv)
	if env == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppEnv)
	}
	serviceName := os.Getenv(envAppServiceName)
	if serviceName == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppServiceName)
	}
	serviceVersion := os.Getenv(envAppServiceVersion)
	if serviceVersion == "" {
		return AppConfig{}, fmt.Errorf("%s is required", envAppServiceVersion)
	}

	configFile := os.Getenv(envConfigFile)
	if configFile == "" {
		configDir := os.Getenv(envConfigDir)
		if configDir == "" {
			configDir = defaultConfigDir
		}
		configName := os.Getenv(envConfigName)
		if configName == "" {
			configName = "config." + env
		}
		configFile = filepath.Join(configDir, configName+".yaml")
	}

	return AppConfig{
		ConfigFile:     configFile,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    env,
	}, nil
}
