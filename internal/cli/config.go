package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/recordkit/internal/paths"
	"github.com/mesh-intelligence/recordkit/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "RECORDKIT"

	cfgKeyBackend    = "backend"
	cfgKeyDataDir    = "data_dir"
	cfgKeyDSN        = "dsn"
	cfgKeyLogLevel   = "log_level"
	cfgKeyLogFormat  = "log_format"
	cfgKeyBcryptCost = "bcrypt_cost"
)

// configFile holds the structure written to config.yaml by init.
type configFile struct {
	Backend    string `yaml:"backend"`
	DataDir    string `yaml:"data_dir,omitempty"`
	DSN        string `yaml:"dsn,omitempty"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

// loadConfig reads config.yaml from configDir. A missing file is not an
// error: defaults and RECORDKIT_* environment variables still apply.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyBackend, types.BackendSQLite)
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyLogFormat, "text")
	v.SetDefault(cfgKeyBcryptCost, bcrypt.DefaultCost)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// storeConfig builds the store configuration, resolving the data directory
// with the --data-dir flag taking precedence over config.yaml.
func (a *app) storeConfig() (types.Config, error) {
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, a.cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return types.Config{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return types.Config{
		Backend: a.cfg.GetString(cfgKeyBackend),
		DataDir: dataDir,
		DSN:     a.cfg.GetString(cfgKeyDSN),
	}, nil
}

// writeConfigIfMissing creates config.yaml from the effective settings if
// the file does not exist. An existing file is left untouched.
func writeConfigIfMissing(path string, cfg configFile) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
