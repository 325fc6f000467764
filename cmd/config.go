/*
Copyright © 2025 Codervisor
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/codervisor/devlog/internal/logger"
	"github.com/codervisor/devlog/types"
)

const (
	configName = ".devlog"
	envPrefix  = "DEVLOG"
)

// GlobalAppConfig holds the global application configuration instance.
var GlobalAppConfig types.AppConfig

// validate is a single validator instance; it caches struct info.
var validateCfg *validator.Validate

func init() {
	validateCfg = validator.New()
}

// validateAppConfig performs validation on the AppConfig struct.
func validateAppConfig(config *types.AppConfig) error {
	return validateCfg.Struct(config)
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	// Load .env first if present; this is where GITHUB_TOKEN style
	// secrets usually live. A missing .env is fine.
	_ = godotenv.Load()

	// Environment variable handling must be set up before reading the
	// config file so env vars can influence config loading.
	viper.SetEnvPrefix(envPrefix) // e.g. DEVLOG_VERBOSE
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfgFileFlag := viper.GetString("config")

	// The project's devlog directory doubles as the config search path,
	// so a repo can carry its own .devlog/.devlog.yaml.
	projectConfigDir := viper.GetString("storage.rootDir")
	if projectConfigDir == "" {
		projectConfigDir = ".devlog"
	}

	if cfgFileFlag != "" {
		viper.SetConfigFile(cfgFileFlag)
	} else {
		if _, err := os.Stat(projectConfigDir); !os.IsNotExist(err) {
			viper.AddConfigPath(projectConfigDir)
			viper.SetConfigName(configName)
		} else {
			home, err := os.UserHomeDir()
			cobra.CheckErr(err)
			viper.AddConfigPath(home)
			viper.AddConfigPath(".")
			viper.SetConfigName(configName)
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if cfgFileFlag != "" {
				fmt.Fprintln(os.Stderr, "Error: Specified config file not found:", cfgFileFlag)
			} else if viper.GetBool("verbose") {
				fmt.Fprintln(os.Stderr, "No config file found. Using defaults and environment variables.")
			}
		} else {
			fmt.Fprintln(os.Stderr, "Error reading config file:", viper.ConfigFileUsed(), "-", err)
		}
	}

	// Set default values
	viper.SetDefault("workspace", "default")
	viper.SetDefault("storage.type", string(types.StorageGitJSON))
	viper.SetDefault("storage.rootDir", ".devlog")
	viper.SetDefault("storage.file", "devlog.json")
	viper.SetDefault("storage.format", "json")
	viper.SetDefault("storage.database", "devlog.db")
	viper.SetDefault("storage.git.branch", types.DefaultGitBranch)
	viper.SetDefault("storage.git.autoSync", false)
	viper.SetDefault("storage.git.autoSyncIntervalSeconds", 300)
	viper.SetDefault("storage.git.commandTimeoutSeconds", 60)
	viper.SetDefault("storage.git.conflictResolution", string(types.ConflictTimestampWins))

	if err := viper.Unmarshal(&GlobalAppConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Error unmarshaling config: %s\n", err)
		os.Exit(1)
	}

	// Handle a config file that exists but misses these nested keys.
	if GlobalAppConfig.Storage.RootDir == "" {
		GlobalAppConfig.Storage.RootDir = viper.GetString("storage.rootDir")
	}
	if GlobalAppConfig.Workspace == "" {
		GlobalAppConfig.Workspace = viper.GetString("workspace")
	}
	GlobalAppConfig.Storage.Normalize()

	// External system tokens may come from the environment rather than
	// the config file; fill them in before validation.
	for i := range GlobalAppConfig.External.Systems {
		sys := &GlobalAppConfig.External.Systems[i]
		if sys.Token == "" && sys.Kind == "github" {
			sys.Token = os.Getenv("GITHUB_TOKEN")
		}
	}

	if err := validateAppConfig(&GlobalAppConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration validation error: %s\n", err)
		os.Exit(1)
	}

	logger.SetBasePath(GlobalAppConfig.Storage.RootDir)
	logger.SetWorkspace(GlobalAppConfig.Workspace)
	logger.SetBackend(string(GlobalAppConfig.Storage.Type))
}

// GetConfig returns a pointer to the global types.AppConfig instance.
func GetConfig() *types.AppConfig {
	return &GlobalAppConfig
}
