package configloader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Prefix of the environment variables overriding the configuration
const ENVIRONMENT_PREFIX = "PARSER_LAUNCHER"

var (
	ErrInvalidHost     = errors.New("invalid bind host")
	ErrInvalidPort     = errors.New("invalid bind port")
	ErrInvalidLogLevel = errors.New("invalid log level")

	ErrInvalidEnvironment = errors.New("invalid extra environment variable")
)

// Structure to bind application parameters
type Config struct {
	LogLevel             string   `mapstructure:"LOG_LEVEL"`     // logrus library log level to be assigned
	Host                 string   `mapstructure:"HOST"`          // interface the child should bind to
	Port                 string   `mapstructure:"PORT"`          // port the child should bind to
	ApplicationDirectory string   `mapstructure:"APP_DIR"`       // relative to the launcher executable unless absolute
	EntryPoint           string   `mapstructure:"ENTRY_POINT"`   // file started inside the application directory
	Interpreter          string   `mapstructure:"INTERPRETER"`   // empty to execute the entry point directly
	ToolPaths            []string `mapstructure:"TOOL_PATHS"`    // appended to the child PATH
	ExtraEnvironment     []string `mapstructure:"EXTRA_ENV"`     // additional KEY=VALUE child variables
	Exec                 bool     `mapstructure:"EXEC"`          // replace the launcher process with the child
	JournalPath          string   `mapstructure:"JOURNAL_PATH"`  // sqlite launch journal, disabled when empty
	SnapshotPath         string   `mapstructure:"SNAPSHOT_PATH"` // toml environment snapshot, disabled when empty
}

// Flag names bound to configuration keys
var flagBindings = map[string]string{
	"log-level":   "LOG_LEVEL",
	"host":        "HOST",
	"port":        "PORT",
	"app-dir":     "APP_DIR",
	"entry":       "ENTRY_POINT",
	"interpreter": "INTERPRETER",
	"tool-path":   "TOOL_PATHS",
	"env":         "EXTRA_ENV",
	"exec":        "EXEC",
	"journal":     "JOURNAL_PATH",
	"snapshot":    "SNAPSHOT_PATH",
}

// Initialize default parameters values
func initDefaultConfiguration(configuration *viper.Viper) {
	configuration.SetDefault("LOG_LEVEL", "warning")
	configuration.SetDefault("HOST", "0.0.0.0")
	configuration.SetDefault("PORT", "5001")
	configuration.SetDefault("APP_DIR", "application")
	configuration.SetDefault("ENTRY_POINT", "server.py")
	configuration.SetDefault("INTERPRETER", "python3")
	configuration.SetDefault("TOOL_PATHS", []string{"/usr/local/bin", "/opt/homebrew/bin"})
	configuration.SetDefault("EXTRA_ENV", []string{})
	configuration.SetDefault("EXEC", false)
	configuration.SetDefault("JOURNAL_PATH", "")
	configuration.SetDefault("SNAPSHOT_PATH", "")
}

// Load configuration from defaults, configuration file, environment and flags.
// Flags, when given, take precedence over everything else.
func LoadConfiguration(applicationName string, configurationFilePath string, flags *pflag.FlagSet) (config Config, err error) {
	configuration := viper.New()
	initDefaultConfiguration(configuration)

	if configurationFilePath == "" {
		// Read the volume root path
		root := filepath.VolumeName(".")
		if root == "" {
			root = string(filepath.Separator)
		}

		// Set configuration named config from etc/*appName*, $HOME/.*appName* or current folders
		configuration.AddConfigPath(filepath.Join(root, "etc", applicationName))
		configuration.AddConfigPath(filepath.Join("$HOME", "."+applicationName))
		configuration.AddConfigPath(".")
		configuration.SetConfigName("config")
		configuration.SetConfigType("yaml")
	} else {
		// Set the configuration file path
		configuration.SetConfigFile(configurationFilePath)
	}

	// Get configuration from environment variables, if set
	configuration.SetEnvPrefix(ENVIRONMENT_PREFIX)
	configuration.AutomaticEnv()

	if flags != nil {
		for flagName, key := range flagBindings {
			if flag := flags.Lookup(flagName); flag != nil {
				if err = configuration.BindPFlag(key, flag); err != nil {
					return
				}
			}
		}
	}

	// Get configuration from configuration file, if set
	if configError := configuration.ReadInConfig(); configError != nil {
		var notFound viper.ConfigFileNotFoundError
		if configurationFilePath != "" || !errors.As(configError, &notFound) {
			err = configError
			return
		}
		logrus.Debug(configError.Error())
	}
	if err = configuration.Unmarshal(&config); err != nil {
		return
	}

	config.Host = strings.TrimSpace(config.Host)
	config.Port = strings.TrimSpace(config.Port)
	err = config.Validate()
	return
}

// Validate checks the values the child reads at startup
func (config Config) Validate() error {
	if config.Host == "" || strings.IndexFunc(config.Host, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidHost, config.Host)
	}
	port, err := strconv.Atoi(config.Port)
	if err != nil || strings.Trim(config.Port, "0123456789") != "" || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q must be an integer between 1 and 65535", ErrInvalidPort, config.Port)
	}
	if _, err := logrus.ParseLevel(config.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLogLevel, err)
	}
	for _, variable := range config.ExtraEnvironment {
		if key, _, found := strings.Cut(variable, "="); !found || key == "" {
			return fmt.Errorf("%w: %q is not KEY=VALUE", ErrInvalidEnvironment, variable)
		}
	}
	return nil
}
