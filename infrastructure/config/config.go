// Package config defines umbrad's runtime configuration: command line flags,
// an optional ini-style configuration file, and the resulting network
// parameters. Configuration is loaded once at startup and never mutated.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/umbraproject/umbrad/infrastructure/logger"
	"github.com/umbraproject/umbrad/version"
)

const (
	defaultConfigFilename = "umbrad.conf"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "umbrad.log"
	defaultErrLogFilename = "umbrad_err.log"
	defaultDataDirname    = "data"
)

var (
	// DefaultAppDir is the default home directory for umbrad.
	DefaultAppDir = appDataDir("umbrad")

	defaultConfigFile = filepath.Join(DefaultAppDir, defaultConfigFilename)
)

// Flags defines the configuration options for umbrad.
//
// See LoadConfig for details on the configuration load process.
type Flags struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile  string `short:"C" long:"configfile" description:"Path to configuration file"`
	AppDir      string `short:"b" long:"appdir" description:"Directory to store data"`
	LogDir      string `long:"logdir" description:"Directory to log output"`
	LogLevel    string `short:"d" long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	NetworkFlags
}

// Config defines the configuration options for umbrad.
type Config struct {
	*Flags
}

func defaultFlags() *Flags {
	return &Flags{
		ConfigFile: defaultConfigFile,
		AppDir:     DefaultAppDir,
		LogLevel:   defaultLogLevel,
	}
}

// DataDir returns the directory umbrad stores its database in.
func (cfg *Config) DataDir() string {
	return filepath.Join(cfg.AppDir, cfg.NetParams().Name, defaultDataDirname)
}

// LoadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig() (*Config, error) {
	cfgFlags := defaultFlags()

	// Pre-parse the command line options to see if an alternative config
	// file was specified. The help message flag can be ignored here since
	// the final parse below shows it.
	preCfg := *cfgFlags
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return nil, err
		}
	}

	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Println(appName, "version", version.Version())
		os.Exit(0)
	}

	// Load additional config from file.
	parser := flags.NewParser(cfgFlags, flags.Default)
	if preCfg.ConfigFile != defaultConfigFile || fileExists(preCfg.ConfigFile) {
		err := flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
		if err != nil {
			var pathErr *os.PathError
			if !errors.As(err, &pathErr) {
				return nil, errors.Wrapf(err, "error parsing config file %s",
					preCfg.ConfigFile)
			}
			if preCfg.ConfigFile != defaultConfigFile {
				return nil, errors.Wrapf(err, "config file %s does not exist",
					preCfg.ConfigFile)
			}
		}
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.Parse()
	if err != nil {
		return nil, err
	}

	cfg := &Config{Flags: cfgFlags}
	err = cfg.ResolveNetwork(parser)
	if err != nil {
		return nil, err
	}

	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(cfg.AppDir, cfg.NetParams().Name, defaultLogDirname)
	}
	logLevel, ok := logger.LevelFromString(cfg.LogLevel)
	if !ok {
		return nil, errors.Errorf("the given log level %q is invalid", cfg.LogLevel)
	}
	logger.SetLogLevels(logLevel)
	initLogFiles(cfg.LogDir)

	return cfg, nil
}

// initLogFiles attaches the rotating log files to the default logging
// backend. Errors here are reported but not fatal; umbrad can run with
// stderr logging only.
func initLogFiles(logDir string) {
	backend := logger.DefaultBackend()
	err := backend.AddLogFile(filepath.Join(logDir, defaultLogFilename), logger.LevelTrace)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s: %s\n", defaultLogFilename, err)
	}
	err = backend.AddLogFile(filepath.Join(logDir, defaultErrLogFilename), logger.LevelWarn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error adding log file %s: %s\n", defaultErrLogFilename, err)
	}
}

func fileExists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// appDataDir returns an operating system specific directory for the
// application's data.
func appDataDir(appName string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "."
	}
	appNameUpper := strings.ToUpper(appName[:1]) + appName[1:]
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, appNameUpper)
		}
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support", appNameUpper)
	}
	return filepath.Join(homeDir, "."+appName)
}
