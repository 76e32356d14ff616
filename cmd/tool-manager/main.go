package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/intelworks/tool-runtime-manager/internal/app"
	"github.com/intelworks/tool-runtime-manager/internal/config"
)

const (
	Version = "1.0.0-dev"
)

// CLI represents the command line interface
type CLI struct {
	args []string
}

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Usage       string
	Run         func(args []string) error
}

func main() {
	cli := &CLI{args: os.Args[1:]}

	commands := map[string]*Command{
		"run":            {Name: "run", Description: "Start the tool runtime manager", Usage: "run [--config path] [--log-level level]", Run: cli.runCommand},
		"validate":       {Name: "validate", Description: "Validate configuration file", Usage: "validate [--config path]", Run: cli.validateCommand},
		"version":        {Name: "version", Description: "Show version information", Usage: "version", Run: cli.versionCommand},
		"help":           {Name: "help", Description: "Show help information", Usage: "help [command]", Run: cli.helpCommand},
		"example-config": {Name: "example-config", Description: "Generate example configuration file", Usage: "example-config [--output path]", Run: cli.exampleConfigCommand},
	}

	if len(cli.args) == 0 {
		cli.printUsage(commands)
		os.Exit(1)
	}

	commandName := cli.args[0]

	if commandName == "--help" || commandName == "-h" {
		cli.printUsage(commands)
		return
	}

	// Default to run command when the first argument is a flag
	if _, exists := commands[commandName]; !exists {
		if strings.HasPrefix(commandName, "--") {
			commandName = "run"
		} else {
			fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", commandName)
			cli.printUsage(commands)
			os.Exit(1)
		}
	} else {
		cli.args = cli.args[1:]
	}

	cmd := commands[commandName]
	if err := cmd.Run(cli.args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (cli *CLI) printUsage(commands map[string]*Command) {
	fmt.Printf("Tool Runtime Manager v%s\n", Version)
	fmt.Println("A resource-aware manager that enables, pauses and disables registered tools by priority.")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Printf("  %s <command> [options]\n", os.Args[0])
	fmt.Println()
	fmt.Println("COMMANDS:")

	commandOrder := []string{"run", "validate", "example-config", "version", "help"}
	for _, name := range commandOrder {
		if cmd, exists := commands[name]; exists {
			fmt.Printf("  %-15s %s\n", cmd.Name, cmd.Description)
		}
	}

	fmt.Println()
	fmt.Println("GLOBAL OPTIONS:")
	fmt.Println("  --help, -h       Show help information")
	fmt.Println()
	fmt.Println("Use \"tool-manager help <command>\" for more information about a command.")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Printf("  %s run --config /opt/tool-runtime-manager/config.yaml\n", os.Args[0])
	fmt.Printf("  %s validate --config ./config.yaml\n", os.Args[0])
	fmt.Printf("  %s example-config --output ./tool-manager.yaml\n", os.Args[0])
}

func (cli *CLI) parseFlags(args []string, flags map[string]*string) []string {
	var remaining []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "--") {
			flagName := strings.TrimPrefix(arg, "--")

			// Handle --flag=value format
			if strings.Contains(flagName, "=") {
				parts := strings.SplitN(flagName, "=", 2)
				flagName = parts[0]
				if flagVar, exists := flags[flagName]; exists {
					*flagVar = parts[1]
				}
				continue
			}

			// Handle --flag value format
			if flagVar, exists := flags[flagName]; exists {
				if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
					*flagVar = args[i+1]
					i++ // Skip the value
				} else {
					// Boolean flag or missing value
					*flagVar = "true"
				}
				continue
			}
		}

		remaining = append(remaining, arg)
	}

	return remaining
}

func (cli *CLI) runCommand(args []string) error {
	var configPath string
	var logLevel = "info"
	var useDefaultConfig = true

	flags := map[string]*string{
		"config":    &configPath,
		"log-level": &logLevel,
	}

	remaining := cli.parseFlags(args, flags)

	for _, arg := range args {
		if strings.HasPrefix(arg, "--config") {
			useDefaultConfig = false
			break
		}
	}

	for _, arg := range remaining {
		if arg == "--help" || arg == "-h" {
			cli.printRunHelp()
			return nil
		}
	}

	logger, err := cli.createLogger(logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	var cfg *config.Config
	if useDefaultConfig {
		logger.Info("Running in zero-config mode with defaults")
		cfg, err = config.LoadDefault()
		if err != nil {
			return fmt.Errorf("failed to load default configuration: %w", err)
		}
	} else {
		if err := cli.validateConfigPath(configPath); err != nil {
			return err
		}
		fmt.Printf("Loading configuration from: %s\n", configPath)
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	manager, err := app.NewManager(cfg, configPath, logger)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigChan {
			logger.Info("Received signal", zap.String("signal", sig.String()))

			switch sig {
			case syscall.SIGHUP:
				if err := manager.Reload(ctx); err != nil {
					logger.Error("Failed to reload configuration", zap.Error(err))
				}
			default:
				logger.Info("Shutting down gracefully")
				cancel()
				return
			}
		}
	}()

	logger.Info("Starting Tool Runtime Manager",
		zap.String("version", Version),
		zap.Int("tools_configured", len(cfg.Tools)),
		zap.String("sample_interval", cfg.Monitoring.SampleInterval.String()),
		zap.String("server_address", cfg.Server.BindAddress))

	if err := manager.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("Manager stopped with error", zap.Error(err))
		return fmt.Errorf("manager stopped with error: %w", err)
	}

	logger.Info("Tool Runtime Manager stopped")
	return nil
}

func (cli *CLI) validateCommand(args []string) error {
	var configPath string
	var verboseFlag = "false"

	flags := map[string]*string{
		"config":  &configPath,
		"verbose": &verboseFlag,
	}

	remaining := cli.parseFlags(args, flags)
	verbose := verboseFlag == "true"

	for _, arg := range remaining {
		if arg == "--help" || arg == "-h" {
			cli.printValidateHelp()
			return nil
		}
	}

	var cfg *config.Config
	var err error

	if configPath == "" {
		fmt.Println("Validating zero-config mode with defaults")
		cfg, err = config.LoadDefault()
		if err != nil {
			return fmt.Errorf("default configuration validation failed: %w", err)
		}
	} else {
		if err := cli.validateConfigPath(configPath); err != nil {
			return err
		}

		fmt.Printf("Validating configuration file: %s\n", configPath)
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	validationResult := config.GetValidationResult(cfg)
	cli.printValidationResults(validationResult, verbose)

	if !validationResult.Valid {
		fmt.Printf("\nConfiguration validation failed with %d error(s)\n", len(validationResult.Errors))
		return fmt.Errorf("configuration validation failed")
	}

	if len(validationResult.Warnings) > 0 {
		fmt.Printf("\nFound %d warning(s) - configuration is valid but could be improved\n", len(validationResult.Warnings))
	}

	cli.printConfigurationSummary(cfg)

	fmt.Println("\nConfiguration validation completed successfully")
	return nil
}

// printValidationResults prints detailed validation results
func (cli *CLI) printValidationResults(result *config.ValidationResult, verbose bool) {
	if len(result.Errors) == 0 && len(result.Warnings) == 0 {
		fmt.Println("Configuration passes all validation checks")
		return
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nVALIDATION ERRORS (%d):\n", len(result.Errors))
		for i, err := range result.Errors {
			fmt.Printf("  %d. Field: %s\n", i+1, err.Field)
			fmt.Printf("     Error: %s\n", err.Message)
			if err.Suggestion != "" {
				fmt.Printf("     Fix: %s\n", err.Suggestion)
			}
			if verbose && err.Value != nil {
				fmt.Printf("     Current value: %v\n", err.Value)
			}
			fmt.Println()
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\nVALIDATION WARNINGS (%d):\n", len(result.Warnings))
		for i, warning := range result.Warnings {
			fmt.Printf("  %d. Field: %s\n", i+1, warning.Field)
			fmt.Printf("     Warning: %s\n", warning.Message)
			if warning.Suggestion != "" {
				fmt.Printf("     Suggestion: %s\n", warning.Suggestion)
			}
			if verbose && warning.Value != nil {
				fmt.Printf("     Current value: %v\n", warning.Value)
			}
			fmt.Println()
		}
	}
}

// printConfigurationSummary prints a summary of valid configuration
func (cli *CLI) printConfigurationSummary(cfg *config.Config) {
	fmt.Println("\nCONFIGURATION SUMMARY:")

	fmt.Printf("Server:\n")
	fmt.Printf("   Bind Address: %s\n", cfg.Server.BindAddress)
	fmt.Printf("   Metrics Path: %s\n", cfg.Server.MetricsPath)
	fmt.Printf("   Health Path: %s\n", cfg.Server.HealthPath)
	if cfg.Server.API.Enabled {
		fmt.Printf("   Admin API: enabled at %s (%d req/s)\n", cfg.Server.API.BasePath, cfg.Server.API.MaxRequests)
	} else {
		fmt.Printf("   Admin API: disabled\n")
	}

	fmt.Printf("\nStorage:\n")
	fmt.Printf("   Database: %s\n", cfg.Storage.DatabasePath)
	fmt.Printf("   Retention: %s (cleanup every %s)\n", cfg.Storage.Retention, cfg.Storage.CleanupInterval)

	fmt.Printf("\nTools (%d configured):\n", len(cfg.Tools))
	for i := range cfg.Tools {
		tool := &cfg.Tools[i]
		fmt.Printf("   Tool '%s':\n", tool.Name)
		fmt.Printf("      Priority: %d\n", tool.Priority)
		fmt.Printf("      Initial State: %s\n", tool.InitialState)
		fmt.Printf("      Auto-scaling: %v\n", tool.AutoScaleEnabled())
		if len(tool.Dependencies) > 0 {
			fmt.Printf("      Dependencies: %s\n", strings.Join(tool.Dependencies, ", "))
		}
		if tool.MaxCPUPercent > 0 || tool.MaxMemoryMB > 0 || tool.MaxGPUPercent > 0 {
			fmt.Printf("      Budget: cpu=%.1f%% mem=%dMB gpu=%.1f%%\n",
				tool.MaxCPUPercent, tool.MaxMemoryMB, tool.MaxGPUPercent)
		}
	}

	fmt.Printf("\nMonitoring:\n")
	fmt.Printf("   Sample Interval: %s (timeout %s)\n", cfg.Monitoring.SampleInterval, cfg.Monitoring.SampleTimeout)
	fmt.Printf("   History: %d samples, smoothing over %d\n", cfg.Monitoring.HistorySize, cfg.Monitoring.SmoothingSamples)
	fmt.Printf("   Thresholds: medium=%.0f%% high=%.0f%% critical=%.0f%%\n",
		cfg.Monitoring.Thresholds.Medium, cfg.Monitoring.Thresholds.High, cfg.Monitoring.Thresholds.Critical)

	fmt.Printf("\nScaling:\n")
	fmt.Printf("   Enabled: %v\n", cfg.Scaling.ScalingEnabled())
	fmt.Printf("   Tick Interval: %s, Dwell Time: %s\n", cfg.Scaling.TickInterval, cfg.Scaling.DwellTime)

	if cfg.Telemetry.Enabled {
		fmt.Printf("\nTelemetry: enabled (%s exporter)\n", cfg.Telemetry.Exporter.Type)
		fmt.Printf("   Service: %s v%s (%s)\n", cfg.Telemetry.ServiceName, cfg.Telemetry.ServiceVersion, cfg.Telemetry.Environment)
		fmt.Printf("   Sampling Rate: %.1f%%\n", cfg.Telemetry.Sampling.Rate*100)
	} else {
		fmt.Printf("\nTelemetry: disabled\n")
	}
}

func (cli *CLI) versionCommand(args []string) error {
	fmt.Printf("Tool Runtime Manager version %s\n", Version)
	fmt.Println("Built with Go")
	fmt.Println("https://github.com/intelworks/tool-runtime-manager")
	return nil
}

func (cli *CLI) helpCommand(args []string) error {
	commands := map[string]*Command{
		"run":            {Name: "run", Description: "Start the tool runtime manager", Usage: "run [--config path] [--log-level level]", Run: cli.runCommand},
		"validate":       {Name: "validate", Description: "Validate configuration file", Usage: "validate [--config path]", Run: cli.validateCommand},
		"version":        {Name: "version", Description: "Show version information", Usage: "version", Run: cli.versionCommand},
		"help":           {Name: "help", Description: "Show help information", Usage: "help [command]", Run: cli.helpCommand},
		"example-config": {Name: "example-config", Description: "Generate example configuration file", Usage: "example-config [--output path]", Run: cli.exampleConfigCommand},
	}

	if len(args) == 0 {
		cli.printUsage(commands)
		return nil
	}

	commandName := args[0]
	switch commandName {
	case "run":
		cli.printRunHelp()
	case "validate":
		cli.printValidateHelp()
	case "example-config":
		cli.printExampleConfigHelp()
	case "version":
		fmt.Println("USAGE: tool-manager version")
		fmt.Println("Show version information and build details.")
	default:
		fmt.Printf("Unknown command: %s\n\n", commandName)
		cli.printUsage(commands)
	}

	return nil
}

func (cli *CLI) exampleConfigCommand(args []string) error {
	var outputPath = "tool-manager.yaml"

	flags := map[string]*string{
		"output": &outputPath,
	}

	remaining := cli.parseFlags(args, flags)

	for _, arg := range remaining {
		if arg == "--help" || arg == "-h" {
			cli.printExampleConfigHelp()
			return nil
		}
	}

	if _, err := os.Stat(outputPath); err == nil {
		return fmt.Errorf("file already exists: %s (use a different path or remove the existing file)", outputPath)
	}

	if err := os.WriteFile(outputPath, []byte(exampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Example configuration written to: %s\n", outputPath)
	fmt.Println("Edit the file to match your environment and use:")
	fmt.Printf("  tool-manager validate --config %s\n", outputPath)
	return nil
}

func (cli *CLI) validateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path cannot be empty")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist: %s", path)
	}

	return nil
}

func (cli *CLI) createLogger(level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", level)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	return config.Build()
}

func (cli *CLI) printRunHelp() {
	fmt.Println("USAGE: tool-manager run [options]")
	fmt.Println("Start the tool runtime manager with resource monitoring and auto-scaling.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --config path          Configuration file path (default: zero-config mode)")
	fmt.Println("  --log-level level      Log level: debug, info, warn, error (default: info)")
	fmt.Println("  --help, -h             Show this help message")
	fmt.Println()
	fmt.Println("SIGNALS:")
	fmt.Println("  SIGINT/SIGTERM    Graceful shutdown")
	fmt.Println("  SIGHUP            Reload configuration")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  tool-manager run")
	fmt.Println("  tool-manager run --config /opt/tool-runtime-manager/config.yaml")
	fmt.Println("  tool-manager run --log-level debug")
}

func (cli *CLI) printValidateHelp() {
	fmt.Println("USAGE: tool-manager validate [options]")
	fmt.Println("Validate configuration file without starting the service.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --config path  Configuration file path (default: zero-config mode)")
	fmt.Println("  --verbose      Show detailed validation output including current values")
	fmt.Println("  --help, -h     Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  tool-manager validate")
	fmt.Println("  tool-manager validate --config ./config.yaml")
	fmt.Println("  tool-manager validate --config ./config.yaml --verbose")
}

func (cli *CLI) printExampleConfigHelp() {
	fmt.Println("USAGE: tool-manager example-config [options]")
	fmt.Println("Generate an example configuration file.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  --output path  Output file path (default: tool-manager.yaml)")
	fmt.Println("  --help, -h     Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  tool-manager example-config")
	fmt.Println("  tool-manager example-config --output /opt/tool-runtime-manager/config.yaml")
}
