// command.go: command line entry point for plugin binaries
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package httpplugins

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Run serves plugin using the process arguments. It returns once the server
// has drained after SIGINT or SIGTERM, or with the error that prevented it
// from starting. Plugin main functions exit non-zero when it returns an
// error:
//
//	func main() {
//		if err := httpplugins.Run(&myPlugin{}); err != nil {
//			os.Exit(1)
//		}
//	}
func Run(plugin Plugin, opts ...ServerOption) error {
	return RunContext(context.Background(), plugin, os.Args[1:], opts...)
}

// RunContext is Run with an explicit parent context and argument list.
func RunContext(ctx context.Context, plugin Plugin, args []string, opts ...ServerOption) error {
	cmd := NewCommand(plugin, opts...)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

type commandFlags struct {
	config   string
	address  string
	network  string
	logLevel string
	logFile  string
	noHealth bool
}

// NewCommand builds the root command of a plugin binary.
//
// Settings are resolved as flags, then PLUGIN_ADDRESS / PLUGIN_NETWORK /
// PLUGIN_LOG_LEVEL, then the --config file, then defaults.
func NewCommand(plugin Plugin, opts ...ServerOption) *cobra.Command {
	cmd, _ := newRootCommand(plugin, opts)
	return cmd
}

func newRootCommand(plugin Plugin, opts []ServerOption) (*cobra.Command, *commandFlags) {
	flags := &commandFlags{}

	cmd := &cobra.Command{
		Use:           commandName(),
		Short:         "Serve an HTTP middleware plugin over gRPC",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := resolveServeConfig(cmd, flags)
			if err != nil {
				return err
			}
			return serveWithConfig(cmd.Context(), plugin, config, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&flags.config, "config", "", "path to a serve configuration file (yaml, json, toml, hcl, ini)")
	f.StringVar(&flags.address, "address", "", "unix socket path or TCP host:port to listen on")
	f.StringVar(&flags.network, "network", string(NetworkUnix), "listener network: unix or tcp")
	f.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&flags.logFile, "log-file", "", "write logs to this file with rotation instead of stderr")
	f.BoolVar(&flags.noHealth, "no-health-service", false, "do not register the grpc.health.v1 service")

	cmd.AddCommand(newMetadataCommand(plugin))
	return cmd, flags
}

func commandName() string {
	if len(os.Args) > 0 && os.Args[0] != "" {
		return filepath.Base(os.Args[0])
	}
	return "plugin"
}

func resolveServeConfig(cmd *cobra.Command, flags *commandFlags) (ServeConfig, error) {
	config := DefaultServeConfig()
	if flags.config != "" {
		loaded, err := LoadServeConfig(flags.config)
		if err != nil {
			return config, err
		}
		config = loaded
	}

	ApplyEnvOverrides(&config, DefaultEnvConfigOptions())

	f := cmd.Flags()
	if f.Changed("address") {
		config.Address = flags.address
	}
	if f.Changed("network") {
		config.Network = NetworkType(flags.network)
	}
	if f.Changed("log-level") {
		config.Logging.Level = flags.logLevel
	}
	if f.Changed("log-file") {
		config.Logging.File = flags.logFile
	}
	if f.Changed("no-health-service") {
		enabled := !flags.noHealth
		config.HealthService = &enabled
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

func serveWithConfig(ctx context.Context, plugin Plugin, config ServeConfig, opts []ServerOption) error {
	logger, closeLogger, err := BuildLogger(config.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = closeLogger() }()

	ctx, stop := ShutdownContext(ctx, logger)
	defer stop()

	// Caller options come last so an explicit WithLogger wins.
	serverOpts := append([]ServerOption{WithLogger(logger)}, opts...)
	server := NewServer(plugin, serverOpts...)

	if err := server.Serve(ctx, config); err != nil {
		logger.Error("Plugin exited with error", "error", err)
		return err
	}
	return nil
}

func newMetadataCommand(plugin Plugin) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Print the plugin metadata and capabilities as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			md, err := plugin.GetMetadata(ctx)
			if err != nil {
				return err
			}
			caps, err := plugin.GetCapabilities(ctx)
			if err != nil {
				return err
			}
			if caps == nil {
				caps = &Capabilities{}
			}
			flows := make([]string, 0, len(caps.Flows))
			for _, f := range caps.Flows {
				flows = append(flows, f.String())
			}
			out := struct {
				*Metadata
				Flows []string `json:"flows"`
			}{Metadata: md, Flows: flows}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("encode metadata: %w", err)
			}
			return nil
		},
	}
}
