// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/ava-labs/ibcnet/tests"
	"github.com/ava-labs/ibcnet/tests/fixture/ibcnet"
	"github.com/ava-labs/ibcnet/utils/logging"
	"github.com/ava-labs/ibcnet/version"
)

var (
	errNetworkDirRequired = fmt.Errorf("--network-dir or %s are required", ibcnet.NetworkDirEnvName)
	errSpecRequired       = errors.New("--spec is required")
)

func main() {
	var (
		networkDir   string
		rawLogFormat string
		rawLogLevel  string
		logDir       string
	)
	rootCmd := &cobra.Command{
		Use:   "ibcnetctl",
		Short: "ibcnetctl commands",
	}
	rootCmd.PersistentFlags().StringVar(&networkDir, "network-dir", os.Getenv(ibcnet.NetworkDirEnvName), "The path to the directory of a started network")
	SetLogFlags(rootCmd.PersistentFlags(), &rawLogFormat, &rawLogLevel, &logDir)

	newLogger := func() (logging.Logger, error) {
		return tests.NewLogger("", rawLogFormat, rawLogLevel, logDir)
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version details",
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintln(os.Stdout, version.String(version.GitCommit))
			return nil
		},
	}
	rootCmd.AddCommand(versionCmd)

	var (
		specPath string
		wait     bool
	)
	startNetworkCmd := &cobra.Command{
		Use:   "start-network",
		Short: "Start the chains, relayer and file server of a network spec",
		RunE: func(*cobra.Command, []string) error {
			if len(specPath) == 0 {
				return errSpecRequired
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Stop()

			spec, err := ibcnet.ReadSpec(specPath)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), ibcnet.DefaultNetworkTimeout)
			defer cancel()
			network, err := ibcnet.BringUp(ctx, log, spec)
			if err != nil {
				log.Error("failed to start network", zap.Error(err))
				return err
			}

			// Symlink the new network to the 'latest' network to simplify usage
			networkRootDir := filepath.Dir(network.Dir)
			networkDirName := filepath.Base(network.Dir)
			latestSymlinkPath := filepath.Join(networkRootDir, "latest")
			if err := os.Remove(latestSymlinkPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := os.Symlink(networkDirName, latestSymlinkPath); err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, "\nConfigure ibcnetctl to target this network by default with one of the following statements:")
			fmt.Fprintf(os.Stdout, " - %s\n", network.EnvFileContents())
			fmt.Fprintf(os.Stdout, " - export %s=%s\n", ibcnet.NetworkDirEnvName, latestSymlinkPath)

			if !wait {
				if network.FileServer() != nil {
					log.Warn("the file server stops when ibcnetctl exits, use --wait to keep it running")
				}
				return nil
			}

			sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			fmt.Fprintln(os.Stdout, "\nNetwork is running, interrupt to tear it down")
			<-sigCtx.Done()

			stopCtx, stopCancel := context.WithTimeout(context.Background(), ibcnet.DefaultNetworkTimeout)
			defer stopCancel()
			network.Teardown(stopCtx)
			return nil
		},
	}
	startNetworkCmd.PersistentFlags().StringVar(&specPath, "spec", "", "The path to a network spec (yaml, json or toml)")
	startNetworkCmd.PersistentFlags().BoolVar(&wait, "wait", false, "Keep running until interrupted and then tear the network down")
	rootCmd.AddCommand(startNetworkCmd)

	stopNetworkCmd := &cobra.Command{
		Use:   "stop-network",
		Short: "Stop a started network",
		RunE: func(*cobra.Command, []string) error {
			if len(networkDir) == 0 {
				return errNetworkDirRequired
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Stop()

			ctx, cancel := context.WithTimeout(context.Background(), ibcnet.DefaultNetworkTimeout)
			defer cancel()
			if err := ibcnet.StopNetwork(ctx, log, networkDir); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Stopped network configured at: %s\n", networkDir)
			return nil
		},
	}
	rootCmd.AddCommand(stopNetworkCmd)

	relayerStatusCmd := &cobra.Command{
		Use:   "relayer-status",
		Short: "Print the state reported by the relayer of a started network",
		RunE: func(*cobra.Command, []string) error {
			if len(networkDir) == 0 {
				return errNetworkDirRequired
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Stop()

			network, err := ibcnet.ReadNetwork(log, networkDir)
			if err != nil {
				return err
			}
			relayer, err := network.RelayerForPersisted()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), ibcnet.DefaultReadyTimeout)
			defer cancel()
			state, err := relayer.Status(ctx)
			if err != nil {
				return err
			}
			bytes, err := json.MarshalIndent(state, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, string(bytes))
			return nil
		},
	}
	rootCmd.AddCommand(relayerStatusCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ibcnetctl failed: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func SetLogFlags(flagSet *pflag.FlagSet, rawLogFormat *string, rawLogLevel *string, logDir *string) {
	flagSet.StringVar(rawLogFormat, "log-format", logging.AutoString, logging.FormatDescription)
	flagSet.StringVar(rawLogLevel, "log-level", logging.Info.String(), "The minimum level of logs to emit")
	flagSet.StringVar(logDir, "log-dir", "", "If set, logs are additionally written to a rotated file in this directory")
}
