// Copyright (C) 2020-2026, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command rechaind runs the deterministic decision-execution engine as
// a daemon, accepting connections over TCP or a Unix-domain socket and
// dispatching ExecRequest/HealthRequest frames against an engine.Engine.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	apimetrics "github.com/luxfi/rechain/api/metrics"
	"github.com/luxfi/rechain/config"
	"github.com/luxfi/rechain/engine"
	rechlog "github.com/luxfi/rechain/log"
	"github.com/luxfi/rechain/metrics"
	"github.com/luxfi/rechain/session"
	"github.com/luxfi/rechain/storage/pebblelog"
)

// Exit codes fixed by §6 of the wire contract.
const (
	exitNormal        = 0
	exitConfigError   = 2
	exitTransportBind = 3
	exitVersionFloor  = 4
)

// majorVersion extracts the leading dot-separated integer component of a
// "major.minor.patch" contract version string, e.g. "1.0.0" -> 1.
func majorVersion(v string) (int, error) {
	major, _, _ := strings.Cut(v, ".")
	return strconv.Atoi(major)
}

var rootCmd = &cobra.Command{
	Use:   "rechaind",
	Short: "rechaind runs the deterministic decision-execution engine daemon",
	Long: `rechaind accepts the binary RECH wire protocol over TCP or a Unix
domain socket, executes workflows under their controls and policy, and
returns a cryptographically verifiable ExecResult for every run.`,
}

func main() {
	rootCmd.AddCommand(serveCmd())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitConfigError)
	}
}

func serveCmd() *cobra.Command {
	cfg := config.DefaultDaemonConfig()
	cfg.WorkerPoolSize = engine.DefaultWorkerPoolSize()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the engine daemon and listen for connections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.SocketPath, "socket", "", "Unix domain socket path to listen on")
	cmd.Flags().StringVar(&cfg.TCPAddr, "tcp", "", "TCP address to listen on (host:port)")
	cmd.Flags().IntVar(&cfg.WorkerPoolSize, "worker-pool-size", cfg.WorkerPoolSize, "concurrent-run worker pool size")
	cmd.Flags().StringVar(&cfg.ReplayLogPath, "replay-log", cfg.ReplayLogPath, "pebble replay log directory")
	cmd.Flags().StringVar(&cfg.MinContractVersion, "min-contract-version", "", "refuse to serve below this contract_version (major.minor.patch)")
	return cmd
}

func runServe(cmd *cobra.Command, cfg config.DaemonConfig) error {
	if cfg.TCPAddr == "" && cfg.SocketPath == "" {
		cfg.TCPAddr = config.DefaultDaemonConfig().TCPAddr
	}
	if cfg.WorkerPoolSize < 1 {
		cfg.WorkerPoolSize = engine.DefaultWorkerPoolSize()
	}

	validator := config.NewValidator()
	if err := validator.ValidateDaemon(cfg); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "configuration error: %v\n", err)
		os.Exit(exitConfigError)
	}

	serverOpts := session.DefaultServerOptions()
	if cfg.MinContractVersion != "" {
		floor, err := majorVersion(cfg.MinContractVersion)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "invalid --min-contract-version %q: %v\n", cfg.MinContractVersion, err)
			os.Exit(exitConfigError)
		}
		served, err := majorVersion(serverOpts.ContractVersion)
		if err != nil || served < floor {
			fmt.Fprintf(cmd.ErrOrStderr(), "protocol-version floor breach: daemon serves contract_version %s, floor requires %s\n", serverOpts.ContractVersion, cfg.MinContractVersion)
			os.Exit(exitVersionFloor)
		}
	}

	logger := rechlog.NewNoOpLogger()

	replayLog, err := pebblelog.Open(cfg.ReplayLogPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "replay log open failed: %v\n", err)
		os.Exit(exitConfigError)
	}
	defer replayLog.Close()

	metricsReg := apimetrics.NewRegistry()
	runMetrics, err := metrics.NewMetrics("rechaind", metricsReg)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "metrics registration failed: %v\n", err)
		os.Exit(exitConfigError)
	}

	eng := engine.New(cfg.WorkerPoolSize, replayLog, metrics.NewObserver(runMetrics), logger)

	network, addr := "tcp", cfg.TCPAddr
	if cfg.SocketPath != "" {
		network, addr = "unix", cfg.SocketPath
		os.Remove(addr)
	}

	ln, err := net.Listen(network, addr)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "bind failed: %v\n", err)
		os.Exit(exitTransportBind)
	}

	srv := session.NewServer(eng, serverOpts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "rechaind listening on %s %s\n", network, addr)
	if err := srv.Serve(ctx, ln); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "serve error: %v\n", err)
		os.Exit(exitTransportBind)
	}
	os.Exit(exitNormal)
	return nil
}
