package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"licman/internal/config"
	"licman/internal/services"
	"licman/internal/tui"
)

// Exit codes promised to scripts driving the binary.
const (
	exitOK             = 0
	exitFailure        = 1
	exitConfig         = 2
	exitPermission     = 3
	exitTimeout        = 4
	exitPartialCleanup = 5
)

var (
	configPath string

	flagStartAutodesk   bool
	flagStopAutodesk    bool
	flagRestartAutodesk bool
	flagStartZoo        bool
	flagStopZoo         bool
	flagRestartZoo      bool
	flagStatus          bool
	flagInfo            bool
	flagOpenAdmin       bool
	flagTail            string
	flagBundle          string
)

var rootCmd = &cobra.Command{
	Use:   "licman",
	Short: "Manage the Autodesk and Zoo license services",
	Long: `licman controls the Autodesk FlexLM license daemon and the McNeel Zoo
licensing service on this host: start, stop, restart, live status, and log
tailing. Without flags it opens an interactive dashboard.`,
	Run: run,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitFailure)
	}
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&configPath, "config", "", "alternate path to config.ini")
	flags.BoolVar(&flagStartAutodesk, "start-autodesk", false, "start the Autodesk license service")
	flags.BoolVar(&flagStopAutodesk, "stop-autodesk", false, "stop the Autodesk license service")
	flags.BoolVar(&flagRestartAutodesk, "restart-autodesk", false, "restart the Autodesk license service")
	flags.BoolVar(&flagStartZoo, "start-zoo", false, "start the Zoo license service")
	flags.BoolVar(&flagStopZoo, "stop-zoo", false, "stop the Zoo license service")
	flags.BoolVar(&flagRestartZoo, "restart-zoo", false, "restart the Zoo license service")
	flags.BoolVar(&flagStatus, "status", false, "show the state of both services")
	flags.BoolVar(&flagInfo, "info", false, "show managed services and configured paths")
	flags.BoolVar(&flagOpenAdmin, "open-admin", false, "open the Zoo admin tool")
	flags.StringVar(&flagTail, "tail", "", "follow a service's log (autodesk or zoo)")
	flags.StringVar(&flagBundle, "bundle", "", "write a support bundle (tar.zst) to the given path")

	rootCmd.MarkFlagsMutuallyExclusive(
		"start-autodesk", "stop-autodesk", "restart-autodesk",
		"start-zoo", "stop-zoo", "restart-zoo",
		"status", "info", "open-admin", "tail", "bundle",
	)
}

// controlAction maps a set action flag to its operation and service key.
func controlAction() (op, key string, ok bool) {
	switch {
	case flagStartAutodesk:
		return "start", config.KeyAutodesk, true
	case flagStopAutodesk:
		return "stop", config.KeyAutodesk, true
	case flagRestartAutodesk:
		return "restart", config.KeyAutodesk, true
	case flagStartZoo:
		return "start", config.KeyZoo, true
	case flagStopZoo:
		return "stop", config.KeyZoo, true
	case flagRestartZoo:
		return "restart", config.KeyZoo, true
	}
	return "", "", false
}

func run(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		if services.Kind(err) == services.ErrKindConfigInvalid {
			os.Exit(exitConfig)
		}
		os.Exit(exitFailure)
	}
	if cfg.Created {
		fmt.Fprintf(os.Stderr, "Warning: config.ini not found, wrote defaults to %s\n", cfg.Path)
	}

	if op, key, ok := controlAction(); ok {
		if !services.IsElevated() && !cfg.AllowNonAdminCLI {
			fmt.Fprintln(os.Stderr, "Error: administrator rights are required for service control")
			os.Exit(exitPermission)
		}
		os.Exit(runAction(cfg, op, key))
	}

	switch {
	case flagStatus:
		os.Exit(runStatus(cfg))
	case flagInfo:
		runInfo(cfg)
	case flagOpenAdmin:
		os.Exit(runOpenAdmin(cfg))
	case flagTail != "":
		os.Exit(runTail(cfg, flagTail))
	case flagBundle != "":
		os.Exit(runBundle(cfg, flagBundle))
	default:
		if !services.IsElevated() {
			fmt.Fprintln(os.Stderr, "Warning: not running as administrator; service control may fail")
		}
		if err := tui.Start(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error running dashboard: %v\n", err)
			os.Exit(exitFailure)
		}
	}
}

// exitCodeFor maps an operation result to the documented exit codes.
func exitCodeFor(result services.OperationResult) int {
	if !result.Succeeded {
		switch result.ErrorKind {
		case services.ErrKindTimeout:
			return exitTimeout
		case services.ErrKindPermissionDenied:
			return exitPermission
		default:
			return exitFailure
		}
	}
	if result.PartialCleanup() {
		return exitPartialCleanup
	}
	return exitOK
}
