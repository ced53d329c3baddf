package cmd

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/simsup/simsup/internal/config"
	"github.com/simsup/simsup/internal/event"
	"github.com/simsup/simsup/internal/instance"
	"github.com/simsup/simsup/internal/launcher"
	"github.com/simsup/simsup/internal/logging"
)

var launchRun bool

var launchCmd = &cobra.Command{
	Use:   "launch <project-path> <config-path>",
	Short: "Launch one simulator instance",
	Long: `Launch spawns a simulator instance for the given project and config
paths, waits for it to become ready, and prints its handle. With --run the
instance is started immediately after launch. The supervisor then stays
attached until the simulator exits.`,
	Args: cobra.ExactArgs(2),
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().BoolVar(&launchRun, "run", false, "issue a run command once the instance is ready")
	rootCmd.AddCommand(launchCmd)
}

// newManager builds an instance manager from the loaded configuration.
// The returned logger must be closed by the caller.
func newManager() (*instance.Manager, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	watchLogLevel(logger)

	execLauncher := launcher.NewExecLauncher(launcher.Options{
		Binary:         cfg.Simulator.Binary,
		Args:           cfg.Simulator.Args,
		SocketDir:      cfg.Simulator.SocketDir,
		LaunchTimeout:  cfg.Simulator.LaunchTimeout,
		CommandTimeout: cfg.Simulator.CommandTimeout,
	}, logger)

	return instance.NewManager(execLauncher, logger), logger, nil
}

// watchLogLevel re-applies the configured log level whenever the config file
// changes, so a long-running supervisor can be switched to debug logging
// without a restart.
func watchLogLevel(logger *logging.Logger) {
	viper.OnConfigChange(func(fsnotify.Event) {
		applyLogLevel(logger)
	})
	viper.WatchConfig()
}

// applyLogLevel routes the current viper log level into the logger.
func applyLogLevel(logger *logging.Logger) {
	logger.SetLevel(viper.GetString("logging.level"))
}

func runLaunch(cmd *cobra.Command, args []string) error {
	// Stray flag values would otherwise silently misconfigure the launcher.
	if viper.GetString("simulator.binary") == "" {
		return fmt.Errorf("no simulator binary configured (set simulator.binary or SIMSUP_SIMULATOR_BINARY)")
	}

	mgr, logger, err := newManager()
	if err != nil {
		return err
	}
	defer logger.Close()
	defer mgr.Shutdown()

	// Subscribe before Init so a short-lived instance cannot terminate
	// unobserved.
	terminated := make(chan event.InstanceTerminatedEvent, 4)
	mgr.Events().Subscribe(event.TypeInstanceTerminated, func(e event.Event) {
		select {
		case terminated <- e.(event.InstanceTerminatedEvent):
		default:
		}
	})
	mgr.Events().Subscribe(event.TypeStateChanged, func(e event.Event) {
		changed := e.(event.StateChangedEvent)
		fmt.Fprintf(cmd.OutOrStdout(), "instance %s %s\n", changed.Handle, changed.To)
	})

	projectPath, configPath := args[0], args[1]

	handle, err := mgr.Init(cmd.Context(), projectPath, configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "instance %s ready\n", handle)

	if launchRun {
		if err := mgr.Run(cmd.Context(), handle); err != nil {
			return err
		}
	}

	// Stay attached until the simulator exits or we are interrupted.
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case term := <-terminated:
			if term.Handle == handle.String() {
				fmt.Fprintf(cmd.OutOrStdout(), "instance %s terminated: %s\n", handle, term.Reason)
				return nil
			}
		}
	}
}
