package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var exerciseCycles int

var exerciseCmd = &cobra.Command{
	Use:   "exercise <project-path> <config-path>",
	Short: "Smoke-test a simulator build with run/reset cycles",
	Long: `Exercise launches a simulator instance and drives it through a number
of run/reset cycles, tearing the instance down afterwards. It exits non-zero
on the first failed command, making it suitable for validating a simulator
build in CI.`,
	Args: cobra.ExactArgs(2),
	RunE: runExercise,
}

func init() {
	exerciseCmd.Flags().IntVar(&exerciseCycles, "cycles", 3, "number of run/reset cycles to perform")
	rootCmd.AddCommand(exerciseCmd)
}

func runExercise(cmd *cobra.Command, args []string) error {
	if viper.GetString("simulator.binary") == "" {
		return fmt.Errorf("no simulator binary configured (set simulator.binary or SIMSUP_SIMULATOR_BINARY)")
	}
	if exerciseCycles < 1 {
		return fmt.Errorf("--cycles must be at least 1")
	}

	mgr, logger, err := newManager()
	if err != nil {
		return err
	}
	defer logger.Close()
	defer mgr.Shutdown()

	projectPath, configPath := args[0], args[1]

	handle, err := mgr.Init(cmd.Context(), projectPath, configPath)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "instance %s ready\n", handle)

	for cycle := 1; cycle <= exerciseCycles; cycle++ {
		if err := mgr.Run(cmd.Context(), handle); err != nil {
			return fmt.Errorf("cycle %d: run failed: %w", cycle, err)
		}
		if err := mgr.Reset(cmd.Context(), handle); err != nil {
			return fmt.Errorf("cycle %d: reset failed: %w", cycle, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cycle %d/%d ok\n", cycle, exerciseCycles)
	}

	if err := mgr.Stop(handle); err != nil {
		return fmt.Errorf("teardown failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "instance %s stopped\n", handle)
	return nil
}
