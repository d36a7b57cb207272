package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd создаёт корневую команду automator.
func NewRootCmd(env *Env, version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "automator",
		Short:         "Local Automator — run file-based automation flows",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&env.Home, "home", "", "Base directory with flows/, logs/ and data/ (default: AUTOMATOR_HOME or executable dir)")
	root.PersistentFlags().BoolVar(&env.JSON, "json", false, "Output in JSON format")
	root.PersistentFlags().StringVar(&env.APIURL, "api-url", "", "Daemon API URL (default: from config)")
	root.PersistentFlags().StringVar(&env.LogLevel, "log-level", "", "Log level: DEBUG, INFO, WARN, ERROR")

	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)

	root.AddCommand(
		NewRunCmd(env),
		NewValidateCmd(env),
		NewFlowsCmd(env),
		NewActionsCmd(env),
		NewTriggerCmd(env),
		NewRemoteCmd(env),
	)

	return root
}
