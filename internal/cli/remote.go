package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewRemoteCmd создаёт группу команд для работы с демоном через HTTP API.
func NewRemoteCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Talk to a running automator daemon",
	}

	cmd.AddCommand(
		newRemoteRunsCmd(env),
		newRemoteShowCmd(env),
		newRemoteRunCmd(env),
		newRemoteTriggersCmd(env),
	)

	return cmd
}

func newRemoteRunsCmd(env *Env) *cobra.Command {
	var flow, status string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := env.Client()
			if err != nil {
				return err
			}

			runs, err := client.ListRuns(ListRunsOpts{Flow: flow, Status: status, Limit: limit})
			if err != nil {
				return err
			}

			headers := []string{"ID", "FLOW", "TRIGGER", "STATUS", "STARTED", "DURATION"}
			rows := make([][]string, len(runs))
			for i, r := range runs {
				rows[i] = []string{r.ID, r.FlowName, r.Trigger, r.Status, r.StartedAt, fmt.Sprintf("%.1fs", r.DurationSec)}
			}

			env.Output().Print(headers, rows, runs)
			return nil
		},
	}

	cmd.Flags().StringVar(&flow, "flow", "", "Filter by flow name")
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (RUNNING, SUCCEEDED, FAILED, CANCELLED)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results")

	return cmd
}

func newRemoteShowCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show a run with its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := env.Client()
			if err != nil {
				return err
			}

			run, err := client.GetRun(args[0])
			if err != nil {
				return err
			}

			headers := []string{"#", "STEP", "TYPE", "STATUS", "DURATION", "ERROR"}
			rows := make([][]string, len(run.Steps))
			for i, s := range run.Steps {
				rows[i] = []string{
					strconv.Itoa(s.Index + 1),
					s.StepID,
					s.Type,
					s.Status,
					fmt.Sprintf("%.3fs", s.DurationSec),
					oneLine(s.Error),
				}
			}

			out := env.Output()
			out.Print(headers, rows, run)
			out.Success(fmt.Sprintf("run %s %s (%s)", run.ID, run.Status, run.FlowName))
			return nil
		},
	}
}

func newRemoteRunCmd(env *Env) *cobra.Command {
	var vars []string

	cmd := &cobra.Command{
		Use:   "run FLOW",
		Short: "Start a flow on the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := env.Client()
			if err != nil {
				return err
			}

			parsed, err := parseVars(vars)
			if err != nil {
				return err
			}

			resp, err := client.CreateRun(CreateRunRequest{Flow: args[0], Vars: parsed})
			if err != nil {
				return err
			}

			out := env.Output()
			if env.JSON {
				out.JSON(resp)
			}
			out.Success("run started: " + resp.RunID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, "Variable as KEY=VALUE (repeatable)")

	return cmd
}

func newRemoteTriggersCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "triggers",
		Short: "List triggers loaded by the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := env.Client()
			if err != nil {
				return err
			}

			triggers, err := client.ListTriggers()
			if err != nil {
				return err
			}

			headers := []string{"ID", "KIND", "FLOW", "ENABLED", "LAST FIRED"}
			rows := make([][]string, len(triggers))
			for i, t := range triggers {
				rows[i] = []string{t.ID, t.Kind, t.FlowPath, strconv.FormatBool(t.Enabled), t.LastFiredAt}
			}

			env.Output().Print(headers, rows, triggers)
			return nil
		},
	}
}
