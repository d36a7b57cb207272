package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shaiso/LocalAutomator/internal/engine"
)

// NewValidateCmd создаёт команду проверки flow.
func NewValidateCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FLOW",
		Short: "Check a flow file: ids, step types and if/endif balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}

			path, err := cfg.FlowPath(args[0])
			if err != nil {
				return err
			}

			flow, err := engine.LoadFlow(path)
			if err != nil {
				return err
			}
			if err := engine.Validate(flow, env.Dispatcher()); err != nil {
				return err
			}

			env.Output().Success(fmt.Sprintf("flow %q is valid: %d steps (%s)", flow.Name, len(flow.Actions), path))
			return nil
		},
	}
}

// flowRow — строка списка flows.
type flowRow struct {
	Name        string `json:"name"`
	File        string `json:"file"`
	Description string `json:"description,omitempty"`
	Steps       int    `json:"steps"`
	Error       string `json:"error,omitempty"`
}

// NewFlowsCmd создаёт команду списка flows в каталоге flows.
func NewFlowsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "flows",
		Short: "List flows in the flows directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := env.Config()
			if err != nil {
				return err
			}

			entries, err := os.ReadDir(cfg.FlowsDir)
			if err != nil {
				return err
			}

			var flows []flowRow
			for _, e := range entries {
				if e.IsDir() {
					continue
				}
				if _, err := engine.FormatFromPath(e.Name()); err != nil {
					continue
				}

				row := flowRow{
					Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
					File: e.Name(),
				}
				flow, err := engine.LoadFlow(filepath.Join(cfg.FlowsDir, e.Name()))
				if err != nil {
					row.Error = err.Error()
				} else {
					row.Description = flow.Description
					row.Steps = len(flow.Actions)
				}
				flows = append(flows, row)
			}
			sort.Slice(flows, func(i, j int) bool { return flows[i].File < flows[j].File })

			rows := make([][]string, len(flows))
			for i, f := range flows {
				info := f.Description
				if f.Error != "" {
					info = "error: " + f.Error
				}
				rows[i] = []string{f.Name, strconv.Itoa(f.Steps), info}
			}

			env.Output().Print([]string{"NAME", "STEPS", "DESCRIPTION"}, rows, flows)
			return nil
		},
	}
}

// NewActionsCmd создаёт команду списка действий.
func NewActionsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "actions",
		Short: "List available step types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := env.Dispatcher().Describe()

			rows := make([][]string, len(specs))
			for i, s := range specs {
				params := make([]string, len(s.Params))
				for j, p := range s.Params {
					params[j] = p.Name
					if p.Required {
						params[j] += "*"
					}
				}
				rows[i] = []string{s.Type, s.DisplayName, strings.Join(params, ", ")}
			}

			env.Output().Print([]string{"TYPE", "NAME", "PARAMS"}, rows, specs)
			return nil
		},
	}
}
