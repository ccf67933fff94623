package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/jabez4jc/openalgo-control/internal/observability"
	"github.com/jabez4jc/openalgo-control/pkg/authstate"
	"github.com/jabez4jc/openalgo-control/pkg/instance"
)

var instancesCmd = &cobra.Command{
	Use:   "instances",
	Short: "Inspect managed OpenAlgo instances",
}

var instancesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List instance directories under the instances root",
	Long: `List the instance directories found under the configured instances
root, filtered to the openalgo<N> naming convention.

Examples:
  openalgoctl instances list
  openalgoctl instances list --json`,
	RunE: runInstancesList,
}

var instancesStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show systemd and authentication state per instance",
	Long: `Query systemctl is-active for every instance and read each
instance's authentication state from its database.

Examples:
  openalgoctl instances status
  openalgoctl instances status --json`,
	RunE: runInstancesStatus,
}

func init() {
	rootCmd.AddCommand(instancesCmd)
	instancesCmd.AddCommand(instancesListCmd)
	instancesCmd.AddCommand(instancesStatusCmd)

	instancesListCmd.Flags().Bool("json", false, "Output as JSON")
	instancesStatusCmd.Flags().Bool("json", false, "Output as JSON")
}

func runInstancesList(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	manager := instance.NewManager(cfg.Paths.InstancesRoot, observability.CLILogger)
	ids, err := manager.List()
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to scan instances root", err)
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(map[string]interface{}{
			"instances": ids,
			"count":     len(ids),
		})
	}

	if len(ids) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "No instances found under", cfg.Paths.InstancesRoot)
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

type instanceStatusRow struct {
	Instance string `json:"instance"`
	Service  string `json:"service"`
	Auth     string `json:"auth"`
	Broker   string `json:"broker,omitempty"`
	Port     string `json:"port,omitempty"`
}

func runInstancesStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	manager := instance.NewManager(cfg.Paths.InstancesRoot, observability.CLILogger)
	ids, err := manager.List()
	if err != nil {
		return exitError(foundry.ExitFileReadError, "Failed to scan instances root", err)
	}

	rows := make([]instanceStatusRow, 0, len(ids))
	for _, id := range ids {
		dir := manager.Dir(id)
		auth := authstate.Read(ctx, dir)
		env := instance.ReadEnv(dir)
		rows = append(rows, instanceStatusRow{
			Instance: id,
			Service:  manager.Status(ctx, id),
			Auth:     string(auth.Status),
			Broker:   auth.Broker,
			Port:     env.Port,
		})
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "No instances found under", cfg.Paths.InstancesRoot)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "INSTANCE\tSERVICE\tAUTH\tBROKER\tPORT")
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			row.Instance, row.Service, row.Auth, orDash(row.Broker), orDash(row.Port))
	}
	return w.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
