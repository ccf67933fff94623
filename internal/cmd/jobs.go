package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	apperrors "github.com/jabez4jc/openalgo-control/internal/errors"
	"github.com/jabez4jc/openalgo-control/pkg/jobs"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect jobs on a running control plane",
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show one job's state",
	Long: `Fetch a job record from a running openalgoctl serve process.

Examples:
  openalgoctl jobs status 2f1c0c7e-...-a1
  openalgoctl jobs status 2f1c0c7e-...-a1 --server http://127.0.0.1:9000`,
	Args: cobra.ExactArgs(1),
	RunE: runJobsStatus,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent jobs, newest first",
	RunE:  runJobsList,
}

var jobsServerURL string

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(jobsListCmd)

	jobsCmd.PersistentFlags().StringVar(&jobsServerURL, "server", "http://127.0.0.1:8888", "Base URL of the running server")
	jobsStatusCmd.Flags().Bool("json", false, "Output as JSON")
	jobsListCmd.Flags().Bool("json", false, "Output as JSON")
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	var job jobs.Job
	if err := apiGet(fmt.Sprintf("%s/api/jobs/%s", jobsServerURL, args[0]), &job); err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(job)
	}

	fmt.Printf("Job:      %s\n", job.ID)
	fmt.Printf("Action:   %s (scope %s", job.Action, job.Params.Scope)
	if job.Params.Instance != "" {
		fmt.Printf(", instance %s", job.Params.Instance)
	}
	fmt.Println(")")
	fmt.Printf("Status:   %s\n", job.Status)
	fmt.Printf("Created:  %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.StartedAt != nil {
		fmt.Printf("Started:  %s\n", job.StartedAt.Format(time.RFC3339))
	}
	if job.FinishedAt != nil {
		fmt.Printf("Finished: %s\n", job.FinishedAt.Format(time.RFC3339))
	}
	if job.ExitCode != nil {
		fmt.Printf("Exit:     %d\n", *job.ExitCode)
	}
	if job.Error != "" {
		fmt.Printf("Error:    %s\n", job.Error)
	}
	if job.Output != "" {
		fmt.Println("Output:")
		fmt.Println(job.Output)
	}
	return nil
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	var resp struct {
		Jobs  []jobs.Job `json:"jobs"`
		Count int        `json:"count"`
	}
	if err := apiGet(jobsServerURL+"/api/jobs", &resp); err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(resp)
	}

	if resp.Count == 0 {
		_, _ = fmt.Fprintln(os.Stderr, "No jobs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tACTION\tSCOPE\tINSTANCE\tSTATUS\tCREATED")
	for _, job := range resp.Jobs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			job.ID, job.Action, job.Params.Scope, orDash(job.Params.Instance),
			job.Status, job.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

// apiGet fetches one API resource and decodes it, translating the server's
// error envelope into a foundry-coded failure.
func apiGet(url string, v interface{}) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Cannot reach server", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		var envelope apperrors.HTTPErrorResponse
		msg := "not found"
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
			msg = envelope.Error.Message
		}
		return exitError(foundry.ExitFileNotFound, msg, nil)
	}
	if resp.StatusCode != http.StatusOK {
		return exitError(foundry.ExitExternalServiceUnavailable,
			fmt.Sprintf("Server returned %s", resp.Status), nil)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
