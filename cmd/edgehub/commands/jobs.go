package commands

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/edgehub/edgehub/internal/httpapi"
)

var (
	submitArgsJSON string
	submitWait     bool
	submitTimeout  int
)

var submitCmd = &cobra.Command{
	Use:   "submit <device-id> <command>",
	Short: "Submit a job to a device",
	Long: `Submit a command to a device's queue. With --wait the call blocks
until the device posts a result or the timeout elapses.

Arguments are passed as a JSON object, for example:

  edgehub submit pico-1 set_led --args '{"state": true}' --wait`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		var cmdArgs map[string]interface{}
		if submitArgsJSON != "" {
			if err := json.Unmarshal([]byte(submitArgsJSON), &cmdArgs); err != nil {
				return fmt.Errorf("invalid --args JSON: %w", err)
			}
		}

		var resp httpapi.SubmitJobResponse
		err = client.do("POST", "/api/jobs", httpapi.SubmitJobRequest{
			DeviceID:       args[0],
			Command:        args[1],
			Args:           cmdArgs,
			Wait:           submitWait,
			TimeoutSeconds: submitTimeout,
		}, &resp)
		if err != nil {
			return err
		}

		fmt.Printf("Job %s (%s)\n", resp.Job.JobID, resp.Job.State)
		switch {
		case resp.Result != nil:
			printResult(resp.Result)
		case resp.TimedOut:
			fmt.Println("No result within the wait timeout; check later with 'edgehub job get'.")
		}
		return nil
	},
}

func init() {
	submitCmd.Flags().StringVar(&submitArgsJSON, "args", "", "Command arguments as a JSON object")
	submitCmd.Flags().BoolVar(&submitWait, "wait", false, "Block until the result arrives")
	submitCmd.Flags().IntVar(&submitTimeout, "timeout", 0, "Wait timeout in seconds (0 = server default)")

	jobCmd.AddCommand(jobGetCmd)
	jobCmd.AddCommand(jobCancelCmd)
}

var jobCmd = &cobra.Command{
	Use:   "job",
	Short: "Inspect and cancel jobs",
}

var jobGetCmd = &cobra.Command{
	Use:   "get <job-id>",
	Short: "Show a job's state and result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		var job httpapi.JobResponse
		if err := client.do("GET", "/api/jobs/"+url.PathEscape(args[0]), nil, &job); err != nil {
			return err
		}
		printJob(job)
		return nil
	},
}

var jobCancelCmd = &cobra.Command{
	Use:   "cancel <job-id>",
	Short: "Cancel a job that has not been dispatched yet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		var job httpapi.JobResponse
		if err := client.do("POST", "/api/jobs/"+url.PathEscape(args[0])+"/cancel", nil, &job); err != nil {
			return err
		}
		fmt.Printf("Cancelled job %s\n", job.JobID)
		return nil
	},
}

func printJob(job httpapi.JobResponse) {
	fmt.Printf("Job:     %s\n", job.JobID)
	fmt.Printf("Device:  %s\n", job.DeviceID)
	fmt.Printf("Command: %s\n", job.Command.Name)
	fmt.Printf("State:   %s\n", job.State)
	if job.Result != nil {
		printResult(job.Result)
	}
}

func printResult(r *httpapi.ResultResponse) {
	status := "ok"
	if !r.OK {
		status = "failed"
	}
	fmt.Printf("Result:  %s\n", status)
	if !r.ReturnValue.IsNull() {
		fmt.Printf("Return:  %s\n", r.ReturnValue.String())
	}
	if r.Stdout != "" {
		fmt.Printf("Stdout:\n%s\n", r.Stdout)
	}
	if r.Stderr != "" {
		fmt.Printf("Stderr:\n%s\n", r.Stderr)
	}
	if r.Error != "" {
		fmt.Printf("Error:   %s\n", r.Error)
	}
}
