package commands

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgehub/edgehub/internal/httpapi"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List and manage registered devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Bare "edgehub devices" lists.
		return listDevices(cmd)
	},
}

func init() {
	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesShowCmd)
	devicesCmd.AddCommand(devicesRenameCmd)
	devicesCmd.AddCommand(devicesApproveCmd)
	devicesCmd.AddCommand(devicesDeleteCmd)
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listDevices(cmd)
	},
}

func listDevices(cmd *cobra.Command) error {
	client, err := newAPIClient(cmd)
	if err != nil {
		return err
	}

	var devices []httpapi.DeviceResponse
	if err := client.do("GET", "/api/devices", nil, &devices); err != nil {
		return err
	}

	if len(devices) == 0 {
		fmt.Println("No devices registered.")
		return nil
	}

	fmt.Printf("%-24s %-20s %-10s %-6s %s\n", "DEVICE", "NAME", "STATUS", "QUEUE", "LAST SEEN")
	for _, d := range devices {
		status := "approved"
		if !d.Approved {
			status = "pending"
		}
		fmt.Printf("%-24s %-20s %-10s %-6d %s\n",
			d.DeviceID, d.DisplayName, status, d.QueueDepth,
			d.LastSeen.Local().Format(time.RFC822))
	}
	return nil
}

var devicesShowCmd = &cobra.Command{
	Use:   "show <device-id>",
	Short: "Show one device in detail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		var d httpapi.DeviceResponse
		if err := client.do("GET", "/api/devices/"+url.PathEscape(args[0]), nil, &d); err != nil {
			return err
		}

		fmt.Printf("Device:      %s\n", d.DeviceID)
		if d.DisplayName != "" {
			fmt.Printf("Name:        %s\n", d.DisplayName)
		}
		fmt.Printf("Approved:    %t\n", d.Approved)
		fmt.Printf("Registered:  %s\n", d.RegisteredAt.Local().Format(time.RFC822))
		fmt.Printf("Last seen:   %s\n", d.LastSeen.Local().Format(time.RFC822))
		fmt.Printf("Queue depth: %d\n", d.QueueDepth)
		if len(d.Capabilities) > 0 {
			fmt.Println("Capabilities:")
			for _, c := range d.Capabilities {
				if c.Description != "" {
					fmt.Printf("  %-12s %s\n", c.Name, c.Description)
				} else {
					fmt.Printf("  %s\n", c.Name)
				}
			}
		}
		if d.LastResult != nil {
			fmt.Printf("Last result: job %s ok=%t\n", d.LastResult.JobID, d.LastResult.OK)
		}
		return nil
	},
}

var devicesRenameCmd = &cobra.Command{
	Use:   "rename <device-id> <display-name>",
	Short: "Set a device's display name (empty name clears it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		var d httpapi.DeviceResponse
		err = client.do("PATCH", "/api/devices/"+url.PathEscape(args[0])+"/name",
			httpapi.RenameRequest{DisplayName: args[1]}, &d)
		if err != nil {
			return err
		}
		if d.DisplayName == "" {
			fmt.Printf("Cleared display name of %s\n", d.DeviceID)
		} else {
			fmt.Printf("Renamed %s to %q\n", d.DeviceID, d.DisplayName)
		}
		return nil
	},
}

var devicesApproveCmd = &cobra.Command{
	Use:   "approve <device-id>",
	Short: "Approve a device for job submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		var d httpapi.DeviceResponse
		if err := client.do("POST", "/api/devices/"+url.PathEscape(args[0])+"/approve", nil, &d); err != nil {
			return err
		}
		fmt.Printf("Approved %s\n", d.DeviceID)
		return nil
	},
}

var devicesDeleteCmd = &cobra.Command{
	Use:   "delete <device-id>",
	Short: "Delete a device and discard its queued jobs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		if err := client.do("DELETE", "/api/devices/"+url.PathEscape(args[0]), nil, nil); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}
