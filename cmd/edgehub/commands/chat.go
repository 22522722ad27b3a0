package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgehub/edgehub/internal/httpapi"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the hub's assistant",
	Long: `Send one message to the assistant, or start an interactive session
when no message is given. The assistant can dispatch commands to devices
on your behalf.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient(cmd)
		if err != nil {
			return err
		}

		if len(args) > 0 {
			return chatOnce(client, strings.Join(args, " "))
		}
		return chatLoop(client)
	},
}

func chatOnce(client *apiClient, message string) error {
	var resp httpapi.ChatResponse
	if err := client.do("POST", "/api/chat", httpapi.ChatRequest{Message: message}, &resp); err != nil {
		return err
	}
	printChatResponse(resp)
	return nil
}

func chatLoop(client *apiClient) error {
	fmt.Println("Interactive chat. Type 'exit' or Ctrl-D to quit.")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := chatOnce(client, line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

func printChatResponse(resp httpapi.ChatResponse) {
	fmt.Println(resp.Reply)
	for _, d := range resp.Dispatches {
		switch {
		case d.Error != "":
			fmt.Printf("  [%s/%s] error: %s\n", d.DeviceID, d.Command, d.Error)
		case d.TimedOut:
			fmt.Printf("  [%s/%s] submitted as job %s, no result yet\n", d.DeviceID, d.Command, d.Job.JobID)
		case d.Result != nil && d.Result.OK:
			fmt.Printf("  [%s/%s] ok\n", d.DeviceID, d.Command)
		case d.Result != nil:
			fmt.Printf("  [%s/%s] failed: %s\n", d.DeviceID, d.Command, d.Result.Error)
		}
	}
}
