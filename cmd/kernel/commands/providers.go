package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kbukum/gokernel/status"
)

var (
	statusAddr   string
	providersRaw bool
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List provider states of a running node",
	Long: `Query the status API of a running node and print every provider with
its current lifecycle state.

Examples:
  kernel providers
  kernel providers --addr 10.0.0.5:4040 --json`,
	RunE: runProviders,
}

func init() {
	providersCmd.Flags().StringVar(&statusAddr, "addr", "localhost:4040", "Status API address")
	providersCmd.Flags().BoolVar(&providersRaw, "json", false, "Print the raw JSON response")
}

func runProviders(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + statusAddr + "/providers")
	if err != nil {
		return fmt.Errorf("querying status API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status API returned %s", resp.Status)
	}

	var body struct {
		Providers []status.ProviderView `json:"providers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	if providersRaw {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(body)
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Name", "Display Name", "State"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, p := range body.Providers {
		table.Append([]string{p.Name, p.DisplayName, p.State.String()})
	}
	table.Render()
	return nil
}
