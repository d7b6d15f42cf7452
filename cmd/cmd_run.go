// cmd_run.go - Run und List Commands
// Hauptfunktionen: RunHandler, ListHandler
//
// Eingabeformat von run: jedes Positionsargument ist eine Invocation,
// Samples sind mit ';' getrennt, Werte eines Samples mit ','.
// Beispiel: nnscope run "1,2,3,4" "5,6,7,8;9,10,11,12"
package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nnscope/nnscope/api"
)

// parseInvocation parst eine Invocation aus der Kommandozeile
func parseInvocation(arg string) (api.Invocation, error) {
	var inv api.Invocation
	for _, sample := range strings.Split(arg, ";") {
		var row []float32
		for _, field := range strings.Split(sample, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
			if err != nil {
				return api.Invocation{}, fmt.Errorf("invalid input value %q: %w", field, err)
			}
			row = append(row, float32(v))
		}
		inv.Inputs = append(inv.Inputs, row)
	}
	return inv, nil
}

// RunHandler - Fuehrt eine Tracing-Session auf dem Server aus
func RunHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	req := &api.TraceRequest{}

	req.Model, err = cmd.Flags().GetString("model")
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("scan") {
		scan, err := cmd.Flags().GetBool("scan")
		if err != nil {
			return err
		}
		req.Scan = &scan
	}

	for _, arg := range args {
		inv, err := parseInvocation(arg)
		if err != nil {
			return err
		}
		req.Invocations = append(req.Invocations, inv)
	}

	resp, err := client.Trace(cmd.Context(), req)
	if err != nil {
		return err
	}

	var data [][]string
	for i, row := range resp.Output {
		fields := make([]string, 0, len(row)+1)
		fields = append(fields, strconv.Itoa(i))
		for _, v := range row {
			fields = append(fields, strconv.FormatFloat(float64(v), 'f', 4, 32))
		}
		data = append(data, fields)
	}

	fmt.Printf("session %s: batch_start=%d batch_size=%d samples=%d in %s\n",
		resp.ID, resp.BatchStart, resp.BatchSize, resp.TotalSamples, resp.TotalDuration)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()

	return nil
}

// ListHandler - Listet alle registrierten Architekturen auf
func ListHandler(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	resp, err := client.List(cmd.Context())
	if err != nil {
		return err
	}

	for _, name := range resp.Models {
		fmt.Println(name)
	}

	return nil
}

// newRunCmd - Erstellt den run Command
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run SAMPLES...",
		Short: "Run inputs through a model as one batched trace",
		Args:  cobra.MinimumNArgs(1),
		RunE:  RunHandler,
	}

	runCmd.Flags().String("model", "mlp", "Model architecture to trace")
	runCmd.Flags().Bool("scan", true, "Validate shapes with a symbolic scan before executing")

	return runCmd
}

// newListCmd - Erstellt den list Command
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered model architectures",
		Args:    cobra.ExactArgs(0),
		RunE:    ListHandler,
	}
}
