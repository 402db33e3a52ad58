package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/uniyakcom/herald/optimize"
)

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List built-in bus profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		head := color.New(color.Bold)
		head.Fprintln(w, "NAME\tMAX LISTENERS\tASYNC TIMEOUT\tTRACE\tHISTORY\tCLEANUP")
		for _, name := range optimize.PresetNames() {
			p := optimize.Preset(name)
			cleanup := "off"
			if p.Cleanup.Enabled {
				cleanup = fmt.Sprintf("every %s, maxAge %s", p.Cleanup.Interval, p.Cleanup.MaxAge)
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%v\t%d\t%s\n",
				name, p.MaxListeners, p.AsyncTimeout, p.TraceEvents, p.HistorySize, cleanup)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}
