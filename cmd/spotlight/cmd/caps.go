package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/framecast/spotlight/internal/encoder"
)

// capsCmd prints the host capability descriptor used for encoder
// selection, mainly for operator debugging.
var capsCmd = &cobra.Command{
	Use:   "caps",
	Short: "Show detected host encoding capabilities",
	RunE: func(c *cobra.Command, args []string) error {
		caps := encoder.DetectHost(context.Background())

		table := tablewriter.NewWriter(os.Stdout)
		table.Append([]string{"OS/Arch", caps.OS + "/" + caps.Arch})
		table.Append([]string{"CPU", fmt.Sprintf("%s (%d threads)", caps.CPUModel, caps.CPUThreads)})
		table.Append([]string{"RAM", fmt.Sprintf("%.1f GB", float64(caps.RAMTotalBytes)/(1024*1024*1024))})

		for _, family := range []encoder.Family{encoder.FamilyH264, encoder.FamilyH265} {
			hw := caps.HardwareByFamily[family]
			if hw == "" {
				hw = "software only"
			}
			table.Append([]string{string(family) + " encoder", hw})
		}
		table.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(capsCmd)
}
