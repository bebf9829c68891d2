package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/sarchlab/axidma/dma"
	"github.com/spf13/cobra"
)

func newRegsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regs",
		Short: "Print the register map of the DMA engine.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)

			fmt.Fprintln(w, "OFFSET\tNAME\tACCESS\tFIELDS")

			for _, r := range dma.RegisterMap() {
				fmt.Fprintf(w, "0x%02X\t%s\t%s\t%s\n",
					r.Offset, r.Name, r.Access, r.Fields)
			}

			return w.Flush()
		},
	}
}
