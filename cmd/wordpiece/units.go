package main

import (
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newUnitsCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "units",
		Short: "List the units of a trained model in persisted order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if top < 0 {
				return fmt.Errorf("--top must not be negative")
			}

			enc, err := loadEncoder(cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, err = fmt.Fprintf(w, "n_iters=%d max_length=%d units=%d\n\n", enc.NIters(), enc.MaxLength(), enc.Len())
			if err != nil {
				return err
			}

			var data [][]string
			for _, u := range enc.TopUnits(top) {
				data = append(data, []string{u.Text, strconv.Itoa(u.Freq), strconv.Itoa(len([]rune(u.Text)))})
			}

			table := tablewriter.NewWriter(w)
			table.SetHeader([]string{"UNIT", "FREQUENCY", "LENGTH"})
			table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
			table.SetAlignment(tablewriter.ALIGN_LEFT)
			table.SetHeaderLine(false)
			table.SetBorder(false)
			table.SetNoWhiteSpace(true)
			table.SetTablePadding("    ")
			table.AppendBulk(data)
			table.Render()

			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 50, "Number of units to list (0 lists all)")

	return cmd
}
