package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/propertyinbox/internal/simulation"
)

type simulateOptions struct {
	input   simulation.Input
	xlsx    string
	number  string
	station string
}

func newSimulateCmd() *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the investment simulation for a property",
		Long: `Run the investment simulation with the default assumptions and print
the summary. With --xlsx the simulation workbook is written as well.

Example:
  propertyinbox simulate --price 98000000 --rent 520000 --units 8 --xlsx sim.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd, opts)
		},
	}

	cmd.Flags().Float64Var(&opts.input.Price, "price", 0, "Purchase price in yen (required)")
	cmd.Flags().Float64Var(&opts.input.MonthlyRent, "rent", 0, "Monthly rent at full occupancy in yen (required)")
	cmd.Flags().Float64Var(&opts.input.ManagementFee, "management-fee", 0, "Monthly management fee in yen")
	cmd.Flags().Float64Var(&opts.input.ReserveFund, "reserve-fund", 0, "Monthly repair reserve in yen")
	cmd.Flags().IntVar(&opts.input.TotalUnits, "units", 0, "Number of units")
	cmd.Flags().StringVar(&opts.xlsx, "xlsx", "", "Write the simulation workbook to this path")
	cmd.Flags().StringVar(&opts.number, "number", "", "Property number shown in the workbook")
	cmd.Flags().StringVar(&opts.station, "station", "", "Station shown in the workbook")

	return cmd
}

func runSimulate(cmd *cobra.Command, opts simulateOptions) error {
	result, err := simulation.Run(opts.input)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, strings.TrimLeft(strings.Join(simulation.SummaryLines(result), "\n"), "\n"))

	if opts.xlsx == "" {
		return nil
	}
	data, err := simulation.WorkbookBytes(result, opts.number, opts.station, time.Now())
	if err != nil {
		return fmt.Errorf("failed to build workbook: %w", err)
	}
	if err := os.WriteFile(opts.xlsx, data, 0o644); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	fmt.Fprintf(out, "\nWorkbook written to %s\n", opts.xlsx)
	return nil
}
