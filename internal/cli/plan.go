package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"slot-service/internal/schedule"
)

var (
	planTemplateFile string
	planFrom         string
	planTo           string
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the slots a template file would produce",
	Long:  `Expand a template config file over a date range and print the planned slots. Nothing is read from or written to the database.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(planTemplateFile)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		cfg, err := schedule.DecodeConfig(data)
		if err != nil {
			return fmt.Errorf("invalid template %s: %w", planTemplateFile, err)
		}
		for _, issue := range cfg.Issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: ignoring %s\n", issue)
		}

		from, err := schedule.ParseDate(planFrom)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		to, err := schedule.ParseDate(planTo)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
		if from.After(to) {
			return fmt.Errorf("--from must be on or before --to")
		}
		loc := time.UTC
		if timezone != "" {
			if loc, err = time.LoadLocation(timezone); err != nil {
				return fmt.Errorf("invalid --tz: %w", err)
			}
		}

		slots := schedule.PlanSlots("", cfg, from, to, loc)
		if jsonOutput {
			if slots == nil {
				slots = []schedule.DesiredSlot{}
			}
			return outputJSON(cmd.OutOrStdout(), slots)
		}
		return printSlots(cmd.OutOrStdout(), slots)
	},
}

func init() {
	planCmd.Flags().StringVarP(&planTemplateFile, "template", "f", "", "Template config JSON file")
	planCmd.Flags().StringVar(&planFrom, "from", "", "First date (YYYY-MM-DD)")
	planCmd.Flags().StringVar(&planTo, "to", "", "Last date (YYYY-MM-DD)")
	_ = planCmd.MarkFlagRequired("template")
	_ = planCmd.MarkFlagRequired("from")
	_ = planCmd.MarkFlagRequired("to")
}

func printSlots(w io.Writer, slots []schedule.DesiredSlot) error {
	if len(slots) == 0 {
		_, err := fmt.Fprintln(w, "No slots.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tSTART\tEND\tCAPACITY\tUNIT\tNOTES")
	for _, s := range slots {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\t%s\n", s.Date, s.Start, s.End, s.Capacity, s.ResourceUnit, s.Notes)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d slots\n", len(slots))
	return err
}
