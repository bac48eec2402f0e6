package cli

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput bool
	timezone   string
)

// rootCmd is the root command for slotctl.
var rootCmd = &cobra.Command{
	Use:     "slotctl",
	Version: "dev",
	Short:   "Plan and publish delivery slots from templates",
	Long: `slotctl turns slot templates into concrete delivery slots.

plan works on a template file and never touches the database. preview and
publish load a stored template and run the same code path as the API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

func SetVersion(v string) {
	if v == "" {
		return
	}
	rootCmd.Version = v
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&timezone, "tz", "", "Planning timezone (IANA name)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(publishCmd)
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
