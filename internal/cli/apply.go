package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"slot-service/internal/app"
	"slot-service/internal/config"
	"slot-service/internal/logging"
	"slot-service/internal/schedule"
)

var (
	applyTemplateID string
	applyTenant     string
	applyFrom       string
	applyTo         string
)

// openApp builds an App backed by Postgres. Tests swap it out.
var openApp = func(ctx context.Context) (*app.App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	logger, err := logging.New(cfg.IsProduction(), cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	if err := app.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	a := &app.App{
		Slots:        &app.SlotStore{DB: pool},
		Templates:    &app.TemplateStore{DB: pool},
		Logger:       logger,
		Location:     cfg.Location(),
		MaxRangeDays: cfg.MaxApplyRangeDays,
	}
	return a, func() {
		pool.Close()
		_ = logger.Sync()
	}, nil
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show what publishing a stored template would change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApply(cmd, app.ModePreview)
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Write a stored template's slots to the database",
	Long:  `Publish plans the template over the range and upserts every slot in one transaction. Running it twice creates nothing new.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApply(cmd, app.ModePublish)
	},
}

func init() {
	for _, c := range []*cobra.Command{previewCmd, publishCmd} {
		c.Flags().StringVarP(&applyTemplateID, "template", "t", "", "Template ID")
		c.Flags().StringVar(&applyTenant, "tenant", "", "Tenant ID")
		c.Flags().StringVar(&applyFrom, "from", "", "First date (YYYY-MM-DD)")
		c.Flags().StringVar(&applyTo, "to", "", "Last date (YYYY-MM-DD)")
		for _, name := range []string{"template", "tenant", "from", "to"} {
			_ = c.MarkFlagRequired(name)
		}
	}
}

func runApply(cmd *cobra.Command, mode app.Mode) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, closeFn, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := a.ApplyTemplate(ctx, applyTenant, app.ApplyTemplateRequest{
		TemplateID: applyTemplateID,
		StartDate:  applyFrom,
		EndDate:    applyTo,
		Mode:       mode,
		Timezone:   timezone,
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(cmd.OutOrStdout(), res)
	}
	return printApplyResult(cmd.OutOrStdout(), res)
}

func printApplyResult(w io.Writer, res app.ApplyTemplateResult) error {
	if !res.Preview {
		// Publish counts unchanged rows as updated.
		_, err := fmt.Fprintf(w, "Published: %d created, %d updated, %d skipped\n", res.Created, res.Updated, res.Skipped)
		return err
	}
	fmt.Fprintf(w, "Would publish: %d created, %d updated, %d unchanged\n", res.Created, res.Updated, res.Skipped)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(action string, s schedule.DesiredSlot) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%g\n", action, s.Date, s.Start, s.End, s.Capacity)
	}
	for _, s := range res.Samples.Create {
		row("create", s)
	}
	for _, u := range res.Samples.Update {
		row("update", u.DesiredSlot)
	}
	for _, s := range res.Samples.Skip {
		row("skip", s)
	}
	return tw.Flush()
}
