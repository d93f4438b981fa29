package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"garage/internal/cli"
	"garage/internal/importer"
	"garage/internal/log"
	"garage/internal/services"
)

var (
	flagProjectID int64
	flagMode      string
	flagUser      string
	flagTimezone  string
	flagDryRun    bool
)

var rootCmd = &cobra.Command{
	Use:   "garage-import <file.csv>",
	Short: "Import expenses from a CSV export",
	Long: "Reads a CSV export with the columns Name, Amount, Category, Created.\n" +
		"Amounts are in the secondary currency and are converted to EUR at the fixed peg rate.",
	Args:          cobra.ExactArgs(1),
	RunE:          runImport,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().Int64VarP(&flagProjectID, "project-id", "p", importer.DefaultProjectID, "Project the expenses belong to")
	rootCmd.Flags().StringVarP(&flagMode, "mode", "m", string(importer.ModeRounded), "Conversion mode: rounded or unrounded")
	rootCmd.Flags().StringVarP(&flagUser, "user", "u", "", "Owner of the project (defaults to DEFAULT_USER_ID)")
	rootCmd.Flags().StringVar(&flagTimezone, "tz", "UTC", "Time zone of dates without an offset")
	rootCmd.Flags().BoolVarP(&flagDryRun, "dry-run", "n", false, "Parse and report without writing")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	mode, err := importer.ParseMode(flagMode)
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(flagTimezone)
	if err != nil {
		return fmt.Errorf("load time zone: %w", err)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	res, err := importer.Parse(f, importer.Options{ProjectID: flagProjectID, Mode: mode, Location: loc})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range res.Skipped {
		fmt.Fprintf(out, "  skipped line %d: %s\n", s.Line, s.Reason)
	}
	if flagDryRun {
		for _, e := range res.Expenses {
			fmt.Fprintf(out, "  %s  %-40s %-12s %10s EUR (%s)\n",
				e.Date.Format("2006-01-02"), e.Description, e.Category, e.Amount, e.AmountSecondary)
		}
		fmt.Fprintf(out, "Dry run: %d expenses parsed, %d skipped\n", len(res.Expenses), len(res.Skipped))
		return nil
	}

	cfg, logger := cli.Bootstrap(log.ComponentImporter)
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	user := flagUser
	if user == "" {
		user = cfg.DefaultUserID
	}
	if user == "" {
		return fmt.Errorf("no user: pass --user or set DEFAULT_USER_ID")
	}

	backend := cli.OpenBackend(ctx, logger, cfg)
	defer cli.CloseBackend(logger, backend)

	project, err := backend.Store.GetProject(ctx, user, flagProjectID)
	if err != nil {
		return fmt.Errorf("project %d: %w", flagProjectID, err)
	}

	expenses := services.NewExpenseService(backend.Store, backend.SyncPublisher(), nil)
	n, err := expenses.Import(ctx, user, res.Expenses)
	logger.InfoContext(ctx, "Import finished",
		log.FieldProjectID, project.ID,
		"imported", n,
		"skipped", len(res.Skipped),
		"mode", mode)
	if err != nil {
		return fmt.Errorf("imported %d of %d: %w", n, len(res.Expenses), err)
	}
	fmt.Fprintf(out, "Imported %d expenses into %q, %d skipped\n", n, project.Name, len(res.Skipped))
	return nil
}
