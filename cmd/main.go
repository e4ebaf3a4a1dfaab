package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"price-drop-tracker/config"
	"price-drop-tracker/internal/alert"
	"price-drop-tracker/internal/commands"
	"price-drop-tracker/internal/logs"
	"price-drop-tracker/internal/market"
	"price-drop-tracker/internal/server"
	"price-drop-tracker/internal/types"
	"price-drop-tracker/lib/helpers"
	"price-drop-tracker/lib/translation"
)

func init() {
	config.InitConfig()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "price-drop",
		Short: "Track daily price drops and alert on Telegram",
		Long: `price-drop checks a list of instruments during market hours and sends a
Telegram alert each time a drop crosses a deeper step of the alert ladder.

Without a command it runs the scheduler and the status server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			translation.Configure("locales", config.GetString("lang"))
		},
		RunE: runServe,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the scheduler, the status server and the Telegram listener",
			RunE:  runServe,
		},
		newCheckCmd(),
		&cobra.Command{
			Use:   "symbols",
			Short: "List the tracked symbols",
			RunE:  runSymbols,
		},
		&cobra.Command{
			Use:   "threshold <change-pct>...",
			Short: "Show the alert ladder step for the given changes",
			Args:  cobra.MinimumNArgs(1),
			// negative changes would otherwise be parsed as shorthand flags
			DisableFlagParsing: true,
			RunE:               runThreshold,
		},
	)
	return rootCmd
}

func setupLogging(toFile bool) *logs.DailyFileHook {
	cfg := logs.Config{Debug: config.GetBool("debug"), Now: func() time.Time { return time.Now().In(config.Location()) }}
	if toFile {
		cfg.Dir = config.GetString("log_dir")
	}

	hook, err := logs.Setup(cfg)
	if err != nil {
		log.Warnf("File logging disabled: %v", err)
	}
	return hook
}

func runServe(cmd *cobra.Command, _ []string) error {
	hook := setupLogging(true)
	if hook != nil {
		defer hook.Close()
	}

	a, err := newApp(appOptions{withDatabase: true})
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanupLogs := func() {
		if _, err := logs.Cleanup(config.GetString("log_dir"), config.GetInt("log_retention_days"), time.Now().In(a.loc)); err != nil {
			log.Warn(err)
		}
	}
	cleanupLogs()

	svc := alert.NewService(ctx, a.checker, a.loc)
	if err := svc.ScheduleChecks(config.CheckInterval()); err != nil {
		return err
	}
	if err := svc.ScheduleDaily("log cleanup", "00:05", cleanupLogs); err != nil {
		return err
	}
	if err := svc.ScheduleEvery("metrics save", 5*time.Minute, a.saveMetrics); err != nil {
		return err
	}
	svc.Start()
	defer svc.Stop()

	if a.bot != nil && config.GetBool("telegram_commands") {
		go a.bot.Listen(ctx, a.checker, a.charts, time.Minute)
	}

	opts := server.Options{
		Tracker:  a.checker,
		Notifier: a.notifier,
		Charts:   a.charts,
		LogDir:   config.GetString("log_dir"),
		Now:      func() time.Time { return time.Now().In(a.loc) },
	}
	if a.bot != nil {
		opts.Photos = a.bot
	}
	if a.db != nil {
		opts.History = a.db
	}
	if a.metrics != nil {
		opts.Metrics = a.metrics.Handler()
	}

	log.Info("Service Status: Started")
	err = server.New(opts).ListenAndServe(ctx, fmt.Sprintf(":%d", config.GetInt("http_port")))

	a.saveMetrics()
	log.Info("Service Status: Stopped")
	return err
}

func newCheckCmd() *cobra.Command {
	var dryRun, force bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run a single price check and print the results",
		RunE: func(cmd *cobra.Command, _ []string) error {
			hook := setupLogging(!dryRun)
			if hook != nil {
				defer hook.Close()
			}

			a, err := newApp(appOptions{dryRun: dryRun, withDatabase: true})
			if err != nil {
				return err
			}
			defer a.close()

			var snapshot *types.Snapshot
			if force {
				snapshot, err = a.checker.ForceCycle(cmd.Context())
			} else {
				snapshot, err = a.checker.RunCycle(cmd.Context())
			}
			if errors.Is(err, market.ErrMarketClosed) {
				fmt.Fprintln(cmd.OutOrStdout(), commands.MarketClosed(err))
				return nil
			}
			if err != nil {
				return err
			}

			printResults(cmd, snapshot)
			a.saveMetrics()
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "keep thresholds in memory and log alerts instead of sending them")
	cmd.Flags().BoolVar(&force, "force", false, "check even when the market is closed")
	return cmd
}

func printResults(cmd *cobra.Command, snapshot *types.Snapshot) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Symbol", "Name", "Price", "Change", "Alert", "Error"})

	for _, r := range snapshot.Results {
		row := []string{r.Symbol, r.Name, "", "", "", r.Error}
		if r.Checked() {
			row[2] = helpers.FormatPriceUS(r.Price, false)
			row[3] = helpers.FormatPercent(r.ChangePct, 2, false)
		}
		if r.AlertSent && r.Threshold != nil {
			row[4] = helpers.FormatPercent(*r.Threshold, 2, false)
		}
		if r.NotifyError != "" {
			row[5] = r.NotifyError
		}
		table.Append(row)
	}
	table.Render()
}

func runSymbols(cmd *cobra.Command, _ []string) error {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Symbol", "Name"})
	for _, s := range config.Symbols() {
		table.Append([]string{s.Symbol, s.Name})
	}
	table.Render()
	return nil
}

func runThreshold(cmd *cobra.Command, args []string) error {
	ladder, err := alert.NewLadder(config.GetFloat64("alert_threshold_first"), config.GetFloat64("alert_threshold_step"))
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Change", "Threshold"})
	for _, arg := range args {
		change, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid change %q", arg)
		}

		threshold, crossed, err := ladder.Next(change)
		if err != nil {
			return err
		}
		cell := "-"
		if crossed {
			cell = helpers.FormatPercent(threshold, 2, false)
		}
		table.Append([]string{helpers.FormatPercent(change, 2, false), cell})
	}
	table.Render()
	return nil
}
