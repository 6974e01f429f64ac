package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/hetulpatel/employees/internal/cache"
	"github.com/hetulpatel/employees/internal/cli"
	"github.com/hetulpatel/employees/internal/config"
	"github.com/hetulpatel/employees/internal/directory"
	"github.com/hetulpatel/employees/internal/events"
	"github.com/hetulpatel/employees/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("[employees] config: %v", err)
	}
	logging.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd(cfg).ExecuteContext(ctx); err != nil {
		stop()
		logging.Fatalf("[employees] %v", err)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	var opts cli.Options

	cmd := &cobra.Command{
		Use:   "employees <mode>",
		Short: "Manage the employees directory",
		Long: `Modes:
  1  create the employees table
  2  add one employee (--full_name --birth_date --gender)
  3  list all employees
  4  import from the catalog (--limit --filter_gender --filter_name_start)
  5  list employees matching --filter_gender / --filter_name_start`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			mode := cli.ParseMode(args[0])
			opts.LimitSet = cmd.Flags().Changed("limit")

			d := &cli.Dispatcher{
				Out: cmd.OutOrStdout(),
				OpenStore: func(ctx context.Context) (cli.Directory, error) {
					store, err := directory.Open(ctx, cfg.Database)
					if err != nil {
						return nil, err
					}
					logging.Debugf("[employees] opened %s directory", store.Driver())
					return store, nil
				},
			}

			if mode == cli.ModeAdd || mode == cli.ModeImport {
				pub := newPublisher(ctx, cfg.Kafka)
				defer pub.Close()
				d.Events = pub
			}
			if mode == cli.ModeImport && cfg.Redis.Enabled() {
				ledger, err := cache.NewRedisImportLedger(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LedgerTTL, "")
				if err != nil {
					return err
				}
				defer ledger.Close()
				d.Ledger = ledger
			}

			return d.Run(ctx, mode, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.FullName, "full_name", "", "employee full name (mode 2)")
	f.StringVar(&opts.BirthDate, "birth_date", "", "birth date as YYYY-MM-DD (mode 2)")
	f.StringVar(&opts.Gender, "gender", "", "gender (mode 2)")
	f.StringVar(&opts.FilterGender, "filter_gender", "", "gender filter (modes 4, 5)")
	f.StringVar(&opts.FilterNameStart, "filter_name_start", "", "name prefix filter (modes 4, 5)")
	f.IntVar(&opts.Limit, "limit", 0, "maximum number of catalog entries to insert (mode 4)")
	f.StringVar(&opts.CatalogPath, "catalog", cfg.CatalogPath, "catalog file (mode 4)")
	f.BoolVar(&opts.SkipImported, "skip_imported", false, "skip catalog entries recorded in the redis import ledger (mode 4)")
	return cmd
}

func newPublisher(ctx context.Context, k config.Kafka) events.Publisher {
	if !k.Enabled() {
		return events.Nop()
	}
	ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return events.NewKafkaPublisher(ensureCtx, k.Brokers, k.Topic)
}
