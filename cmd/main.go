package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/amirphl/simple-executor/internal/clock"
	"github.com/amirphl/simple-executor/internal/config"
	"github.com/amirphl/simple-executor/internal/db"
	"github.com/amirphl/simple-executor/internal/db/conf"
	"github.com/amirphl/simple-executor/internal/exchange"
	"github.com/amirphl/simple-executor/internal/journal"
	"github.com/amirphl/simple-executor/internal/notifier"
	"github.com/amirphl/simple-executor/internal/order"
	"github.com/amirphl/simple-executor/internal/pair"
	"github.com/amirphl/simple-executor/internal/strategy"
	"github.com/amirphl/simple-executor/internal/utils"
	"github.com/amirphl/simple-executor/internal/validate"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const usage = `usage: simple-executor [global flags] <command> [args] [flags]

commands:
  market SYMBOL SIDE QUANTITY [-reduce-only]
  limit  SYMBOL SIDE QUANTITY PRICE [-tif GTC|IOC|FOK]
  oco    SYMBOL SIDE QUANTITY -tp PRICE -sl PRICE [-open-type MARKET|LIMIT] [-open-price P] [-poll 2s] [-timeout 0]
  twap   SYMBOL SIDE QUANTITY [-slices 5] [-duration 300s]
  grid   SYMBOL LOW HIGH STEPS QTY
  pairs
  resume PAIR_ID [-poll 2s] [-timeout 0]
  migrate

run with -h for the global flags`

// errUsage makes main print the usage text instead of the error.
var errUsage = errors.New("usage")

type app struct {
	cfg    config.Config
	logger *zap.Logger
	runner *strategy.Runner
}

type command struct {
	args  int
	trade bool
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"market": {args: 3, trade: true, run: runMarket},
	"limit":  {args: 4, trade: true, run: runLimit},
	"oco":    {args: 3, trade: true, run: runOCO},
	"twap":   {args: 3, trade: true, run: runTWAP},
	"grid":   {args: 5, trade: true, run: runGrid},
	"pairs":  {args: 0, run: runPairs},
	"resume": {args: 1, trade: true, run: runResume},
}

func main() {
	cfg, args := config.MustLoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, args); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	name, args := args[0], args[1:]

	if name == "migrate" {
		if len(args) != 0 {
			return errUsage
		}
		return runMigrations(ctx, cfg.DBConnStr)
	}

	cmd, ok := commands[name]
	if !ok {
		return errUsage
	}
	if len(args) < cmd.args {
		return errUsage
	}
	if cmd.trade {
		if err := cfg.RequireCredentials(); err != nil {
			return err
		}
	}

	logger, cleanup, err := utils.NewLogger(utils.LogOptions{File: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.RunMigration {
		if err := runMigrations(ctx, cfg.DBConnStr); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rec := journal.NewRecorder(logger, store)

	var n notifier.Notifier = notifier.Nop{}
	if cfg.NotificationsEnabled() {
		tn, err := notifier.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, cfg.NotificationRetries, cfg.NotificationDelay, logger)
		if err != nil {
			return err
		}
		n = tn
	}

	var gw exchange.Gateway = exchange.NewWallexGateway(cfg.WallexAPIKey, rec)
	if cfg.Testnet {
		gw = exchange.NewPaperGateway(gw, clock.Real{}, rec)
	}
	logger.Info("simple-executor starting",
		zap.String("command", name), zap.String("exchange", gw.Name()), zap.String("storage", cfg.Storage))

	a := &app{
		cfg:    cfg,
		logger: logger,
		runner: strategy.New(gw, store, n, clock.Real{}, rec, strategy.Options{
			QuantityPrecision: cfg.QuantityPrecision,
			PricePrecision:    cfg.PricePrecision,
		}),
	}
	return cmd.run(ctx, a, args)
}

func openStorage(ctx context.Context, cfg config.Config) (db.Storage, error) {
	switch cfg.Storage {
	case config.StoragePostgres:
		dbConfig, err := conf.Connect(ctx, cfg.DBConnStr, cfg.DBMaxOpen, cfg.DBMaxIdle, cfg.DBConnectWait)
		if err != nil {
			return nil, err
		}
		return db.New(*dbConfig)
	case config.StorageRedis:
		return db.NewRedis(ctx, cfg.RedisURL, cfg.RedisPrefix)
	default:
		return db.NewMemory(), nil
	}
}

// parse splits the fixed positionals off args and parses the remaining flags.
func parse(fs *flag.FlagSet, args []string, positionals int) ([]string, error) {
	fs.SetOutput(os.Stderr)
	if err := fs.Parse(args[positionals:]); err != nil {
		return nil, errUsage
	}
	if fs.NArg() != 0 {
		return nil, errUsage
	}
	return args[:positionals], nil
}

// orderArgs reads the common SYMBOL SIDE QUANTITY positionals.
func orderArgs(pos []string) (string, order.Side, string, error) {
	side, err := validate.Side(pos[1])
	if err != nil {
		return "", "", "", err
	}
	return pos[0], side, pos[2], nil
}

func runMarket(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("market", flag.ContinueOnError)
	reduceOnly := fs.Bool("reduce-only", false, "Only reduce an existing position")
	pos, err := parse(fs, args, 3)
	if err != nil {
		return err
	}
	symbol, side, qtyArg, err := orderArgs(pos)
	if err != nil {
		return err
	}
	qty, err := validate.PositiveNumber("quantity", qtyArg)
	if err != nil {
		return err
	}

	o, err := a.runner.Market(ctx, order.Spec{Symbol: symbol, Side: side, Quantity: qty, ReduceOnly: *reduceOnly})
	if err != nil {
		return err
	}
	return printJSON(o)
}

func runLimit(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("limit", flag.ContinueOnError)
	tif := fs.String("tif", string(order.GTC), "Time in force: GTC, IOC or FOK")
	pos, err := parse(fs, args, 4)
	if err != nil {
		return err
	}
	symbol, side, qtyArg, err := orderArgs(pos)
	if err != nil {
		return err
	}
	qty, err := validate.PositiveNumber("quantity", qtyArg)
	if err != nil {
		return err
	}
	price, err := validate.PositiveNumber("price", pos[3])
	if err != nil {
		return err
	}

	o, err := a.runner.Limit(ctx, order.Spec{
		Symbol:      symbol,
		Side:        side,
		Quantity:    qty,
		Price:       price,
		TimeInForce: order.TimeInForce(*tif),
	})
	if err != nil {
		return err
	}
	return printJSON(o)
}

func runOCO(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("oco", flag.ContinueOnError)
	tpArg := fs.String("tp", "", "Take-profit price")
	slArg := fs.String("sl", "", "Stop-loss trigger price")
	openType := fs.String("open-type", string(order.Market), "Parent order type: MARKET or LIMIT")
	openPrice := fs.String("open-price", "", "Parent limit price")
	pollInterval := fs.Duration("poll", a.cfg.PollInterval, "Child status poll interval")
	timeout := fs.Duration("timeout", 0, "Stop polling after this long (0 polls until resolved)")
	pos, err := parse(fs, args, 3)
	if err != nil {
		return err
	}
	symbol, side, qtyArg, err := orderArgs(pos)
	if err != nil {
		return err
	}
	qty, err := validate.PositiveNumber("quantity", qtyArg)
	if err != nil {
		return err
	}
	tp, err := validate.PositiveNumber("tp", *tpArg)
	if err != nil {
		return err
	}
	sl, err := validate.PositiveNumber("sl", *slArg)
	if err != nil {
		return err
	}
	p := strategy.OCOParams{
		Symbol:     symbol,
		Side:       side,
		Quantity:   qty,
		TakeProfit: tp,
		StopLoss:   sl,
		OpenType:   order.Type(strings.ToUpper(*openType)),
		Poll:       pair.Options{PollInterval: *pollInterval, Timeout: *timeout},
	}
	if *openPrice != "" {
		if p.OpenPrice, err = validate.PositiveNumber("open-price", *openPrice); err != nil {
			return err
		}
	}

	res, err := a.runner.OCO(ctx, p)
	if res != nil {
		if perr := printJSON(res); perr != nil {
			a.logger.Warn("print_failed", zap.Error(perr))
		}
	}
	return err
}

func runTWAP(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("twap", flag.ContinueOnError)
	slices := fs.Int("slices", 5, "Number of market order slices")
	duration := fs.Duration("duration", 300*time.Second, "Total execution window")
	pos, err := parse(fs, args, 3)
	if err != nil {
		return err
	}
	symbol, side, qtyArg, err := orderArgs(pos)
	if err != nil {
		return err
	}
	qty, err := validate.PositiveNumber("quantity", qtyArg)
	if err != nil {
		return err
	}

	results, err := a.runner.TWAP(ctx, strategy.TWAPParams{
		Symbol:   symbol,
		Side:     side,
		Quantity: qty,
		Slices:   *slices,
		Duration: *duration,
	})
	if len(results) > 0 {
		if perr := printJSON(results); perr != nil {
			a.logger.Warn("print_failed", zap.Error(perr))
		}
	}
	return err
}

func runGrid(ctx context.Context, a *app, args []string) error {
	pos, err := parse(flag.NewFlagSet("grid", flag.ContinueOnError), args, 5)
	if err != nil {
		return err
	}
	low, err := validate.PositiveNumber("low", pos[1])
	if err != nil {
		return err
	}
	high, err := validate.PositiveNumber("high", pos[2])
	if err != nil {
		return err
	}
	steps, err := validate.PositiveInt("steps", pos[3])
	if err != nil {
		return err
	}
	qty, err := validate.PositiveNumber("quantity", pos[4])
	if err != nil {
		return err
	}

	levels, err := a.runner.Grid(ctx, strategy.GridParams{Symbol: pos[0], Low: low, High: high, Steps: steps, Quantity: qty})
	if len(levels) > 0 {
		if perr := printJSON(levels); perr != nil {
			a.logger.Warn("print_failed", zap.Error(perr))
		}
	}
	return err
}

func runPairs(ctx context.Context, a *app, args []string) error {
	if _, err := parse(flag.NewFlagSet("pairs", flag.ContinueOnError), args, 0); err != nil {
		return err
	}
	pending, err := a.runner.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("no unresolved pairs")
		return nil
	}
	for _, p := range pending {
		fmt.Printf("%s  %s  %s  tp=%s(%s)  sl=%s(%s)  created=%s\n",
			p.ID, p.Symbol, p.Resolution,
			p.TakeProfit.ID, p.TakeProfit.Status, p.StopLoss.ID, p.StopLoss.Status,
			p.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func runResume(ctx context.Context, a *app, args []string) error {
	fs := flag.NewFlagSet("resume", flag.ContinueOnError)
	pollInterval := fs.Duration("poll", a.cfg.PollInterval, "Child status poll interval")
	timeout := fs.Duration("timeout", 0, "Stop polling after this long (0 polls until resolved)")
	pos, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	op, err := a.runner.Resume(ctx, pos[0], pair.Options{PollInterval: *pollInterval, Timeout: *timeout})
	if op != nil {
		if perr := printJSON(op); perr != nil {
			a.logger.Warn("print_failed", zap.Error(perr))
		}
	}
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runMigrations creates the database if it doesn't exist and runs the schema.sql script
func runMigrations(ctx context.Context, connStr string) error {
	if connStr == "" {
		return errors.New("migrations need -db or DB_CONN_STR")
	}
	log.Println("Running database migrations...")

	u, err := url.Parse(connStr)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}

	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return fmt.Errorf("database name not found in connection string")
	}

	// Connect to the maintenance database to create ours
	base := *u
	base.Path = "/postgres"
	baseDB, err := sql.Open("postgres", base.String())
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer baseDB.Close()

	var exists bool
	err = baseDB.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}

	if !exists {
		log.Printf("Creating database %s...", dbName)
		_, err = baseDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName)))
		if err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}
	}

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	schemaPath, err := conf.FindSchema()
	if err != nil {
		return err
	}
	schemaSQL, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if err := conf.ApplySchema(ctx, conn, string(schemaSQL)); err != nil {
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}
