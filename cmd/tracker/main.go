package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bimakw/lighter-tracker/internal/application/services"
	"github.com/bimakw/lighter-tracker/internal/config"
	"github.com/bimakw/lighter-tracker/internal/domain/entities"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/lighter"
	"github.com/bimakw/lighter-tracker/internal/infrastructure/storage"
	"github.com/bimakw/lighter-tracker/internal/presentation/render"
	"github.com/bimakw/lighter-tracker/internal/presentation/terminal"
)

var (
	logLevel   string
	jsonOutput bool
)

func main() {
	_ = godotenv.Load()

	app := cli.NewApp()
	app.Name = "tracker"
	app.Usage = "check Lighter accounts and keep their balance history"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Value:       "warn",
			Usage:       "log level written to stderr",
			Destination: &logLevel,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print JSON instead of tables",
			Destination: &jsonOutput,
		},
	}
	app.Commands = []*cli.Command{
		checkCommand,
		historyCommand,
		listCommand,
		clearCommand,
		exportCommand,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var checkCommand = &cli.Command{
	Name:      "check",
	Usage:     "fetch accounts, record a snapshot and print the dashboard",
	ArgsUsage: "[address...]",
	Description: "Addresses come from the arguments, or one per line from stdin " +
		"when no argument is given.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "view",
			Value: string(entities.ViewTable),
			Usage: "table or card",
		},
	},
	Action: func(c *cli.Context) error {
		view, err := entities.ParseViewMode(c.String("view"))
		if err != nil {
			return err
		}

		addresses, err := argsOrStdin(c)
		if err != nil {
			return err
		}

		env, err := setup(c.Context)
		if err != nil {
			return err
		}
		defer env.close()

		session := services.NewSession("cli")
		session.SetView(view)

		result, err := env.tracker.Check(c.Context, session, addresses)
		if err != nil {
			return describe(err, env.tracker.MaxAddresses())
		}

		dashboard := render.BuildDashboard(result.State, result.History, render.Options{
			Location:   env.location,
			HistoryKey: result.HistoryKey,
		})
		if jsonOutput {
			return printJSON(c.App.Writer, dashboard)
		}
		terminal.Dashboard(c.App.Writer, dashboard)
		return nil
	},
}

var historyCommand = &cli.Command{
	Name:      "history",
	Usage:     "print the stored history of an address set",
	ArgsUsage: "address...",
	Action: func(c *cli.Context) error {
		addresses, err := argsOrStdin(c)
		if err != nil {
			return err
		}

		env, err := setup(c.Context)
		if err != nil {
			return err
		}
		defer env.close()

		key, history := env.tracker.History(c.Context, addresses)
		if jsonOutput {
			return printJSON(c.App.Writer, map[string]any{"key": key, "snapshots": history})
		}
		terminal.Snapshots(c.App.Writer, key, history, env.location)
		return nil
	},
}

var listCommand = &cli.Command{
	Name:  "list",
	Usage: "list every stored history",
	Action: func(c *cli.Context) error {
		env, err := setup(c.Context)
		if err != nil {
			return err
		}
		defer env.close()

		summaries, err := env.tracker.Histories(c.Context)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(c.App.Writer, summaries)
		}
		terminal.Histories(c.App.Writer, summaries, env.location)
		return nil
	},
}

var clearCommand = &cli.Command{
	Name:      "clear",
	Usage:     "delete the stored history of an address set",
	ArgsUsage: "address...",
	Action: func(c *cli.Context) error {
		addresses, err := argsOrStdin(c)
		if err != nil {
			return err
		}

		env, err := setup(c.Context)
		if err != nil {
			return err
		}
		defer env.close()

		if err := env.tracker.ClearHistory(c.Context, addresses); err != nil {
			return describe(err, env.tracker.MaxAddresses())
		}
		fmt.Fprintln(c.App.Writer, "히스토리가 삭제되었습니다.")
		return nil
	},
}

var exportCommand = &cli.Command{
	Name:      "export",
	Usage:     "write the stored history of an address set as CSV",
	ArgsUsage: "address...",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "out",
			Usage: "output file, - for stdout (default: lighter-balance-history-<date>.csv)",
		},
	},
	Action: func(c *cli.Context) error {
		addresses, err := argsOrStdin(c)
		if err != nil {
			return err
		}

		env, err := setup(c.Context)
		if err != nil {
			return err
		}
		defer env.close()

		_, history := env.tracker.History(c.Context, addresses)
		if len(history) == 0 {
			return describe(services.ErrNoHistory, 0)
		}

		out := c.String("out")
		if out == "" {
			out = services.ExportFilename(time.Now())
		}
		if out == "-" {
			return services.ExportHistoryCSV(c.App.Writer, history, env.location)
		}

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		if err := services.ExportHistoryCSV(f, history, env.location); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "%d개의 기록을 %s에 저장했습니다.\n", len(history), out)
		return nil
	},
}

// env is the wiring shared by every command
type env struct {
	tracker  *services.TrackerService
	location *time.Location
	logger   *zap.Logger
	close    func()
}

func setup(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(logLevel)

	backend, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	history := services.NewHistoryService(backend.Store, services.HistoryOptions{
		KeyPrefix:    cfg.History.KeyPrefix,
		MaxSnapshots: cfg.History.MaxSnapshots,
	}, nil, logger)
	client := lighter.NewClient(cfg.Upstream, logger)

	return &env{
		tracker:  services.NewTrackerService(client, history, cfg.History.MaxAddresses, nil, logger),
		location: cfg.History.Location(),
		logger:   logger,
		close: func() {
			if err := backend.Close(); err != nil {
				logger.Warn("Failed to close history store", zap.Error(err))
			}
			_ = logger.Sync()
		},
	}, nil
}

// argsOrStdin takes addresses from the arguments, or reads stdin when
// there are none.
func argsOrStdin(c *cli.Context) ([]string, error) {
	if c.NArg() > 0 {
		return services.ParseAddressInput(strings.Join(c.Args().Slice(), "\n")), nil
	}

	stat, err := os.Stdin.Stat()
	if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
		return nil, describe(services.ErrNoAddresses, 0)
	}
	return readAddresses(os.Stdin)
}

func readAddresses(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read addresses: %w", err)
	}
	return services.ParseAddressInput(strings.Join(lines, "\n")), nil
}

// describe turns tracker errors into the messages the dashboard shows
func describe(err error, limit int) error {
	switch {
	case errors.Is(err, services.ErrNoAddresses):
		return cli.Exit("주소를 입력해주세요.", 2)
	case errors.Is(err, services.ErrTooManyAddresses):
		return cli.Exit(fmt.Sprintf("최대 %d개의 주소만 조회할 수 있습니다.", limit), 2)
	case errors.Is(err, services.ErrUpstream):
		return cli.Exit(fmt.Sprintf("데이터를 가져오는데 실패했습니다. (%v)", err), 1)
	case errors.Is(err, services.ErrNoHistory):
		return cli.Exit("내보낼 히스토리가 없습니다.", 1)
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.WarnLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}
