package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/resale-backend/pkg/config"
	"github.com/angelmondragon/resale-backend/pkg/db"
	"github.com/angelmondragon/resale-backend/pkg/logger"
	"github.com/angelmondragon/resale-backend/pkg/migrate"
)

const usage = `usage: migrate [-dir path] <command> [arg]

commands:
  up               apply pending migrations
  down             roll back the latest migration
  to <version>     migrate up or down to version (YYYYMMDDHHMMSS)
  status           list migrations and whether they are applied
  new <name>       write an empty migration into -dir
  validate         check migration files without a database
`

func main() {
	dir := flag.String("dir", "", "read migrations from this directory instead of the embedded set")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	command, arg := flag.Arg(0), flag.Arg(1)
	if command == "" {
		flag.Usage()
		os.Exit(2)
	}

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := logg.WithField(context.Background(), "cmd", command)

	source := migrate.Embedded()
	if *dir != "" {
		source = os.DirFS(*dir)
	}

	// commands that never touch the database
	switch command {
	case "new":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.NewFile(target, arg, time.Now())
		exitOn(ctx, logg, "create migration", err)
		fmt.Println(path)
		return
	case "validate":
		exitOn(ctx, logg, "validate migrations", migrate.Validate(source))
		fmt.Println("migrations valid")
		return
	}

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}
	cfg, err := config.Load()
	exitOn(ctx, logg, "load config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx = logg.WithFields(context.Background(), map[string]any{"cmd": command, "env": cfg.App.Env})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	exitOn(ctx, logg, "connect database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	exitOn(ctx, logg, "extract sql.DB", err)

	runner, err := migrate.NewRunner(sqlDB, source, logg)
	exitOn(ctx, logg, "build migration runner", err)

	if err := run(ctx, runner, command, arg, source); err != nil {
		logg.Error(ctx, "migration command failed", err)
		dbClient.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, runner *migrate.Runner, command, arg string, source fs.FS) error {
	switch command {
	case "up":
		if err := migrate.Validate(source); err != nil {
			return err
		}
		applied, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s)\n", applied)
		return nil
	case "down":
		return runner.Down(ctx)
	case "to":
		version, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", arg, err)
		}
		return runner.To(ctx, version)
	case "status":
		rows, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(rows)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func printStatus(rows []migrate.Status) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED AT\tFILE")
	for _, row := range rows {
		applied := "pending"
		if row.Applied {
			applied = row.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", row.Version, applied, row.File)
	}
	return w.Flush()
}

func exitOn(ctx context.Context, logg *logger.Logger, step string, err error) {
	if err == nil {
		return
	}
	logg.Error(logg.WithField(ctx, "step", step), "migrate aborted", err)
	os.Exit(1)
}
