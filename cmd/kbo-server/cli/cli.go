package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"kbodata/internal/server/config"
	"kbodata/internal/server/service"
	"kbodata/internal/server/storage"

	"github.com/chzyer/readline"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/lixenwraith/auth"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const minAdminKeyLength = 12

// stdout receives all command output
var stdout io.Writer = os.Stdout

// dbCommands take the shared database flags
var dbCommands = map[string]bool{
	"init":     true,
	"delete":   true,
	"schedule": true,
	"matches":  true,
	"counts":   true,
}

// Run is the entry point for the CLI mini-app
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, schedule, matches, counts, admin-key, shell")
	}

	if err := config.LoadEnv(); err != nil {
		return err
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "schedule":
		return runSchedule(args[1:])
	case "matches":
		return runMatches(args[1:])
	case "counts":
		return runCounts(args[1:])
	case "admin-key":
		return runAdminKey(args[1:])
	case "shell":
		return runShell(args[1:])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

// dbFlagSet returns a flag set carrying the database flags
func dbFlagSet(name string) (*flag.FlagSet, *config.DBConfig) {
	var db config.DBConfig
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stdout)
	config.RegisterDBFlags(fs, &db)
	return fs, &db
}

func openStore(db *config.DBConfig) (*storage.Store, error) {
	if err := db.Validate(); err != nil {
		return nil, err
	}
	store, err := storage.NewStore(*db, false, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func location(db *config.DBConfig) string {
	if db.Driver == config.DriverPostgres {
		return fmt.Sprintf("%s@%s:%d/%s", db.User, db.Host, db.Port, db.Name)
	}
	return db.Path
}

func runInit(args []string) error {
	fs, db := dbFlagSet("init")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(db)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Fprintf(stdout, "Database initialized at: %s\n", location(db))
	return nil
}

func runDelete(args []string) error {
	fs, db := dbFlagSet("delete")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(db)
	if err != nil {
		return err
	}

	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Fprintf(stdout, "Database deleted: %s\n", location(db))
	return nil
}

func runSchedule(args []string) error {
	fs, db := dbFlagSet("schedule")
	year := fs.Int("year", 0, "Season year (required)")
	date := fs.String("date", "", "Date prefix filter, YYYY-MM or YYYY-MM-DD (optional)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *year == 0 && *date == "" {
		return fmt.Errorf("-year or -date required")
	}

	store, err := openStore(db)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var rows []storage.ScheduleRecord
	if *date != "" {
		rows, err = store.ScheduleByDate(ctx, *date)
	} else {
		rows, err = store.ScheduleByYear(ctx, *year)
	}
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(rows) == 0 {
		fmt.Fprintln(stdout, "No schedule found")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "Date", "Away", "Home", "Status", "DH", "Game ID"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.ID, r.MatchDate, r.Away, r.Home, r.MatchStatus, r.DBHeader, r.GameID})
	}
	t.Render()

	fmt.Fprintf(stdout, "\nFound %d game(s)\n", len(rows))
	return nil
}

func runMatches(args []string) error {
	fs, db := dbFlagSet("matches")
	date := fs.String("date", "", "Date prefix, YYYY, YYYY-MM or YYYY-MM-DD (required)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *date == "" {
		return fmt.Errorf("-date required")
	}

	store, err := openStore(db)
	if err != nil {
		return err
	}
	defer store.Close()

	// Read-only: no scraper, no cache
	svc := service.New(store, nil, nil, service.Options{}, zap.NewNop())
	matches, err := svc.MatchesByDate(context.Background(), *date)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if len(matches) == 0 {
		fmt.Fprintln(stdout, "No matches found")
		return nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Match", "Date", "Day", "Winner", "Score", "Loser", "Venue"})
	for _, m := range matches {
		t.AppendRow(table.Row{
			m.MatchCode,
			m.MatchDate,
			m.MatchDay,
			m.Team1.Team,
			fmt.Sprintf("%s : %s", score(m.Team1.Run), score(m.Team2.Run)),
			m.Team2.Team,
			m.Place,
		})
	}
	t.Render()

	fmt.Fprintf(stdout, "\nFound %d match(es)\n", len(matches))
	return nil
}

func score(r *int64) string {
	if r == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *r)
}

func runCounts(args []string) error {
	fs, db := dbFlagSet("counts")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(db)
	if err != nil {
		return err
	}
	defer store.Close()

	counts, err := store.Counts(context.Background())
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	t := newTable()
	t.AppendHeader(table.Row{"Table", "Rows"})
	for _, name := range names {
		t.AppendRow(table.Row{name, counts[name]})
	}
	t.Render()
	return nil
}

// runAdminKey prints the Argon2 hash to configure as ADMIN_KEY_HASH
func runAdminKey(args []string) error {
	fs := flag.NewFlagSet("admin-key", flag.ContinueOnError)
	fs.SetOutput(stdout)
	key := fs.String("key", "", "Admin key to hash")
	interactive := fs.Bool("interactive", false, "Interactive key prompt")
	verify := fs.String("verify", "", "Existing hash to check the key against instead of hashing")

	if err := fs.Parse(args); err != nil {
		return err
	}

	var plain string
	if *interactive {
		if *key != "" {
			return fmt.Errorf("cannot use -interactive with -key")
		}
		fmt.Fprint(stdout, "Enter admin key: ")
		keyBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(stdout)
		if err != nil {
			return fmt.Errorf("failed to read key: %w", err)
		}
		plain = string(keyBytes)
	} else if *key != "" {
		plain = *key
	} else {
		return fmt.Errorf("key required: use -key or -interactive")
	}

	if *verify != "" {
		if err := auth.ValidatePHCHashFormat(*verify); err != nil {
			return fmt.Errorf("invalid hash format: %w", err)
		}
		if err := auth.VerifyPassword(plain, *verify); err != nil {
			return fmt.Errorf("key does not match hash")
		}
		fmt.Fprintln(stdout, "Key matches hash")
		return nil
	}

	if len(plain) < minAdminKeyLength {
		return fmt.Errorf("admin key must be at least %d characters", minAdminKeyLength)
	}

	hash, err := auth.HashPassword(plain)
	if err != nil {
		return fmt.Errorf("failed to hash key: %w", err)
	}

	fmt.Fprintln(stdout, hash)
	return nil
}

// runShell is a REPL dispatching the other subcommands with the shell's database flags
func runShell(args []string) error {
	fs, _ := dbFlagSet("shell")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dbArgs := args[:len(args)-fs.NArg()]

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "kbo> ",
		HistoryFile:     ".kbo_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(stdout, "KBO data shell. Type 'help' for commands, 'exit' to quit.")

	for {
		line, err := rl.Readline()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return err
		}

		if done := dispatch(line, dbArgs); done {
			return nil
		}
	}
}

// dispatch runs one shell line, reporting whether the shell should exit
func dispatch(line string, dbArgs []string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}

	switch fields[0] {
	case "exit", "quit", "x":
		return true
	case "help":
		fmt.Fprintln(stdout, "Commands: init, delete, schedule -year Y | -date D, matches -date D, counts, admin-key -key K, exit")
		return false
	case "shell":
		fmt.Fprintln(stdout, "Already in shell")
		return false
	}

	cmdArgs := []string{fields[0]}
	if dbCommands[fields[0]] {
		cmdArgs = append(cmdArgs, dbArgs...)
	}
	cmdArgs = append(cmdArgs, fields[1:]...)

	if err := Run(cmdArgs); err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
	}
	return false
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleRounded)
	return t
}
