package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/kumarlokesh/autocomplete/internal/app"
	"github.com/kumarlokesh/autocomplete/internal/config"
	"github.com/kumarlokesh/autocomplete/internal/logger"
	"github.com/kumarlokesh/autocomplete/internal/service"
	"github.com/kumarlokesh/autocomplete/internal/wordlist"
)

const version = "0.1.0"

// interactiveLimit caps the candidates fetched per Tab press.
const interactiveLimit = 100

func main() {
	configPath := flag.String("config", "", "Path to config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	help := flag.Bool("help", false, "Show help message")
	showVer := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *help {
		showHelp()
		os.Exit(0)
	}
	if *showVer {
		showVersion()
		os.Exit(0)
	}
	if flag.NArg() == 0 {
		showHelp()
		os.Exit(1)
	}

	args := flag.Args()
	if err := run(*configPath, *debug, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "autocomplete: %v\n", err)
		os.Exit(1)
	}
}

func showHelp() {
	helpText := `Autocomplete CLI

Usage:
  autocomplete [flags] <command> [arguments]

Flags:
  --config string   Path to config file
  --debug           Enable debug logging
  --help            Show this help message
  --version         Show version information

Commands:
  config                          Show current configuration
  add <word>...                   Add words
  delete <word>...                Delete words
  import [-kind k] <file>...      Add every word found in text, markdown or html files
  query <prefix> [limit]          Print completions for a prefix
  compact                         Rewrite the wal store to its live words
  interactive                     Complete words as you type (Tab to complete)
`
	fmt.Print(helpText)
}

func showVersion() {
	fmt.Printf("autocomplete v%s\n", version)
}

func run(configPath string, debug bool, command string, args []string) error {
	if configPath == "" {
		if p, err := config.GetConfigPath(); err == nil {
			configPath = p
		}
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if command == "config" {
		printConfig(os.Stdout, cfg, configPath)
		return nil
	}

	// Keep the terminal quiet unless asked otherwise
	level := "warn"
	if debug {
		level = "debug"
	}
	lg, err := logger.New(logger.Options{Level: level, Pretty: true})
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer a.Close()

	switch command {
	case "add":
		return handleAddCommand(ctx, a.Service, args)
	case "delete":
		return handleDeleteCommand(ctx, a.Service, args)
	case "import":
		return handleImportCommand(ctx, a.Service, args, lg)
	case "query":
		return handleQueryCommand(a.Service, args)
	case "compact":
		if err := a.Compact(ctx); err != nil {
			return err
		}
		fmt.Printf("Compacted store to %d words\n", a.Service.Stats().Words)
		return nil
	case "interactive":
		return handleInteractiveCommand(a.Service)
	default:
		showHelp()
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printConfig(out io.Writer, cfg *config.Config, path string) {
	if path == "" {
		path = "(defaults)"
	}
	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintf(out, "Config file: %s\n", path)
	fmt.Fprintf(out, "Server: %s\n", cfg.Server.Addr())
	fmt.Fprintf(out, "CORS origins: %s\n", strings.Join(cfg.Server.CORSOrigins, ", "))
	fmt.Fprintf(out, "Store: %s\n", cfg.Store.Type)
	switch cfg.Store.Type {
	case "wal":
		fmt.Fprintf(out, "WAL dir: %s (sync=%t, segment=%d bytes)\n", cfg.Store.WAL.Dir, cfg.Store.WAL.Sync, cfg.Store.WAL.SegmentSize)
	case "mongo":
		if cfg.Store.Mongo.URI != "" {
			fmt.Fprintln(out, "Mongo URI: [set]")
		} else {
			fmt.Fprintln(out, "Mongo URI: [not set]")
		}
		fmt.Fprintf(out, "Mongo collection: %s.%s\n", cfg.Store.Mongo.Database, cfg.Store.Mongo.Collection)
	}
	fmt.Fprintf(out, "Max word length: %d\n", cfg.Index.MaxWordLength)
	fmt.Fprintf(out, "Normalization: %s\n", cfg.Index.Normalization)
	fmt.Fprintf(out, "Search limits: default=%d max=%d cache=%d\n", cfg.Search.DefaultLimit, cfg.Search.MaxLimit, cfg.Search.CacheSize)
	fmt.Fprintf(out, "Log level: %s\n", cfg.Log.Level)
}

func handleAddCommand(ctx context.Context, svc *service.Service, args []string) error {
	if len(args) == 0 {
		return errors.New("please provide at least one word to add")
	}
	for _, w := range args {
		if err := svc.AddWord(ctx, w); err != nil {
			return fmt.Errorf("%q: %w", w, err)
		}
	}
	fmt.Printf("Added %d word(s)\n", len(args))
	return nil
}

func handleDeleteCommand(ctx context.Context, svc *service.Service, args []string) error {
	if len(args) == 0 {
		return errors.New("please provide at least one word to delete")
	}
	for _, w := range args {
		if err := svc.DeleteWord(ctx, w); err != nil {
			return fmt.Errorf("%q: %w", w, err)
		}
	}
	fmt.Printf("Deleted %d word(s)\n", len(args))
	return nil
}

func handleImportCommand(ctx context.Context, svc *service.Service, args []string, lg zerolog.Logger) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	kindFlag := fs.String("kind", "", "Document kind: text, markdown or html (default: from file extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("please provide at least one file to import")
	}

	var kind wordlist.Kind
	if *kindFlag != "" {
		k, err := wordlist.ParseKind(*kindFlag)
		if err != nil {
			return err
		}
		kind = k
	}

	before := svc.Stats().Words
	skipped := 0
	for _, path := range fs.Args() {
		words, err := extractFile(path, kind)
		if err != nil {
			return err
		}
		for _, w := range words {
			err := svc.AddWord(ctx, w)
			if errors.Is(err, service.ErrInvalidWord) {
				skipped++
				lg.Debug().Err(err).Str("file", path).Msg("Skipping word")
				continue
			}
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		lg.Info().Str("file", path).Int("words", len(words)).Msg("Imported file")
	}

	fmt.Printf("Imported %d new word(s), skipped %d\n", svc.Stats().Words-before, skipped)
	return nil
}

func extractFile(path string, kind wordlist.Kind) ([]string, error) {
	if kind == "" {
		return wordlist.Extract(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return wordlist.ExtractReader(f, kind)
}

func handleQueryCommand(svc *service.Service, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errors.New("usage: query <prefix> [limit]")
	}

	limit := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return fmt.Errorf("invalid limit: %q", args[1])
		}
		limit = n
	}

	words, err := svc.Search(args[0], limit)
	if err != nil {
		return err
	}
	for _, w := range words {
		fmt.Println(w)
	}
	return nil
}

func handleInteractiveCommand(svc *service.Service) error {
	complete := func(prefix string) ([]string, error) {
		return svc.Search(prefix, interactiveLimit)
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return completeLines(os.Stdin, os.Stdout, complete)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to set raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	fmt.Print("Type a prefix and press Tab to complete, Enter to list matches, Ctrl+D to quit.\r\n")
	editor := newLineEditor(os.Stdin, os.Stdout, "> ", complete)
	for {
		line, err := editor.ReadLine()
		if errors.Is(err, io.EOF) || errors.Is(err, errInterrupted) {
			return nil
		}
		if err != nil {
			return err
		}

		prefix := strings.TrimSpace(line)
		words, err := complete(prefix)
		if err != nil {
			fmt.Printf("error: %v\r\n", err)
			continue
		}
		printCompletions(os.Stdout, prefix, words, "\r\n")
	}
}

// completeLines answers one prefix per input line when stdin is not a terminal.
func completeLines(in io.Reader, out io.Writer, complete completeFunc) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		prefix := strings.TrimSpace(scanner.Text())
		words, err := complete(prefix)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printCompletions(out, prefix, words, "\n")
	}
	return scanner.Err()
}
