// main.go - Command-line analysis tool for cohortly
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"cohortly/internal/config"
	"cohortly/internal/logging"
)

// Env carries what commands need from the process.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	Stdout io.Writer
	// Pretty indents JSON output; set when stdout is a terminal.
	Pretty bool
}

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given environment and args
	Execute(ctx context.Context, env *Env, args []string) error
}

// The set of available commands
var commands = []Command{
	&AnalyzeCommand{},
	&DetectCommand{},
	&QualityCommand{},
	&SeedCommand{},
	&HelpCommand{},
}

func main() {
	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, stopping...", sig)
		cancel()
	}()

	cmdName, args := parseArgs(os.Args[1:])
	cmd := findCommand(cmdName)
	if cmd == nil {
		showUsage(os.Stderr)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	// Keep stdout clean for command output.
	logger, closer := logging.NewLogger(cfg, os.Stderr)
	defer closer.Close()

	env := &Env{
		Config: cfg,
		Logger: logger,
		Stdout: os.Stdout,
		Pretty: term.IsTerminal(int(os.Stdout.Fd())),
	}

	if err := cmd.Execute(ctx, env, args); err != nil {
		closer.Close()
		log.Fatalf("Command %s failed: %v", cmd.Name(), err)
	}
}

// parseArgs parses the command name and arguments
func parseArgs(args []string) (string, []string) {
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func showUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: cohortctl [command] [args...]")
	fmt.Fprintln(w, "Available commands:")

	for _, cmd := range commands {
		fmt.Fprintf(w, "  %s: %s\n", cmd.Name(), cmd.Description())
	}
}
