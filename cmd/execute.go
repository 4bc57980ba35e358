// Package cmd contains the CLI entry points. Following the pattern used
// by kubectl, hugo, and other standard Go CLI tools, all application
// logic lives here and main.go stays a minimal entry point.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bedtimenews/newsagent/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point for the newsagent CLI.
func Execute() error {
	if len(os.Args) < 2 {
		printHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "index":
		return runIndex()
	case "ask":
		return runAsk(os.Args[2:])
	case "version", "--version", "-v":
		return printVersionInfo()
	case "help", "--help", "-h":
		printHelp()
		return nil
	default:
		printHelp()
		return fmt.Errorf("unknown command %q", os.Args[1])
	}
}

// initLogger builds the process logger. DEBUG in the environment lowers
// the level to debug.
func initLogger() log.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}

	logger := log.New(log.Config{Level: level, JSON: os.Getenv("LOG_FORMAT") == "json"})
	slog.SetDefault(logger)
	return logger
}

func printVersionInfo() error {
	fmt.Printf("newsagent v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

func printHelp() {
	fmt.Println("newsagent - Retrieval QA service over the BedtimeNews archive")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  newsagent serve             Start the HTTP API server")
	fmt.Println("  newsagent index             Run one incremental indexing pass")
	fmt.Println("  newsagent ask <question>    Answer one question on the command line")
	fmt.Println("  newsagent version           Show version information")
	fmt.Println("  newsagent help              Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  OPENAI_API_KEY     Required: OpenAI API key")
	fmt.Println("  DATABASE_URL       Optional: PostgreSQL connection URL override")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
	fmt.Println("  LOG_FORMAT         Optional: Set to 'json' for JSON logs")
}
