package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"outreach_sequence_generator/config"
	"outreach_sequence_generator/logging"
)

var version = "dev"

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Path to config.json. Defaults plus OUTREACH_* environment variables are used when empty." type:"path"`
	LogLevel string `help:"Override the configured log level (debug, info, warn, error)." name:"log-level"`

	Generate GenerateCmd `cmd:"" help:"Generate an outreach sequence from a YAML request file."`
	Serve    ServeCmd    `cmd:"" help:"Start the HTTP API."`
	Mcp      McpCmd      `cmd:"" help:"Serve the MCP tools over stdio."`
}

// appContext is handed to every command's Run method.
type appContext struct {
	cfg    config.Config
	logger *log.Logger
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("outreach"),
		kong.Description("Personalized multi-channel outreach sequence generator"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Vars{"version": version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}
	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	err = ctx.Run(&appContext{cfg: cfg, logger: logger})
	_ = closer.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
