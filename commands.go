package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"outreach_sequence_generator/catalog"
	"outreach_sequence_generator/mcpserver"
	"outreach_sequence_generator/publisher"
	"outreach_sequence_generator/server"
)

// GenerateCmd builds one sequence from a request file and prints it as JSON.
type GenerateCmd struct {
	Request string `help:"YAML request file." type:"existingfile" required:""`
	Out     string `help:"Write the sequence JSON here instead of stdout." type:"path"`
	HTML    string `help:"Also render every item as email-safe HTML into this directory." name:"html" type:"path"`
	Publish bool   `help:"Post the finished sequence to the configured webhook."`
}

func (c *GenerateCmd) Run(app *appContext) error {
	rt, err := buildRuntime(app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	spec, err := catalog.LoadRequest(c.Request)
	if err != nil {
		return err
	}
	req, err := rt.catalog.Resolve(spec)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionID := uuid.NewString()
	app.logger.Info("generating sequence", "session", sessionID, "persona", req.PersonaID, "items", req.TotalItems())
	seq, err := rt.orch.Generate(ctx, sessionID, req)
	if err != nil {
		return err
	}
	if rt.history != nil {
		if err := rt.history.Save(ctx, seq); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return err
	}
	if c.Out != "" {
		if err := os.WriteFile(c.Out, data, 0o644); err != nil {
			return err
		}
		app.logger.Info("sequence written", "path", c.Out)
	} else {
		fmt.Println(string(data))
	}

	if c.HTML != "" {
		export, err := publisher.Render(seq)
		if err != nil {
			return err
		}
		paths, err := publisher.WriteHTML(c.HTML, export)
		if err != nil {
			return err
		}
		app.logger.Info("html rendered", "dir", c.HTML, "files", len(paths))
	}

	if c.Publish {
		if rt.publisher == nil {
			return errors.New("--publish needs publish.webhook_url in config")
		}
		remoteID, err := rt.publisher.Publish(ctx, seq)
		if err != nil {
			return err
		}
		app.logger.Info("publish done", "remote_id", remoteID)
	}

	for _, it := range seq.Items {
		if it.NeedsReview() {
			app.logger.Warn("item needs manual review", "day", it.DayOffset, "channel", it.Channel, "repair", it.Repair, "draft_failed", it.DraftFailed)
		}
	}
	return nil
}

// ServeCmd runs the HTTP API until interrupted.
type ServeCmd struct {
	Addr string `help:"HTTP listen address (overrides config server_addr)."`
}

func (c *ServeCmd) Run(app *appContext) error {
	rt, err := buildRuntime(app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	opts := server.Options{
		Orchestrator: rt.orch,
		Catalog:      rt.catalog,
		Progress:     rt.progress,
		Publisher:    rt.publisher,
		Logger:       app.logger,
	}
	if rt.history != nil {
		opts.Sequences = rt.history
	}
	srv, err := server.New(opts)
	if err != nil {
		return err
	}

	listen := app.cfg.ServerAddr
	if c.Addr != "" {
		listen = c.Addr
	}
	httpServer := &http.Server{
		Addr:              listen,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("starting web server", "addr", listen)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		app.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

// McpCmd serves the MCP tools on stdio. Logs go to stderr only.
type McpCmd struct{}

func (c *McpCmd) Run(app *appContext) error {
	rt, err := buildRuntime(app.cfg, app.logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	var store mcpserver.SequenceStore
	if rt.history != nil {
		store = rt.history
	}
	return mcpserver.ServeStdio(mcpserver.New(rt.orch, rt.catalog, store))
}
