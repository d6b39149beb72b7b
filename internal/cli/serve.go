package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/explode/internal/server"
	"github.com/matzehuels/explode/pkg/events"
	"github.com/matzehuels/explode/pkg/events/mongosink"
	"github.com/matzehuels/explode/pkg/scheduler"
)

// serveCommand creates the serve command, which exposes a scheduler over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags runFlags
		addr  string
	)

	cmd := &cobra.Command{
		Use:   "serve [assembly-file]",
		Short: "Serve an HTTP API that drives the scheduler",
		Long: `Load an assembly and serve a JSON API that accepts explode and implode
requests while a background loop ticks the scheduler in real time.

When [events] mongo_uri is configured every scheduler event is archived in
MongoDB and served from there; otherwise events are kept in memory.`,
		Example: `  explode serve gearbox.toml --addr :8080
  curl -X POST localhost:8080/v1/explode -d '{"targets":["gear-a"]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			res, err := c.loadAssembly(args[0])
			if err != nil {
				return err
			}
			sc, po, err := flags.apply(c)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = c.Config.Server.Addr
			}

			g, gctx := errgroup.WithContext(ctx)

			var (
				sink    scheduler.EventSink
				history server.History
			)
			if uri := c.Config.Events.MongoURI; uri != "" {
				archive, err := mongosink.New(ctx, mongosink.Config{
					URI:        uri,
					Database:   c.Config.Events.Database,
					Collection: c.Config.Events.Collection,
					Logger:     c.Logger,
				})
				if err != nil {
					return err
				}
				defer func() {
					closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := archive.Close(closeCtx); err != nil {
						c.Logger.Warn("closing event archive", "err", err)
					}
				}()
				g.Go(func() error { return archive.Run(gctx) })
				sink, history = archive, archive
			} else {
				rec := &events.Recorder{Limit: c.Config.Events.historyLimit()}
				sink, history = rec, rec
			}

			sched, err := scheduler.New(res.Tree, nil, events.Multi(sink, events.LogSink{Logger: c.Logger}), sc)
			if err != nil {
				return err
			}
			srv := server.New(sched, server.Options{
				Addr:     addr,
				Playback: po,
				History:  history,
				Logger:   c.Logger,
			})
			g.Go(func() error { return srv.Run(gctx) })

			printInfo("Serving %s", args[0])
			return g.Wait()
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, else :8080)")
	return cmd
}
