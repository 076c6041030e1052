package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/etnz/taxlot/api"
	"github.com/etnz/taxlot/reportcache"
	"github.com/etnz/taxlot/store"
	"github.com/google/subcommands"
	"golang.org/x/time/rate"
)

type serveCmd struct {
	addr     string
	rps      float64
	burst    int
	cacheTTL time.Duration
	withDB   bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve tax reports over HTTP" }
func (*serveCmd) Usage() string {
	return `tlx serve [-addr <addr>] [-rps <n>] [-burst <n>] [-cache <ttl>] [-db]

  Serves the HTTP API:

    GET  /healthz
    POST /api/report                {"transactions": [...], "method": "fifo", "year": 2024}
    POST /api/replay                {"transactions": [...], "method": "fifo"}
    GET  /api/ledger/report/{year}  with -db, on the transactions of the database
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", ":8080", "Address to listen on")
	f.Float64Var(&c.rps, "rps", 0, "Requests per second allowed, unlimited when 0")
	f.IntVar(&c.burst, "burst", 20, "Requests allowed in a burst")
	f.DurationVar(&c.cacheTTL, "cache", reportcache.DefaultExpiration, "How long computed books are cached")
	f.BoolVar(&c.withDB, "db", false, "Serve reports on the transactions of the database")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	var s *store.Store
	if c.withDB {
		var err error
		if s, err = store.Open(ctx, DBPath()); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		defer s.Close()
	}
	var limiter *rate.Limiter
	if c.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.rps), c.burst)
	}

	server := api.NewServer(reportcache.New(c.cacheTTL, reportcache.CleanupInterval), s, limiter)
	httpServer := &http.Server{
		Addr:              c.addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", c.addr)
		errc <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	case <-ctx.Done():
	}

	shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdown); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
