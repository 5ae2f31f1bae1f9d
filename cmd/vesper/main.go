// Command vesper is the process entrypoint: it wires the registry, matching
// engine, settlement engine, audit sink, and coordinator together, then
// starts the trading wire server and the HTTP introspection server side by
// side. Grounded on _examples/original_source/src/main.cpp for the exact
// CLI contract (positional trading_port, http_port) and startup banner, and
// on _examples/saiputravu-Exchange/cmd/server/server.go's
// signal.NotifyContext + "go srv.Run(ctx)" + "<-ctx.Done()" shutdown shape
// (spec §6: "SIGINT/SIGTERM trigger orderly shutdown").
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vesperex/vesper/internal/audit"
	"github.com/vesperex/vesper/internal/coordinator"
	"github.com/vesperex/vesper/internal/core"
	"github.com/vesperex/vesper/internal/httpapi"
	"github.com/vesperex/vesper/internal/matching"
	"github.com/vesperex/vesper/internal/metrics"
	"github.com/vesperex/vesper/internal/registry"
	"github.com/vesperex/vesper/internal/settlement"
	"github.com/vesperex/vesper/internal/wire"
)

const (
	defaultTradingPort = 8888
	defaultHTTPPort    = 8080
	defaultBalance     = "10000"
)

func main() {
	os.Exit(run())
}

func run() int {
	configureLogging()

	tradingPort := defaultTradingPort
	httpPort := defaultHTTPPort
	if len(os.Args) > 1 {
		p, err := strconv.Atoi(os.Args[1])
		if err != nil {
			log.Error().Err(err).Str("arg", os.Args[1]).Msg("vesper: invalid trading_port argument")
			return 1
		}
		tradingPort = p
	}
	if len(os.Args) > 2 {
		p, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Error().Err(err).Str("arg", os.Args[2]).Msg("vesper: invalid http_port argument")
			return 1
		}
		httpPort = p
	}

	initialBalance, err := decimal.NewFromString(envOr("VESPER_INITIAL_BALANCE", defaultBalance))
	if err != nil {
		log.Error().Err(err).Msg("vesper: invalid VESPER_INITIAL_BALANCE")
		return 1
	}

	reg := registry.New(initialBalance)
	engine := matching.New(core.NewIDGenerator("TRADE"), &core.Clock{})
	settler := settlement.New(log.Logger)
	sink := openAuditSink()
	defer sink.Close()
	metricsSet := metrics.New()

	coord := coordinator.New(reg, engine, settler, sink, log.Logger)
	coord.OnTrade(func(trade core.Trade) {
		metricsSet.TradesExecuted.WithLabelValues(trade.Symbol).Inc()
		wire.PushTrade(reg, trade)
	})
	coord.OnSettlement(func(update settlement.PositionUpdate) {
		wire.PushSettlement(reg, update)
	})
	coord.OnOrderTerminal(func(order *core.Order, reason string) {
		wire.PushOrderCancelled(reg, order, reason)
	})
	coord.OnSettlementSkip(func(trade core.Trade) {
		metricsSet.SettlementSkips.WithLabelValues(trade.Symbol).Inc()
	})

	tradingAddr := fmt.Sprintf("0.0.0.0:%d", tradingPort)
	tradingServer := wire.New(tradingAddr, reg, func(order *core.Order) (bool, string) {
		result := coord.Submit(order)
		if result.Accepted {
			metricsSet.OrdersSubmitted.WithLabelValues(order.Symbol, order.Side.String()).Inc()
		} else {
			metricsSet.OrdersRejected.WithLabelValues(result.RejectReason).Inc()
		}
		return result.Accepted, result.RejectReason
	}, log.Logger)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", httpPort),
		Handler: httpapi.New(reg, log.Logger).Handler,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 2)
	go func() { errs <- describeBindError("trading", tradingPort, tradingServer.Run(ctx)) }()
	go func() {
		err := httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errs <- describeBindError("http", httpPort, err)
	}()

	log.Info().Msg(fmt.Sprintf("Market server: localhost:%d", tradingPort))
	log.Info().Msg(fmt.Sprintf("Web interface: http://localhost:%d", httpPort))

	select {
	case <-ctx.Done():
		log.Info().Msg("vesper: shutdown signal received")
	case err := <-errs:
		if err != nil {
			log.Error().Err(err).Msg("vesper: server failed to start")
			stop()
			httpServer.Close()
			return 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("vesper: http server did not shut down cleanly")
	}

	return 0
}

func configureLogging() {
	level, err := zerolog.ParseLevel(envOr("VESPER_LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if isatty.IsTerminal(os.Stdout.Fd()) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func openAuditSink() audit.Sink {
	dsn := os.Getenv("VESPER_AUDIT_DSN")
	if dsn == "" {
		return audit.NewMemory()
	}
	sink, err := audit.NewPostgres(dsn, log.Logger)
	if err != nil {
		log.Warn().Err(err).Msg("vesper: audit sink init failed, falling back to in-memory audit (non-fatal, spec §6/§7)")
		return audit.NewMemory()
	}
	return sink
}

// describeBindError reproduces _examples/original_source's
// WebServer.cpp/MarketServer.cpp EADDRINUSE special-casing: an actionable
// message distinguishing "port already in use" from any other bind
// failure (spec §7), for either the trading or http listener.
func describeBindError(kind string, port int, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return fmt.Errorf("%s port %d is already in use: stop the existing process or choose a different port (lsof -i :%d): %w", kind, port, port, err)
	}
	return fmt.Errorf("failed to bind %s port %d: %w", kind, port, err)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
