package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/mmgame/tableclient/internal/config"
	"github.com/mmgame/tableclient/internal/connection"
	"github.com/mmgame/tableclient/internal/dispatch"
	"github.com/mmgame/tableclient/internal/notify"
	"github.com/mmgame/tableclient/internal/session"
	"github.com/mmgame/tableclient/internal/state"
	"github.com/mmgame/tableclient/internal/version"
)

func main() {
	// Load .env if present; missing file is fine.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: failed to load .env: %v\n", err)
	}

	cmd := &cli.Command{
		Name:    "tableclient",
		Usage:   "interactive client for a realtime trading table",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "configs/client.local.yaml",
				Usage: "path to config file",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting tableclient",
		"version", version.Version,
		"commit", version.Commit,
		"config", cmd.String("config"),
	)

	cfg, err := config.LoadAndValidate(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Info("configuration loaded",
		"ws_url", cfg.Server.WSURL,
		"table", cfg.Server.TableID,
		"session_backend", cfg.Session.Backend,
	)

	// Session store
	var store session.Store
	switch cfg.Session.Backend {
	case "postgres":
		pgStore, err := session.NewPostgresStore(ctx, cfg.Session.Postgres, cfg.Session.Profile)
		if err != nil {
			return fmt.Errorf("open postgres session store: %w", err)
		}
		defer pgStore.Close()
		store = pgStore
	default:
		fileStore, err := session.NewFileStore(cfg.Session.FilePath)
		if err != nil {
			return fmt.Errorf("open file session store: %w", err)
		}
		store = fileStore
	}

	sess := session.NewManager(store, cfg.Session.SaveDebounce, logger)
	if err := sess.Load(ctx); err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	snap := state.NewStore(logger)
	notif := notify.NewScheduler(cfg.Notifications.DefaultDuration, logger)
	defer notif.Stop()

	conn := connection.NewManager(connection.ManagerConfig{
		WSURL:                cfg.Server.WSURL,
		TableID:              cfg.Server.TableID,
		HeartbeatInterval:    cfg.Connection.HeartbeatInterval,
		ReconnectBaseDelay:   cfg.Connection.ReconnectBaseDelay,
		ReconnectMaxDelay:    cfg.Connection.ReconnectMaxDelay,
		MaxReconnectAttempts: cfg.Connection.MaxReconnectAttempts,
		HandshakeTimeout:     cfg.Connection.HandshakeTimeout,
		WriteTimeout:         cfg.Connection.WriteTimeout,
		MessageBufferSize:    cfg.Connection.MessageBufferSize,
	}, logger)

	d := dispatch.NewDispatcher(conn, conn.Messages(), sess, snap, notif, logger)
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}

	// Resume a stored identity, otherwise connect under a provisional
	// id until a join is confirmed.
	if sess.Joined() {
		logger.Info("resuming session", "pid", sess.PlayerID())
		err = conn.Connect(sess.PlayerID(), true)
	} else {
		pid := session.NewProvisionalID()
		sess.SetProvisionalID(pid)
		logger.Info("connecting with provisional id", "pid", pid)
		err = conn.Connect(pid, false)
	}
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return watchEvents(gctx, conn, snap, notif, d) })
	g.Go(func() error { return repl(gctx, d, conn, snap, sess) })

	err = g.Wait()

	// Shutdown: stop consuming, close the socket, write any pending
	// session change.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	d.Stop(shutdownCtx)
	conn.Stop(shutdownCtx)
	if ferr := sess.Flush(shutdownCtx); ferr != nil {
		logger.Error("failed to flush session", "error", ferr)
	}

	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

var errQuit = errors.New("quit")

// watchEvents prints connection, snapshot, notice, and error updates.
func watchEvents(
	ctx context.Context,
	conn *connection.Manager,
	snap *state.Store,
	notif *notify.Scheduler,
	d *dispatch.Dispatcher,
) error {
	states := conn.Subscribe()
	snaps := snap.Subscribe()
	notices := notif.Subscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case change := <-states:
			fmt.Printf("* connection %s -> %s\n", change.Old, change.New)
			if change.New == connection.StateError {
				fmt.Println("* reconnection budget exhausted; use 'retry' to try again")
			}

		case s := <-snaps:
			fmt.Printf("* hand %d round %d, %d players, community %v\n",
				s.HandNumber, s.Round, len(s.Players), s.Community)

		case n := <-notices:
			if n.Message != "" {
				fmt.Printf("* %s\n", n.Message)
			}

		case detail := <-d.Errors():
			fmt.Printf("! %s\n", detail)
		}
	}
}

// repl reads commands from stdin and maps them onto dispatcher calls.
func repl(
	ctx context.Context,
	d *dispatch.Dispatcher,
	conn *connection.Manager,
	snap *state.Store,
	sess *session.Manager,
) error {
	fmt.Println("commands: join <name> <buy-in> | quote <bid> <ask> | buy <price> | sell <price>")
	fmt.Println("          start | away | back | leave | auction | bid <width> | options <on|off> <n>")
	fmt.Println("          state | status | retry | quit")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		close(lines)
	}()

	for {
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok = <-lines:
			if !ok {
				return errQuit
			}
		}

		if err := handleCommand(line, d, conn, snap, sess); err != nil {
			if errors.Is(err, errQuit) {
				return err
			}
			fmt.Printf("! %v\n", err)
		}
	}
}

func handleCommand(
	line string,
	d *dispatch.Dispatcher,
	conn *connection.Manager,
	snap *state.Store,
	sess *session.Manager,
) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "join":
		if len(fields) != 3 {
			return errors.New("usage: join <name> <buy-in>")
		}
		buyIn, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("bad buy-in: %w", err)
		}
		return d.Join(fields[1], buyIn)

	case "quote":
		if len(fields) != 3 {
			return errors.New("usage: quote <bid> <ask>")
		}
		bid, err1 := strconv.ParseFloat(fields[1], 64)
		ask, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			return errors.New("bad quote levels")
		}
		return d.Quote(bid, ask)

	case "buy", "sell":
		if len(fields) != 2 {
			return fmt.Errorf("usage: %s <price>", fields[0])
		}
		price, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("bad price: %w", err)
		}
		return d.Trade(fields[0], price)

	case "start":
		return d.StartHand()

	case "away":
		return d.Away()

	case "back":
		return d.JoinBack()

	case "leave":
		return d.Leave()

	case "auction":
		return d.StartWidthAuction()

	case "bid":
		if len(fields) != 2 {
			return errors.New("usage: bid <width>")
		}
		width, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("bad width: %w", err)
		}
		return d.SubmitWidthBid(width)

	case "options":
		if len(fields) != 3 {
			return errors.New("usage: options <on|off> <max-spreads>")
		}
		maxSpreads, err := strconv.Atoi(fields[2])
		if err != nil {
			return fmt.Errorf("bad max spreads: %w", err)
		}
		return d.UpdateOptions(fields[1] == "on", maxSpreads)

	case "state":
		s := snap.Current()
		fmt.Printf("hand %d round %d community %v maker %s\n",
			s.HandNumber, s.Round, s.Community, s.Maker)
		for _, p := range s.Players {
			fmt.Printf("  %-12s seat %d stack %d pnl %+.1f %s\n",
				p.Name, p.Seat, p.Stack, p.PnL, p.Status)
		}
		return nil

	case "status":
		stats := conn.Stats()
		rec := sess.Record()
		fmt.Printf("connection: %s (attempts %d)\n", stats.State, stats.Attempts)
		fmt.Printf("session: player=%q pid=%q joined=%v has_left=%v\n",
			rec.PlayerName, rec.PlayerID, rec.Joined, rec.HasLeft)
		return nil

	case "retry":
		if sess.Joined() {
			return conn.Connect(sess.PlayerID(), true)
		}
		pid := session.NewProvisionalID()
		sess.SetProvisionalID(pid)
		return conn.Connect(pid, false)

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q", fields[0])
	}
}
