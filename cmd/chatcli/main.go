// chatcli is a terminal client for the chat service.
// Usage:
//
//	chatcli -config configs/chat.example.yaml -create
//	chatcli -config configs/chat.example.yaml -nickname bob -join <room id>
//
// Every line read from stdin is posted to the room.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/piyush4299/chat-app/internal/auth"
	"github.com/piyush4299/chat-app/internal/chat"
	"github.com/piyush4299/chat-app/internal/config"
	"github.com/piyush4299/chat-app/internal/fanout"
	"github.com/piyush4299/chat-app/internal/prefs"
	"github.com/piyush4299/chat-app/internal/transport"
	"github.com/piyush4299/chat-app/internal/version"
)

var errGaveUp = errors.New("disconnected from chat service")

const typingClearTimeout = 2 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	nicknameFlag := flag.String("nickname", "", "nickname shown to others (default from preferences)")
	iconFlag := flag.String("icon", "", "icon shown next to your messages")
	create := flag.Bool("create", false, "create a new room")
	joinID := flag.String("join", "", "join the room with this id")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout carries only the conversation.
	logger := newLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	logger.Debug("starting chatcli",
		"version", version.Version,
		"commit", version.Commit,
		"server", cfg.Server.URL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	nickname := *nicknameFlag
	if nickname == "" {
		nickname = lookupNickname(ctx, cfg, logger)
	}
	icon := *iconFlag
	if icon == "" {
		icon = cfg.Profile.Icon
	}

	req, err := validateRequest(nickname, icon, *create, *joinID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(ctx, cfg, req, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("chat session ended", "error", err)
		os.Exit(1)
	}
}

func lookupNickname(ctx context.Context, cfg *config.ClientConfig, logger *slog.Logger) string {
	store, closeStore, err := prefs.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Warn("preferences unavailable, using default nickname", "error", err)
		return cfg.Profile.DefaultNickname
	}
	defer closeStore()

	nickname, err := prefs.Nickname(ctx, store, cfg.Profile.NicknameKey, cfg.Profile.DefaultNickname)
	if err != nil {
		logger.Warn("failed to read nickname preference", "error", err)
	}
	return nickname
}

func run(ctx context.Context, cfg *config.ClientConfig, req request, logger *slog.Logger) error {
	var creds *auth.Credentials
	if cfg.Auth.Enabled() {
		var err error
		creds, err = auth.LoadCredentials(cfg.Auth.KeyID, cfg.Auth.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("load credentials: %w", err)
		}
	}

	mc, err := managerConfig(cfg)
	if err != nil {
		return err
	}

	factory := transport.NewFactory(clientConfig(cfg, creds), logger)
	var sub *fanout.Subscription[chat.Event]
	mgr := chat.NewManager(mc, factory, func(ev chat.Event) {
		if e, ok := ev.(chat.OtherEvent); ok {
			logger.Debug("unhandled event", "type", e.Type)
		}
	}, logger, chat.WithSubscription(&sub))
	defer mgr.Close()
	defer closeSubscription(sub, logger)

	out := newPrinter(os.Stdout, req.nickname)

	if req.create {
		roomID, err := mgr.CreateRoom(ctx, req.nickname, req.icon)
		if err != nil {
			return err
		}
		fmt.Printf("Room created: %s (share this id to invite others)\n", roomID)
	} else {
		backlog, err := mgr.JoinRoom(ctx, req.nickname, req.roomID, req.icon)
		if err != nil {
			return err
		}
		fmt.Printf("Joined room %s\n", req.roomID)
		out.Backlog(backlog)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case ev, ok := <-sub.C():
				if !ok || !out.Print(ev) {
					return errGaveUp
				}
			}
		}
	})

	lines := readLines(os.Stdin)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case line, ok := <-lines:
				if !ok {
					// EOF ends the session.
					return context.Canceled
				}
				if line == "" {
					continue
				}
				if err := mgr.SendMessage(gctx, line); err != nil {
					logger.Warn("message not sent", "error", err)
					continue
				}
				if err := mgr.UpdateTypingPresence(gctx, false); err != nil {
					return err
				}
			}
		}
	})

	err = g.Wait()
	clearTyping(mgr, typingClearTimeout, logger)
	return err
}

// presenceUpdater is the part of chat.Manager used on shutdown.
type presenceUpdater interface {
	UpdateTypingPresence(ctx context.Context, typing bool) error
}

// clearTyping withdraws the typing indicator before exit. The session
// context is usually cancelled by now, so it gets a fresh bounded one.
func clearTyping(p presenceUpdater, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.UpdateTypingPresence(ctx, false); err != nil {
		logger.Debug("typing presence not cleared", "error", err)
	}
}

func closeSubscription(sub *fanout.Subscription[chat.Event], logger *slog.Logger) {
	stats := sub.Stats()
	dropped := sub.Close()
	logger.Debug("event subscription closed",
		"published", stats.TotalSent,
		"capacity", stats.Capacity,
		"grows", stats.Grows,
		"dropped", dropped,
	)
}

// readLines streams stdin lines until EOF. The reader goroutine is not
// stopped on shutdown; it exits with the process.
func readLines(f *os.File) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
