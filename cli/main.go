// Package main provides a terminal client for the seawatch relay.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/xiaot623/seawatch/internal/domain"
	"github.com/xiaot623/seawatch/internal/media"
	"github.com/xiaot623/seawatch/internal/render"
)

// ScanPrompt is sent with every frame in live mode.
const ScanPrompt = "Scan the frame for risks. If there is serious danger, call the broadcast tool."

const wrapWidth = 100

type options struct {
	server   string
	owner    string
	session  string
	apiKey   string
	image    string
	message  string
	live     bool
	interval time.Duration
	watch    bool
	markdown bool
	noTools  bool
}

type app struct {
	opts   options
	client *Client
	styled bool
	md     *render.Markdown
	out    *os.File
}

func main() {
	var o options
	flag.StringVar(&o.server, "server", "http://localhost:8080", "relay server address")
	flag.StringVar(&o.owner, "user", "", "owner id sent as X-User-ID")
	flag.StringVar(&o.session, "session", "", "session id; a new session is created when empty")
	flag.StringVar(&o.apiKey, "key", os.Getenv("LLM_API_KEY"), "upstream API key")
	flag.StringVar(&o.image, "image", "", "image file attached to the message, or the frame source in live mode")
	flag.StringVar(&o.message, "message", "", "send one message and exit")
	flag.BoolVar(&o.live, "live", false, "re-send the -image frame every interval with the scan prompt")
	flag.DurationVar(&o.interval, "interval", 8*time.Second, "live mode frame interval")
	flag.BoolVar(&o.watch, "watch", false, "follow the session's alert feed")
	flag.BoolVar(&o.markdown, "markdown", true, "render replies as markdown on a terminal")
	flag.BoolVar(&o.noTools, "no-tools", false, "do not offer the alert tools to the model")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{
		opts:   o,
		client: NewClient(o.server, o.owner),
		styled: term.IsTerminal(int(os.Stdout.Fd())),
		out:    os.Stdout,
	}
	if a.styled && o.markdown {
		a.md = render.NewMarkdown(wrapWidth)
	}

	if err := a.run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context) error {
	sessionID := a.opts.session
	if sessionID == "" {
		id, err := a.client.NewSession(ctx)
		if err != nil {
			return fmt.Errorf("create session: %w", err)
		}
		sessionID = id
		fmt.Fprintf(a.out, "Session created: %s\n", sessionID)
	} else if err := a.showHistory(ctx, sessionID); err != nil {
		return err
	}

	switch {
	case a.opts.watch:
		return a.watch(ctx, sessionID)
	case a.opts.live:
		return a.live(ctx, sessionID)
	case a.opts.message != "" || a.opts.image != "":
		return a.send(ctx, sessionID, a.opts.message, a.opts.image)
	default:
		return a.interactive(ctx, sessionID)
	}
}

func (a *app) showHistory(ctx context.Context, sessionID string) error {
	msgs, err := a.client.History(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	t := render.NewTranscript(a.md, a.styled)
	t.Load(msgs)
	_, err = t.WriteTo(a.out)
	return err
}

// send relays one turn and prints the transcript of it.
func (a *app) send(ctx context.Context, sessionID, text, imagePath string) error {
	req := ChatRequest{
		SessionID: sessionID,
		Message:   text,
		APIKey:    a.opts.apiKey,
		UseTools:  !a.opts.noTools,
	}
	if imagePath != "" {
		att, err := media.EncodeFile(imagePath)
		if err != nil {
			return err
		}
		req.Images = []string{att.DataURL()}
	}

	t := render.NewTranscript(a.md, a.styled)
	var reply strings.Builder
	var tools []domain.ToolInvocation

	// Deltas are echoed as they arrive unless the reply is rendered as markdown.
	streaming := a.md == nil
	if streaming {
		fmt.Fprint(a.out, t.RenderEntry(render.Entry{Role: domain.RoleAssistant}))
	}

	err := a.client.Stream(ctx, req, func(ev domain.TurnEvent) {
		switch {
		case ev.Content != "":
			reply.WriteString(ev.Content)
			if streaming {
				fmt.Fprint(a.out, ev.Content)
			}
		case len(ev.Tools) > 0:
			tools = ev.Tools
		}
	})
	if streaming {
		fmt.Fprintln(a.out)
	} else if reply.Len() > 0 {
		t.AddMessage(domain.RoleAssistant, reply.String())
	}
	t.AddTools(tools)
	if _, werr := t.WriteTo(a.out); werr != nil {
		return werr
	}
	return err
}

func (a *app) interactive(ctx context.Context, sessionID string) error {
	fmt.Fprintln(a.out, "Type a message and press Enter to send.")
	fmt.Fprintln(a.out, "Commands: /image <path> <message>, /history, /quit")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Fprint(a.out, "> ")
		var input string
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			input = strings.TrimSpace(line)
		}

		switch {
		case input == "":
			continue
		case input == "/quit":
			return nil
		case input == "/history":
			if err := a.showHistory(ctx, sessionID); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
			continue
		}

		text, imagePath := input, ""
		if rest, ok := strings.CutPrefix(input, "/image "); ok {
			imagePath, text, _ = strings.Cut(strings.TrimSpace(rest), " ")
		}
		if err := a.send(ctx, sessionID, text, imagePath); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

// live re-reads the frame source every interval and keeps a board of
// recent alert cards.
func (a *app) live(ctx context.Context, sessionID string) error {
	if a.opts.image == "" {
		return fmt.Errorf("live mode needs -image as the frame source")
	}
	board := render.NewLiveBoard(render.DefaultCardTTL)

	ticker := time.NewTicker(a.opts.interval)
	defer ticker.Stop()

	for {
		if err := a.scanFrame(ctx, sessionID, board); err != nil {
			slog.Warn("live frame failed", "error", err)
		}
		if a.styled {
			fmt.Fprintln(a.out, board.Render())
		} else if plain := board.Plain(); plain != "" {
			fmt.Fprintln(a.out, plain)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (a *app) scanFrame(ctx context.Context, sessionID string, board *render.LiveBoard) error {
	f, err := os.Open(a.opts.image)
	if err != nil {
		return err
	}
	frame, _, err := image.Decode(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("decode frame: %w", err)
	}
	att, err := media.EncodeFrame(frame)
	if err != nil {
		return err
	}

	var reply strings.Builder
	err = a.client.Stream(ctx, ChatRequest{
		SessionID: sessionID,
		Message:   ScanPrompt,
		Images:    []string{att.DataURL()},
		APIKey:    a.opts.apiKey,
		UseTools:  true,
	}, func(ev domain.TurnEvent) {
		reply.WriteString(ev.Content)
		if len(ev.Tools) > 0 {
			board.Add(ev.Tools...)
		}
	})
	if line := strings.TrimSpace(reply.String()); line != "" {
		fmt.Fprintf(a.out, "[%s] %s\n", time.Now().Format("15:04:05"), line)
	}
	return err
}

func (a *app) watch(ctx context.Context, sessionID string) error {
	fmt.Fprintf(a.out, "Watching alerts for %s\n", sessionID)
	return a.client.Watch(ctx, sessionID, func(n domain.AlertNotice) {
		card := render.CardFor(domain.ToolInvocation{Name: n.Name, Args: n.Args})
		if n.Severity != "" {
			card.Severity = n.Severity
		}
		if a.styled {
			fmt.Fprintln(a.out, card.Render())
			return
		}
		fmt.Fprintln(a.out, card.Plain())
	})
}
