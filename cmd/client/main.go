package main

import (
	"bufio"
	"chat-room/client"
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress     string        `env:"CHAT_SERVER_ADDR,default=http://localhost:5000"`
	User              string        `env:"CHAT_USER,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,default=WARN"`
	HeartbeatInterval time.Duration `env:"HEARTBEAT_INTERVAL,default=5s"`
	PollInterval      time.Duration `env:"POLL_INTERVAL,default=3s"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run joins the room, keeps the presence alive, prints new messages and sends stdin lines.
func run() (int, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(config.ServerAddress, config.User, nil)
	if err := c.Join(ctx); err != nil {
		if statusOf(err) == http.StatusConflict {
			return exitConfig, fmt.Errorf("name %q is already taken", config.User)
		}
		return exitRuntime, fmt.Errorf("could not join %s: %w", config.ServerAddress, err)
	}
	fmt.Printf(">>> Joined %s as %s. \"@name text\" is private, /quit leaves.\n", config.ServerAddress, config.User)

	lines := make(chan string)
	go readLines(os.Stdin, lines)

	heartbeat := time.NewTicker(config.HeartbeatInterval)
	defer heartbeat.Stop()
	poll := time.NewTicker(config.PollInterval)
	defer poll.Stop()

	seen := make(map[string]struct{})
	printNew(ctx, c, seen, log)

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping client...")
			return exitOK, nil
		case <-heartbeat.C:
			if err := c.Heartbeat(ctx); err != nil {
				if statusOf(err) == http.StatusNotFound {
					return exitRuntime, fmt.Errorf("removed from the room after inactivity")
				}
				log.Warn("Heartbeat failed", "error", err)
			}
		case <-poll.C:
			printNew(ctx, c, seen, log)
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				return exitOK, nil
			}
			to, text, private, valid := parseLine(line)
			if !valid {
				continue
			}
			if err := c.Send(ctx, to, text, private); err != nil {
				fmt.Println(color.Red.Render("send failed: " + err.Error()))
				continue
			}
			printNew(ctx, c, seen, log)
		}
	}
}

// parseLine turns "@Bob hello" into a private message to Bob, anything else is a broadcast.
func parseLine(line string) (to, text string, private, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false, false
	}
	if strings.HasPrefix(line, "@") {
		recipient, body, found := strings.Cut(line[1:], " ")
		body = strings.TrimSpace(body)
		if !found || recipient == "" || body == "" {
			return "", "", false, false
		}
		return recipient, body, true, true
	}
	return "all", line, false, true
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

func printNew(ctx context.Context, c *client.Client, seen map[string]struct{}, log *slog.Logger) {
	messages, err := c.Messages(ctx, 0)
	if err != nil {
		log.Warn("Polling messages failed", "error", err)
		return
	}
	for _, m := range messages {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		fmt.Println(format(m))
	}
}

func format(m client.Message) string {
	switch m.Type {
	case "status":
		return color.Gray.Render(fmt.Sprintf("(%s) %s %s", m.Time, m.From, m.Text))
	case "private_message":
		return color.Magenta.Render(fmt.Sprintf("(%s) %s -> %s: %s", m.Time, m.From, m.To, m.Text))
	default:
		return fmt.Sprintf("(%s) %s: %s", m.Time, color.Cyan.Render(m.From), m.Text)
	}
}

func statusOf(err error) int {
	var apiErr *client.APIError
	if stdErrors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
