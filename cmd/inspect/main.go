// Command inspect prints the participants and messages of a chat-room store.
package main

import (
	"chat-room/domain"
	"chat-room/repositories"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/pflag"
)

type options struct {
	badgerPath string
	redisURL   string
	user       string
	only       string
	noColor    bool
}

func main() {
	var opts options
	flags := pflag.NewFlagSet("inspect", pflag.ExitOnError)
	flags.StringVar(&opts.badgerPath, "db", "./data/badger", "Path to the Badger directory")
	flags.StringVar(&opts.redisURL, "redis-url", "", "Inspect a Redis store instead of Badger")
	flags.StringVarP(&opts.user, "user", "u", "", "Only show messages visible to this participant")
	flags.StringVar(&opts.only, "only", "", "Restrict output to \"participants\" or \"messages\"")
	flags.BoolVar(&opts.noColor, "no-color", false, "Disable colored headers")
	_ = flags.Parse(os.Args[1:])

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	log := logs.GetLoggerFromLevel(slog.LevelError)

	store, err := openStore(ctx, opts, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.only != "messages" {
		participants, err := store.Participants.List(ctx)
		if err != nil {
			return fmt.Errorf("list participants: %w", err)
		}
		printHeader(out, fmt.Sprintf("Participants (%d)", len(participants)), !opts.noColor)
		renderParticipants(out, participants, time.Now())
	}

	if opts.only != "participants" {
		var messages []domain.Message
		if opts.user != "" {
			messages, err = store.Messages.ListVisibleTo(ctx, opts.user)
		} else {
			messages, err = store.Messages.ListAll(ctx)
		}
		if err != nil {
			return fmt.Errorf("list messages: %w", err)
		}
		printHeader(out, fmt.Sprintf("Messages (%d)", len(messages)), !opts.noColor)
		renderMessages(out, messages)
	}
	return nil
}

func openStore(ctx context.Context, opts options, log *slog.Logger) (*repositories.Store, error) {
	if opts.redisURL != "" {
		return repositories.OpenRedis(ctx, opts.redisURL, log)
	}
	return repositories.OpenBadgerReadOnly(opts.badgerPath, log)
}

func printHeader(out io.Writer, title string, colours bool) {
	header := "====== " + title + " ======"
	if colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	fmt.Fprintln(out, header)
}

func newTable(out io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderParticipants(out io.Writer, participants []domain.Participant, now time.Time) {
	table := newTable(out, []string{"Name", "Last status", "Idle"})
	for _, p := range participants {
		table.Append([]string{
			p.Name,
			p.LastStatus.Local().Format(time.DateTime),
			now.Sub(p.LastStatus).Truncate(time.Second).String(),
		})
	}
	table.Render()
}

func renderMessages(out io.Writer, messages []domain.Message) {
	table := newTable(out, []string{"ID", "Time", "Type", "From", "To", "Text"})
	for _, m := range messages {
		table.Append([]string{m.ID.String(), m.Time, string(m.Type), m.From, m.To, m.Text})
	}
	table.Render()
}
