package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"bitbucket.org/sotavant/chatsync/internal/chat"
	"bitbucket.org/sotavant/chatsync/internal/models"
	"bitbucket.org/sotavant/chatsync/internal/state"
)

const help = `commands:
  /users          list users
  /open <id>      open the conversation with a user
  /image <url>    send an image, optional caption after the url
  /close          close the current conversation
  /quit           exit
anything else is sent to the open conversation`

type colorNotifier struct {
	w   io.Writer
	red *color.Color
}

func newColorNotifier(w io.Writer) *colorNotifier {
	return &colorNotifier{w: w, red: color.New(color.FgRed)}
}

func (n *colorNotifier) Error(message string) {
	_, _ = n.red.Fprintln(n.w, "! "+message)
}

// client is the interactive front end. It renders the conversation from
// state snapshots and turns input lines into conversation calls.
type client struct {
	conv   *chat.Conversation
	self   string
	out    io.Writer
	detach func()

	mu      sync.Mutex
	gen     uint64
	printed int

	you  *color.Color
	peer *color.Color
	dim  *color.Color
}

func newClient(conv *chat.Conversation, self string, out io.Writer) *client {
	c := &client{
		conv: conv,
		self: self,
		out:  out,
		you:  color.New(color.FgGreen),
		peer: color.New(color.FgCyan),
		dim:  color.New(color.FgHiBlack),
	}
	c.detach = conv.State.Observe(c.render)
	return c
}

func (c *client) close() {
	c.detach()
}

// render prints the messages of the open conversation it has not printed
// yet. A new generation starts the count over.
func (c *client) render(s state.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s.Generation != c.gen || s.SelectedPeer == nil {
		c.gen = s.Generation
		c.printed = 0
	}
	if s.SelectedPeer == nil || s.IsLoadingHistory {
		return
	}
	if c.printed > len(s.Messages) {
		c.printed = 0
	}

	for _, m := range s.Messages[c.printed:] {
		c.printMessage(*s.SelectedPeer, m)
	}
	c.printed = len(s.Messages)
}

func (c *client) printMessage(peer models.Peer, m models.Message) {
	name := c.peer.Sprint(displayName(peer))
	if m.SenderID == c.self {
		name = c.you.Sprint("you")
	}

	body := m.Text
	if m.Image != "" {
		body = strings.TrimSpace(body + " [image " + m.Image + "]")
	}

	stamp := ""
	if !m.CreatedAt.IsZero() {
		stamp = c.dim.Sprint(m.CreatedAt.Local().Format("15:04")) + " "
	}
	fmt.Fprintf(c.out, "%s%s: %s\n", stamp, name, body)
}

func displayName(p models.Peer) string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.ID
}

// run reads commands from in until /quit, end of input or ctx is done.
func (c *client) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, help)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := c.handle(ctx, strings.TrimSpace(line)); quit {
				return nil
			}
		}
	}
}

func (c *client) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
	case "/quit":
		return true
	case "/help":
		fmt.Fprintln(c.out, help)
	case "/users":
		c.conv.LoadPeers(ctx)
		c.printPeers(c.conv.State.Read().Peers)
	case "/open":
		c.open(ctx, arg)
	case "/close":
		c.conv.Unsubscribe()
		c.conv.Select(ctx, nil)
		fmt.Fprintln(c.out, "conversation closed")
	case "/image":
		url, caption, _ := strings.Cut(arg, " ")
		if url == "" {
			fmt.Fprintln(c.out, "usage: /image <url> [caption]")
			return false
		}
		c.send(ctx, models.OutgoingMessage{Text: strings.TrimSpace(caption), Image: url})
	default:
		if strings.HasPrefix(cmd, "/") {
			fmt.Fprintf(c.out, "unknown command %s\n", cmd)
			return false
		}
		c.send(ctx, models.OutgoingMessage{Text: line})
	}
	return false
}

func (c *client) open(ctx context.Context, id string) {
	if id == "" {
		fmt.Fprintln(c.out, "usage: /open <id>")
		return
	}
	if len(c.conv.State.Read().Peers) == 0 {
		c.conv.LoadPeers(ctx)
	}

	done, ok := c.conv.SelectByID(ctx, id)
	if !ok {
		fmt.Fprintf(c.out, "no user with id %s\n", id)
		return
	}

	// the live handler filters on the selected peer, restart it for the new one
	c.conv.Unsubscribe()
	c.conv.Subscribe()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (c *client) send(ctx context.Context, msg models.OutgoingMessage) {
	if c.conv.State.Read().SelectedPeer == nil {
		fmt.Fprintln(c.out, "open a conversation first: /open <id>")
		return
	}
	c.conv.Send(ctx, msg)
}

func (c *client) printPeers(peers []models.Peer) {
	if len(peers) == 0 {
		fmt.Fprintln(c.out, "no users")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"ID", "Name", "Email"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.AppendBulk(lo.Map(peers, func(p models.Peer, _ int) []string {
		return []string{p.ID, displayName(p), p.Email}
	}))
	table.Render()
}
