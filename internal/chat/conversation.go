package chat

import (
	"context"

	"github.com/samber/lo"

	"bitbucket.org/sotavant/chatsync/internal/models"
	"bitbucket.org/sotavant/chatsync/internal/state"
)

// Conversation wires every component around one state container for the
// lifetime of a session.
type Conversation struct {
	State     *state.Container
	Directory *Directory
	History   *History
	Live      *Live
	Selector  *Selector
	Sender    *Sender
}

func New(st *state.Container, api API, transports TransportProvider, n Notifier) *Conversation {
	history := NewHistory(st, api, n)
	return &Conversation{
		State:     st,
		Directory: NewDirectory(st, api, n),
		History:   history,
		Live:      NewLive(st, transports),
		Selector:  NewSelector(st, history),
		Sender:    NewSender(st, api, n),
	}
}

func (c *Conversation) LoadPeers(ctx context.Context) {
	c.Directory.LoadPeers(ctx)
}

func (c *Conversation) LoadHistory(ctx context.Context, peer models.Peer) {
	c.History.LoadHistory(ctx, peer)
}

func (c *Conversation) Select(ctx context.Context, peer *models.Peer) <-chan struct{} {
	return c.Selector.Select(ctx, peer)
}

// SelectByID selects the known peer with id. It reports false when the id
// is not in the directory.
func (c *Conversation) SelectByID(ctx context.Context, id string) (<-chan struct{}, bool) {
	peer, ok := lo.Find(c.State.Read().Peers, func(p models.Peer) bool { return p.ID == id })
	if !ok {
		return nil, false
	}
	return c.Select(ctx, &peer), true
}

func (c *Conversation) Send(ctx context.Context, msg models.OutgoingMessage) {
	c.Sender.Send(ctx, msg)
}

func (c *Conversation) Subscribe() *Subscription {
	return c.Live.Start()
}

func (c *Conversation) Unsubscribe() {
	c.Live.Stop()
}

// Close ends the session: the live handler is detached and state dropped.
func (c *Conversation) Close() {
	c.Live.Stop()
	c.State.Reset()
}
