package chat

import (
	"context"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"bitbucket.org/sotavant/chatsync/internal/logger"
	"bitbucket.org/sotavant/chatsync/internal/models"
	"bitbucket.org/sotavant/chatsync/internal/state"
)

// Directory loads the list of known peers.
type Directory struct {
	state    *state.Container
	peers    PeerLister
	notifier Notifier
}

func NewDirectory(st *state.Container, peers PeerLister, n Notifier) *Directory {
	return &Directory{state: st, peers: peers, notifier: n}
}

// LoadPeers makes a single attempt; on failure Peers is left as it was.
func (d *Directory) LoadPeers(ctx context.Context) {
	d.state.Write(func(s *state.State) { s.IsLoadingPeers = true })
	defer d.state.Write(func(s *state.State) { s.IsLoadingPeers = false })

	peers, err := d.peers.ListPeers(ctx)
	if err != nil {
		logger.Log.Error("cannot load peers", zap.Error(err))
		report(d.notifier, err, FallbackFetchUsers)
		return
	}

	peers = lo.UniqBy(peers, func(p models.Peer) string { return p.ID })
	d.state.Write(func(s *state.State) { s.Peers = peers })
	logger.Log.Debug("peers loaded", zap.Int("count", len(peers)))
}
