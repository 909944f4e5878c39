package identity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mycelian/rinku/internal/types"
)

// StaticGroup is a GroupMembership whose value only changes through Set.
type StaticGroup struct {
	mu    sync.RWMutex
	group *string
	bus   broadcaster[types.GroupEvent]
	pubMu sync.Mutex
}

var _ types.GroupMembership = (*StaticGroup)(nil)

// NewStaticGroup starts with groupID ("" means ungrouped).
func NewStaticGroup(groupID string) *StaticGroup {
	return &StaticGroup{group: types.OptionalString(groupID)}
}

func (g *StaticGroup) CurrentGroupID() *string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return clonePtr(g.group)
}

func (g *StaticGroup) Subscribe() (<-chan types.GroupEvent, func()) {
	return g.bus.subscribe()
}

// Set changes the group and notifies subscribers when it differs.
func (g *StaticGroup) Set(groupID *string) {
	g.pubMu.Lock()
	defer g.pubMu.Unlock()

	groupID = types.OptionalString(types.Deref(groupID))
	g.mu.Lock()
	if types.Deref(g.group) == types.Deref(groupID) {
		g.mu.Unlock()
		return
	}
	g.group = clonePtr(groupID)
	g.mu.Unlock()

	g.bus.publish(types.GroupEvent{GroupID: clonePtr(groupID)})
}

// MembershipFetcher returns the caller's current group id.
type MembershipFetcher interface {
	FetchGroupMembership(ctx context.Context) (*string, error)
}

// GroupPoller refreshes group membership from the backend on an interval
// and publishes changes.
type GroupPoller struct {
	*StaticGroup
	fetch MembershipFetcher
	log   zerolog.Logger
}

func NewGroupPoller(fetch MembershipFetcher, log zerolog.Logger) *GroupPoller {
	return &GroupPoller{
		StaticGroup: NewStaticGroup(""),
		fetch:       fetch,
		log:         log.With().Str("component", "group_poller").Logger(),
	}
}

// Refresh fetches membership once. Fetch errors keep the last known value.
func (p *GroupPoller) Refresh(ctx context.Context) error {
	g, err := p.fetch.FetchGroupMembership(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("group membership refresh failed")
		return err
	}
	if types.Deref(g) != types.Deref(p.CurrentGroupID()) {
		p.log.Info().Str("group_id", types.Deref(g)).Msg("group membership changed")
	}
	p.Set(g)
	return nil
}

// Start refreshes immediately, then every interval until ctx is done.
func (p *GroupPoller) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = p.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = p.Refresh(ctx)
		}
	}
}

// Follow refreshes membership on every identity change received on events
// until ctx is done or events is closed.
func (p *GroupPoller) Follow(ctx context.Context, events <-chan types.AuthEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			p.log.Debug().Bool("signed_in", ev.SignedIn).Msg("identity changed, refreshing group membership")
			_ = p.Refresh(ctx)
		}
	}
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
