package roster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// ErrMemberNotFound is returned by lookups that name a member the current
// tree does not contain.
var ErrMemberNotFound = errors.New("member not found in the registry")

// Registry owns the current unit tree. Refreshes rebuild a whole new tree
// and swap it in atomically; every mutation is followed by a snapshot save
// so a restart picks up where the process left off. One mutex guards the
// tree; network fetches happen outside it.
type Registry struct {
	source Source
	path   string
	log    *zap.Logger

	mu   sync.Mutex
	tree *Unit
}

// NewRegistry creates a registry persisting to snapshotPath. The tree
// starts empty until Load or Refresh is called.
func NewRegistry(source Source, snapshotPath string, log *zap.Logger) *Registry {
	return &Registry{
		source: source,
		path:   snapshotPath,
		log:    log,
		tree:   NewTree(),
	}
}

// Load restores the last persisted tree. A missing snapshot leaves the
// registry empty and is not an error.
func (r *Registry) Load() error {
	tree, err := LoadSnapshot(r.path)
	if err != nil {
		return fmt.Errorf("roster: load snapshot: %w", err)
	}
	if tree == nil {
		r.log.Info("no roster snapshot found, starting empty", zap.String("path", r.path))
		return nil
	}

	r.mu.Lock()
	r.tree = tree
	r.mu.Unlock()

	r.log.Info("roster snapshot loaded",
		zap.String("path", r.path),
		zap.Int("members", len(tree.AllMembers())),
	)
	return nil
}

// Tree returns the current tree. Callers must treat it as read-only; all
// mutation goes through the registry.
func (r *Registry) Tree() *Unit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree
}

// MemberCount reports the number of members in the current tree.
func (r *Registry) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tree.AllMembers())
}

// Refresh pulls a fresh snapshot from the source and reconciles it into a
// new tree. The fetch runs outside the lock; reconcile, swap and snapshot
// save run inside it. On any failure the previous tree stays current and
// the error is returned for the caller to log or report.
func (r *Registry) Refresh(ctx context.Context) (int, error) {
	raw, err := r.source.FetchMembers(ctx)
	if err != nil {
		return 0, fmt.Errorf("roster: fetch members: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := Reconcile(r.tree, raw)
	if err != nil {
		return 0, err
	}

	r.tree = next

	if err := SaveSnapshot(r.path, r.tree); err != nil {
		// The in-memory swap already happened; only persistence failed.
		r.log.Error("roster snapshot save failed", zap.Error(err), zap.String("path", r.path))
	}

	count := len(next.AllMembers())
	r.log.Info("roster refreshed", zap.Int("members", count))
	return count, nil
}

// Resolve performs a wildcard path lookup against the current tree.
func (r *Registry) Resolve(house, division, team, roster string) (*Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tree.Resolve(house, division, team, roster)
}

// FindMember locates a member by external ID (numeric string) or display
// name. The returned member is a copy; the live tree is only ever touched
// under the registry's lock.
func (r *Registry) FindMember(query string) *Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyMember(r.findMemberLocked(query))
}

func (r *Registry) findMemberLocked(query string) *Member {
	if id, err := strconv.Atoi(query); err == nil {
		if m := r.tree.FindMember(id); m != nil {
			return m
		}
	}
	return r.tree.FindMemberByName(query)
}

func copyMember(m *Member) *Member {
	if m == nil {
		return nil
	}
	cp := *m
	return &cp
}

// BindMember attaches a Discord account and avatar to the named member and
// persists the change. These are the only member fields a local
// administrator owns; everything else is overwritten on the next refresh.
// The returned member is a copy.
func (r *Registry) BindMember(query, discordID, avatarURL string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.findMemberLocked(query)
	if m == nil {
		return nil, ErrMemberNotFound
	}

	m.DiscordID = discordID
	m.AvatarURL = avatarURL

	if err := SaveSnapshot(r.path, r.tree); err != nil {
		return nil, fmt.Errorf("roster: save snapshot: %w", err)
	}
	return copyMember(m), nil
}
