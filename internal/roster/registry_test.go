package roster

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	raw []RawMember
	err error
}

func (f *fakeSource) FetchMembers(ctx context.Context) ([]RawMember, error) {
	return f.raw, f.err
}

func newTestRegistry(t *testing.T, src *fakeSource) *Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mdr.json")
	return NewRegistry(src, path, zap.NewNop())
}

func TestRegistryRefresh(t *testing.T) {
	src := &fakeSource{raw: rawSnapshot()}
	reg := newTestRegistry(t, src)

	count, err := reg.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, 3, reg.MemberCount())
}

func TestRegistryRefreshFetchFailureKeepsTree(t *testing.T) {
	src := &fakeSource{raw: rawSnapshot()}
	reg := newTestRegistry(t, src)

	_, err := reg.Refresh(context.Background())
	require.NoError(t, err)

	src.err = errors.New("connection refused")
	_, err = reg.Refresh(context.Background())
	require.Error(t, err)

	// The previous tree survives the failed cycle untouched.
	assert.Equal(t, 3, reg.MemberCount())
}

func TestRegistryRefreshBadSnapshotKeepsTree(t *testing.T) {
	src := &fakeSource{raw: rawSnapshot()}
	reg := newTestRegistry(t, src)

	_, err := reg.Refresh(context.Background())
	require.NoError(t, err)

	src.err = nil
	src.raw = []RawMember{{ID: 9, Name: "Mallory", Rank: "archduke"}}
	_, err = reg.Refresh(context.Background())

	var re *ReconcileError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 3, reg.MemberCount())
}

func TestRegistryBindMemberPersists(t *testing.T) {
	src := &fakeSource{raw: rawSnapshot()}
	path := filepath.Join(t.TempDir(), "mdr.json")
	reg := NewRegistry(src, path, zap.NewNop())

	_, err := reg.Refresh(context.Background())
	require.NoError(t, err)

	m, err := reg.BindMember("Alice", "4242", "https://cdn.example/a.png")
	require.NoError(t, err)
	assert.Equal(t, "4242", m.DiscordID)

	_, err = reg.BindMember("nobody", "1", "")
	assert.ErrorIs(t, err, ErrMemberNotFound)

	// A second registry reading the same snapshot sees the binding, and a
	// refresh against the loaded tree carries it forward.
	reg2 := NewRegistry(src, path, zap.NewNop())
	require.NoError(t, reg2.Load())
	require.NotNil(t, reg2.FindMember("1"))
	assert.Equal(t, "4242", reg2.FindMember("Alice").DiscordID)

	_, err = reg2.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4242", reg2.FindMember("Alice").DiscordID)
}

func TestRegistryFindMemberReturnsCopy(t *testing.T) {
	reg := newTestRegistry(t, &fakeSource{raw: rawSnapshot()})
	_, err := reg.Refresh(context.Background())
	require.NoError(t, err)

	m := reg.FindMember("Alice")
	require.NotNil(t, m)
	m.DiscordID = "tampered"
	m.Name = "Mallory"

	assert.Equal(t, "", reg.FindMember("Alice").DiscordID)
	assert.Nil(t, reg.FindMember("Mallory"))

	bound, err := reg.BindMember("Alice", "4242", "")
	require.NoError(t, err)
	bound.AvatarURL = "tampered"
	assert.Equal(t, "", reg.FindMember("Alice").AvatarURL)
}

func TestRegistryConcurrentBindAndFind(t *testing.T) {
	reg := newTestRegistry(t, &fakeSource{raw: rawSnapshot()})
	_, err := reg.Refresh(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := reg.BindMember("Alice", strconv.Itoa(n*100+j), "https://cdn.example/a.png")
				assert.NoError(t, err)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if m := reg.FindMember("Alice"); m != nil {
					_ = m.DiscordID
					_ = m.AvatarURL
				}
			}
		}()
	}
	wg.Wait()

	assert.NotEmpty(t, reg.FindMember("Alice").DiscordID)
}

func TestRegistryLoadMissingSnapshot(t *testing.T) {
	reg := newTestRegistry(t, &fakeSource{})
	require.NoError(t, reg.Load())
	assert.Equal(t, 0, reg.MemberCount())
}

func TestRegistryResolve(t *testing.T) {
	reg := newTestRegistry(t, &fakeSource{raw: rawSnapshot()})
	_, err := reg.Refresh(context.Background())
	require.NoError(t, err)

	unit, err := reg.Resolve("Alpha", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "House Alpha", unit.ID)

	_, err = reg.Resolve("NoSuchHouse", "", "", "")
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}
