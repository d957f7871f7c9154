package status

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle/bundletest"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
)

func TestNewStateDefaults(t *testing.T) {
	s := New(nil, zap.NewNop())
	snap := s.Snapshot()
	assert.Equal(t, Snapshot{}, snap)
	assert.Nil(t, s.ChangesInNewVersion())
	assert.Equal(t, "", s.ErrorMessage())
}

func TestErrorMessageDefault(t *testing.T) {
	s := New(nil, zap.NewNop())
	s.SetErrorMessage("disk on fire")
	assert.Equal(t, "", s.ErrorMessage(), "no error flag, no message")

	s.SetErrorInNewVersion(true)
	assert.Equal(t, "disk on fire", s.ErrorMessage())

	s.SetErrorMessage("")
	assert.Equal(t, DefaultErrorMessage, s.ErrorMessage())
	assert.Equal(t, DefaultErrorMessage, s.Snapshot().ErrorMessage)
}

func TestSetOutdatedBundle(t *testing.T) {
	s := New(nil, zap.NewNop())
	s.SetOutdatedBundle("b", "1", "abc")
	assert.Equal(t, "b:1 (checksum abc)", s.OutdatedBundleInformation())
}

func TestSetChangesResolvesDiff(t *testing.T) {
	root := t.TempDir()
	a := bundletest.Write(t, filepath.Join(root, "a"), bundletest.Simple("b", "1"))
	b := bundletest.Write(t, filepath.Join(root, "b"), bundletest.Simple("b", "2"))

	s := New(compare.NewCache(0), zap.NewNop())
	s.SetChangesInNewVersion(&DiffRef{Origin: a, Other: b})
	r := s.ChangesInNewVersion()
	require.NotNil(t, r)
	assert.False(t, r.SameBundles())
	assert.Equal(t, &DiffRef{Origin: a, Other: b}, s.Snapshot().ChangesInNewVersion)

	s.SetChangesInNewVersion(nil)
	assert.Nil(t, s.ChangesInNewVersion())
	assert.Nil(t, s.Snapshot().ChangesInNewVersion)
}

type failingResolver struct{}

func (failingResolver) Resolve(string, string) (*compare.Result, error) {
	return nil, errors.New("not shared")
}

func TestSetChangesKeepsRefWhenUnresolvable(t *testing.T) {
	s := New(failingResolver{}, zap.NewNop())
	s.SetChangesInNewVersion(&DiffRef{Origin: "/x", Other: "/y"})
	assert.Nil(t, s.ChangesInNewVersion())
	assert.NotNil(t, s.Snapshot().ChangesInNewVersion)
}

func TestSnapshotLastCheck(t *testing.T) {
	s := New(nil, zap.NewNop())
	now := time.Now()
	s.SetLastCheckForUpdate(now)
	snap := s.Snapshot()
	require.NotNil(t, snap.LastCheckForUpdate)
	assert.True(t, now.Equal(*snap.LastCheckForUpdate))
}
