package updatelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/bundlekeeper/internal/bundle"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/bundletest"
	"github.com/dropDatabas3/bundlekeeper/internal/bundle/compare"
	"github.com/dropDatabas3/bundlekeeper/internal/validation"
)

func openStore(t *testing.T, retention int) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "update-log"), retention, zap.NewNop())
	require.NoError(t, err)
	day := time.Date(2022, 5, 9, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return day }
	return s
}

func loadBundle(t *testing.T, version string) *bundle.Bundle {
	t.Helper()
	dir := bundletest.Write(t, filepath.Join(t.TempDir(), "b"+version), bundletest.Simple("b", version))
	b, err := bundle.Load(dir)
	require.NoError(t, err)
	return b
}

func TestRecordCopiesBundleAndValidations(t *testing.T) {
	s := openStore(t, 5)
	b := loadBundle(t, "1")
	rs := []validation.Result{validation.Warning("CATALOG", "two"), validation.Info("FILES", "ok")}

	c, err := s.Record(b, rs, false)
	require.NoError(t, err)
	assert.Equal(t, "20220509_00001", c.Folder)

	r, err := compare.Compare(b.Path(), s.BundlePath(c.Folder))
	require.NoError(t, err)
	assert.True(t, r.SameBundles(), "stored copy equals the source bundle")

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, c.Folder, latest.Folder)
	assert.Equal(t, "1", latest.Version.Version)
	assert.Equal(t, rs, latest.Validations)
	assert.False(t, latest.Invalid)
}

func TestFoldersAreSortable(t *testing.T) {
	s := openStore(t, 10)
	_, err := s.Record(loadBundle(t, "1"), nil, false)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2022, 5, 10, 0, 0, 0, 0, time.UTC) }
	c2, err := s.Record(loadBundle(t, "2"), nil, true)
	require.NoError(t, err)
	assert.Equal(t, "20220510_00002", c2.Folder)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2", list[0].Version.Version)
	assert.True(t, list[0].Invalid)
	assert.Equal(t, "1", list[1].Version.Version)
}

func TestRecordAfterClockMovesBack(t *testing.T) {
	s := openStore(t, 1)
	c1, err := s.Record(loadBundle(t, "1"), nil, false)
	require.NoError(t, err)
	require.Equal(t, "20220509_00001", c1.Folder)

	s.now = func() time.Time { return time.Date(2022, 5, 8, 23, 0, 0, 0, time.UTC) }
	c2, err := s.Record(loadBundle(t, "2"), nil, false)
	require.NoError(t, err)
	assert.Equal(t, "20220509_00002", c2.Folder)
	assert.DirExists(t, filepath.Join(s.Root(), c2.Folder))
	assert.NoDirExists(t, filepath.Join(s.Root(), c1.Folder))

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, c2.Folder, latest.Folder)
	assert.Equal(t, "2", latest.Version.Version)
}

func TestRecordAfterSequenceOverflowsWidth(t *testing.T) {
	s := openStore(t, 1)
	old := filepath.Join(s.Root(), "20220509_99999")
	require.NoError(t, os.MkdirAll(old, 0o755))

	c, err := s.Record(loadBundle(t, "2"), nil, false)
	require.NoError(t, err)
	assert.Equal(t, "20220509_100000", c.Folder)
	assert.DirExists(t, filepath.Join(s.Root(), c.Folder))
	assert.NoDirExists(t, old)

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.Equal(t, c.Folder, latest.Folder)
	assert.Equal(t, "2", latest.Version.Version)
}

func TestSortFoldersNumerically(t *testing.T) {
	fs := []string{"20220509_100000", "20220510_00003", "20220509_99999", "20220509_00001"}
	sortFolders(fs)
	assert.Equal(t, []string{"20220509_00001", "20220509_99999", "20220509_100000", "20220510_00003"}, fs)
}

func TestRetention(t *testing.T) {
	s := openStore(t, 2)
	for _, v := range []string{"1", "2", "3"} {
		_, err := s.Record(loadBundle(t, v), nil, false)
		require.NoError(t, err)
	}
	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "3", list[0].Version.Version)
	assert.Equal(t, "2", list[1].Version.Version)
}

func TestRetentionZeroKeepsOnlyLiveCandidate(t *testing.T) {
	s := openStore(t, 0)
	for _, v := range []string{"1", "2"} {
		_, err := s.Record(loadBundle(t, v), nil, false)
		require.NoError(t, err)
	}
	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "20220509_00002", list[0].Folder)

	rep, err := s.Report()
	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, rep.Status)
	assert.Nil(t, rep.RetentionPolicy)
}

func TestMarkSkippedPersists(t *testing.T) {
	s := openStore(t, 3)
	c, err := s.Record(loadBundle(t, "1"), []validation.Result{validation.Error("YAML", "bad")}, true)
	require.NoError(t, err)
	_, err = s.MarkSkipped(c.Folder)
	require.NoError(t, err)

	latest, err := s.Latest()
	require.NoError(t, err)
	assert.True(t, latest.Skipped)
	assert.Len(t, latest.Validations, 1)
}

func TestLatestEmpty(t *testing.T) {
	s := openStore(t, 3)
	_, err := s.Latest()
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestReportCounts(t *testing.T) {
	s := openStore(t, 3)
	_, err := s.Record(loadBundle(t, "1"), []validation.Result{
		validation.Error("A", "x"), validation.Warning("B", "y"), validation.Info("C", "z"), validation.Info("D", "w"),
	}, true)
	require.NoError(t, err)

	rep, err := s.Report()
	require.NoError(t, err)
	assert.Equal(t, StatusEnabled, rep.Status)
	require.NotNil(t, rep.RetentionPolicy)
	assert.Equal(t, 3, *rep.RetentionPolicy)
	require.Len(t, rep.Versions, 1)
	row := rep.Versions[0]
	assert.Equal(t, 1, row.Errors)
	assert.Equal(t, 1, row.Warnings)
	assert.Equal(t, 2, row.InfoMessages)
	assert.Equal(t, "09 May 2022", row.Date)
}

func TestIgnoresForeignFolders(t *testing.T) {
	s := openStore(t, 3)
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "tmp"), 0o755))
	_, err := s.Record(loadBundle(t, "1"), nil, false)
	require.NoError(t, err)
	list, err := s.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestOpenRejectsNegativeRetention(t *testing.T) {
	_, err := Open(t.TempDir(), -1, zap.NewNop())
	assert.Error(t, err)
}
