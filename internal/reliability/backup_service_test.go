package reliability

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/flexinvest/platform/internal/testing"
)

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	failDel bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: make(map[string][]byte)}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ObjectInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, ObjectInfo{Key: k, SizeBytes: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDel {
		return errors.New("delete refused")
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func readArchive(t *testing.T, data []byte) map[string][]byte {
	t.Helper()

	gz, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(gz)

	files := make(map[string][]byte)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		content, err := io.ReadAll(tr)
		require.NoError(t, err)
		files[header.Name] = content
	}
	return files
}

func TestCreateAndUpload(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t)
	defer cleanup()

	store := newMemoryStore()
	svc := NewBackupService(db, store, t.TempDir(), 30, "1.0.0", zerolog.Nop())
	fixed := time.Date(2026, 3, 1, 2, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	info, err := svc.CreateAndUpload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "flexinvest-backup-2026-03-01-023000.tar.gz", info.Filename)
	assert.Positive(t, info.SizeBytes)

	files := readArchive(t, store.objects[info.Filename])
	require.Contains(t, files, "ledger.db")
	require.Contains(t, files, metadataFile)

	var metadata BackupMetadata
	require.NoError(t, json.Unmarshal(files[metadataFile], &metadata))
	assert.Equal(t, "1.0.0", metadata.Version)
	require.Len(t, metadata.Databases, 1)
	assert.Equal(t, int64(len(files["ledger.db"])), metadata.Databases[0].SizeBytes)
	assert.True(t, strings.HasPrefix(metadata.Databases[0].Checksum, "sha256:"))
}

func TestListBackupsSkipsForeignObjects(t *testing.T) {
	store := newMemoryStore()
	store.objects["flexinvest-backup-2026-01-01-000000.tar.gz"] = []byte("a")
	store.objects["flexinvest-backup-2026-01-03-000000.tar.gz"] = []byte("bb")
	store.objects["flexinvest-backup-garbage.tar.gz"] = []byte("c")

	svc := NewBackupService(nil, store, t.TempDir(), 30, "1.0.0", zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC) }

	backups, err := svc.ListBackups(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "flexinvest-backup-2026-01-03-000000.tar.gz", backups[0].Filename)
	assert.Equal(t, int64(24), backups[0].AgeHours)
	assert.Equal(t, int64(2), backups[0].SizeBytes)
}

func TestRotateOldBackups(t *testing.T) {
	store := newMemoryStore()
	for _, day := range []string{"01", "02", "03", "20", "25"} {
		store.objects["flexinvest-backup-2026-01-"+day+"-000000.tar.gz"] = []byte("x")
	}

	svc := NewBackupService(nil, store, t.TempDir(), 10, "1.0.0", zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC) }

	deleted, err := svc.RotateOldBackups(context.Background())
	require.NoError(t, err)

	// Newest three (25, 20, 03) are kept even though 03 is past retention
	assert.Equal(t, 2, deleted)
	assert.ElementsMatch(t, []string{
		"flexinvest-backup-2026-01-01-000000.tar.gz",
		"flexinvest-backup-2026-01-02-000000.tar.gz",
	}, store.deleted)
}

func TestRotateOldBackupsKeepsEverythingWithoutRetention(t *testing.T) {
	store := newMemoryStore()
	for _, day := range []string{"01", "02", "03", "04"} {
		store.objects["flexinvest-backup-2020-01-"+day+"-000000.tar.gz"] = []byte("x")
	}

	svc := NewBackupService(nil, store, t.TempDir(), 0, "1.0.0", zerolog.Nop())
	deleted, err := svc.RotateOldBackups(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
	assert.Len(t, store.objects, 4)
}

func TestRotateOldBackupsContinuesPastDeleteErrors(t *testing.T) {
	store := newMemoryStore()
	store.failDel = true
	for _, day := range []string{"01", "02", "03", "04", "05"} {
		store.objects["flexinvest-backup-2020-01-"+day+"-000000.tar.gz"] = []byte("x")
	}

	svc := NewBackupService(nil, store, t.TempDir(), 1, "1.0.0", zerolog.Nop())
	deleted, err := svc.RotateOldBackups(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
