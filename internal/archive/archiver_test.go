package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryObject struct {
	body         []byte
	contentType  string
	lastModified time.Time
}

// memoryStore is an in-memory ObjectStore.
type memoryStore struct {
	mu        sync.Mutex
	objects   map[string]memoryObject
	now       time.Time
	uploadErr error
	deleteErr map[string]error
}

func newMemoryStore(now time.Time) *memoryStore {
	return &memoryStore{objects: make(map[string]memoryObject), now: now, deleteErr: map[string]error{}}
}

func (m *memoryStore) Upload(_ context.Context, key string, body io.Reader, contentType string) error {
	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memoryObject{body: data, contentType: contentType, lastModified: m.now}
	return nil
}

func (m *memoryStore) List(_ context.Context, prefix string) ([]types.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []types.Object
	for key, obj := range m.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.body))),
			LastModified: aws.Time(obj.lastModified),
		})
	}
	return out, nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryStore) put(key string, age time.Duration) {
	m.objects[key] = memoryObject{body: []byte("{}"), lastModified: m.now.Add(-age)}
}

var archiveNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestArchiver(store ObjectStore) *Archiver {
	a := New(store, zerolog.Nop())
	a.now = func() time.Time { return archiveNow }
	return a
}

func TestArchiver_Store(t *testing.T) {
	store := newMemoryStore(archiveNow)
	a := newTestArchiver(store)

	report := map[string]any{"symbol": "VFIAX", "weights": map[string]float64{"IWB": 1}}
	require.NoError(t, a.Store(context.Background(), "reports/VFIAX/2024-03/abc.json", report))

	obj, ok := store.objects["reports/VFIAX/2024-03/abc.json"]
	require.True(t, ok)
	assert.Equal(t, "application/json", obj.contentType)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(obj.body, &decoded))
	assert.Equal(t, "VFIAX", decoded["symbol"])
}

func TestArchiver_StoreErrors(t *testing.T) {
	store := newMemoryStore(archiveNow)
	a := newTestArchiver(store)

	assert.Error(t, a.Store(context.Background(), "reports/bad.json", make(chan int)))

	store.uploadErr = errors.New("bucket unavailable")
	assert.ErrorIs(t, a.Store(context.Background(), "reports/x.json", 1), store.uploadErr)
}

func TestArchiver_ListNewestFirst(t *testing.T) {
	store := newMemoryStore(archiveNow)
	store.put("reports/A/2024-01/old.json", 48*time.Hour)
	store.put("reports/A/2024-03/new.json", time.Hour)
	store.put("other/ignored.json", 0)

	infos, err := newTestArchiver(store).List(context.Background(), ReportPrefix)
	require.NoError(t, err)

	require.Len(t, infos, 2)
	assert.Equal(t, "reports/A/2024-03/new.json", infos[0].Key)
	assert.Equal(t, "reports/A/2024-01/old.json", infos[1].Key)
	assert.Equal(t, int64(2), infos[0].SizeBytes)
}

func TestArchiver_Rotate(t *testing.T) {
	day := 24 * time.Hour

	t.Run("zero retention keeps everything", func(t *testing.T) {
		store := newMemoryStore(archiveNow)
		store.put("reports/A/old.json", 1000*day)

		deleted, err := newTestArchiver(store).Rotate(context.Background(), 0)
		require.NoError(t, err)
		assert.Zero(t, deleted)
		assert.Len(t, store.objects, 1)
	})

	t.Run("deletes past the cutoff", func(t *testing.T) {
		store := newMemoryStore(archiveNow)
		store.put("reports/A/old.json", 40*day)
		store.put("reports/A/recent.json", 10*day)
		store.put("reports/B/stuck.json", 60*day)
		store.deleteErr["reports/B/stuck.json"] = errors.New("denied")

		deleted, err := newTestArchiver(store).Rotate(context.Background(), 30)
		require.NoError(t, err)

		assert.Equal(t, 1, deleted)
		assert.Contains(t, store.objects, "reports/A/recent.json")
		assert.Contains(t, store.objects, "reports/B/stuck.json")
		assert.NotContains(t, store.objects, "reports/A/old.json")
	})
}

func TestRotationJob(t *testing.T) {
	store := newMemoryStore(archiveNow)
	store.put("reports/A/old.json", 400*24*time.Hour)

	job := NewRotationJob(newTestArchiver(store), 365, zerolog.Nop())

	assert.Equal(t, "archive_rotation", job.Name())
	require.NoError(t, job.Run())
	assert.Empty(t, store.objects)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Store(context.Background(), "reports/x.json", struct{}{}))
}

func TestR2Config_Endpoint(t *testing.T) {
	cfg := R2Config{AccountID: "abc123"}
	assert.Equal(t, "https://abc123.r2.cloudflarestorage.com", cfg.Endpoint())
}
