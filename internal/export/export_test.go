package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/strmgen/internal/domain"
	"github.com/John-Robertt/strmgen/internal/infra/fsx"
)

type recordSink struct {
	mu      sync.Mutex
	names   []string
	payload map[string]string
	failOn  map[string]error
}

func newRecordSink() *recordSink {
	return &recordSink{payload: map[string]string{}, failOn: map[string]error{}}
}

func (s *recordSink) Deliver(ctx context.Context, name string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, name)
	if err, ok := s.failOn[name]; ok {
		return err
	}
	s.payload[name] = string(payload)
	return nil
}

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []time.Duration
	)
	old := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		seen = append(seen, d)
		mu.Unlock()
		return ctx.Err()
	}
	t.Cleanup(func() { sleepFunc = old })
	return &seen
}

func records(n int) []domain.PointerRecord {
	out := make([]domain.PointerRecord, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, domain.PointerRecord{
			Name:   "v" + string(rune('0'+i)) + ".strm",
			Target: "https://h/" + string(rune('0'+i)),
			Line:   i,
		})
	}
	return out
}

func TestPayload_IsExactlyTarget(t *testing.T) {
	got := Payload(domain.PointerRecord{Name: "a.strm", Target: "/webdav/https://h/v"})
	assert.Equal(t, []byte("/webdav/https://h/v"), got)
}

func TestExportOne_DeliversSynchronously(t *testing.T) {
	sink := newRecordSink()
	var notified []Result
	e := &Exporter{Sink: sink, Notify: func(r Result) { notified = append(notified, r) }}

	res := e.ExportOne(context.Background(), domain.PointerRecord{Name: "电影1.strm", Target: "https://115.com/s/x", Line: 1})

	require.NoError(t, res.Err)
	assert.Equal(t, "https://115.com/s/x", sink.payload["电影1.strm"])
	require.Len(t, notified, 1)
	assert.Equal(t, "电影1.strm", notified[0].File)
}

func TestExportAll_OneDeliveryPerRecordWithIncreasingOffsets(t *testing.T) {
	noSleep(t)
	sink := newRecordSink()
	e := &Exporter{Sink: sink, Policy: Interval{Step: 200 * time.Millisecond}, Limit: 2}

	recs := records(5)
	results, err := e.ExportAll(context.Background(), recs)
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Len(t, sink.names, 5)

	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, recs[i], r.Record)
		assert.NoError(t, r.Err)
		assert.Equal(t, recs[i].Target, sink.payload[recs[i].Name])
		if i > 0 {
			assert.Greater(t, r.Offset, results[i-1].Offset, "偏移必须随下标严格递增")
		}
	}
	assert.Equal(t, 800*time.Millisecond, results[4].Offset)
}

func TestExportAll_RealTimingKeepsOrder(t *testing.T) {
	sink := newRecordSink()
	e := &Exporter{Sink: sink, Policy: Interval{Step: 30 * time.Millisecond}, Limit: 8}

	_, err := e.ExportAll(context.Background(), records(4))
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.strm", "v2.strm", "v3.strm", "v4.strm"}, sink.names)
}

func TestExportAll_FailureDoesNotAbortOthers(t *testing.T) {
	noSleep(t)
	sink := newRecordSink()
	sink.failOn["v2.strm"] = errors.New("disk full")
	e := &Exporter{Sink: sink, Policy: Immediate{}}

	results, err := e.ExportAll(context.Background(), records(3))
	require.NoError(t, err)

	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Len(t, sink.names, 3)

	st, code := results[1].Status()
	assert.Equal(t, domain.StatusFailed, st)
	assert.Equal(t, domain.ErrCodeIOFailed, code)
}

func TestExportAll_CanceledBeforeStart(t *testing.T) {
	noSleep(t)
	sink := newRecordSink()
	e := &Exporter{Sink: sink}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := e.ExportAll(ctx, records(2))
	require.NoError(t, err)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
		st, code := r.Status()
		assert.Equal(t, domain.StatusFailed, st)
		assert.Equal(t, domain.ErrCodeCanceled, code)
	}
	assert.Empty(t, sink.names)
}

func TestPolicy(t *testing.T) {
	p := Interval{Step: 200 * time.Millisecond}
	assert.Equal(t, time.Duration(0), p.Offset(0))
	assert.Equal(t, 600*time.Millisecond, p.Offset(3))
	assert.Equal(t, time.Duration(0), Immediate{}.Offset(7))

	assert.IsType(t, Immediate{}, PolicyFor(time.Second, true))
	assert.IsType(t, Immediate{}, PolicyFor(0, false))
	assert.Equal(t, Interval{Step: time.Second}, PolicyFor(time.Second, false))
}

func TestDirSink_WritesAndSkipsExisting(t *testing.T) {
	noSleep(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1.strm"), []byte("old"), 0o644))

	e := &Exporter{Sink: &DirSink{Dir: dir}}
	results, err := e.ExportAll(context.Background(), records(2))
	require.NoError(t, err)

	st, code := results[0].Status()
	assert.Equal(t, domain.StatusSkipped, st)
	assert.Equal(t, domain.ErrCodeExists, code)

	st, _ = results[1].Status()
	assert.Equal(t, domain.StatusWritten, st)

	b, err := os.ReadFile(filepath.Join(dir, "v2.strm"))
	require.NoError(t, err)
	assert.Equal(t, "https://h/2", string(b))

	b, err = os.ReadFile(filepath.Join(dir, "v1.strm"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(b))
}

func TestDirSink_OverwriteAndLockReleased(t *testing.T) {
	noSleep(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1.strm"), []byte("old"), 0o644))

	e := &Exporter{Sink: &DirSink{Dir: dir, Overwrite: true}}
	results, err := e.ExportAll(context.Background(), records(1))
	require.NoError(t, err)
	require.NoError(t, results[0].Err)

	b, _ := os.ReadFile(filepath.Join(dir, "v1.strm"))
	assert.Equal(t, "https://h/1", string(b))

	unlock, err := fsx.Lock(dir)
	require.NoError(t, err, "批次结束后应释放目录锁")
	_ = unlock()
}

func TestDirSink_LockedDirFailsWholeBatch(t *testing.T) {
	dir := t.TempDir()
	unlock, err := fsx.Lock(dir)
	require.NoError(t, err)
	defer func() { _ = unlock() }()

	e := &Exporter{Sink: &DirSink{Dir: dir}}
	_, err = e.ExportAll(context.Background(), records(1))
	assert.ErrorIs(t, err, fsx.ErrLocked)
}

func TestDirSink_RejectsPathInName(t *testing.T) {
	s := &DirSink{Dir: t.TempDir()}
	err := s.Deliver(context.Background(), "../x.strm", []byte("x"))
	assert.Error(t, err)
}

func TestClassify_TargetConflict(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a.strm"), 0o755))

	err := (&DirSink{Dir: dir}).Deliver(context.Background(), "a.strm", []byte("x"))
	st, code := Classify(err)
	assert.Equal(t, domain.StatusFailed, st)
	assert.Equal(t, domain.ErrCodeTargetConflict, code)
}
