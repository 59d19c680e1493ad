package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeineian/akeome/gate"
	"github.com/leeineian/akeome/ledger"
	"github.com/leeineian/akeome/store"
	"github.com/leeineian/akeome/sys"
	"github.com/leeineian/akeome/threadline"
)

type memStore struct {
	mu      sync.Mutex
	doc     *store.Document
	loadErr error
	saveErr error
	saves   int
}

func (s *memStore) Name() string { return "memory" }

func (s *memStore) Load(context.Context) (*store.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.doc == nil {
		return nil, store.ErrNotFound
	}
	return s.doc, nil
}

func (s *memStore) Save(_ context.Context, doc *store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.doc = doc
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) saved() (*store.Document, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc, s.saves
}

var jst = time.FixedZone("UTC+9", 9*60*60)

func newTestApp(t *testing.T, st store.Store) *App {
	t.Helper()
	cfg := &sys.Config{ResetOffsetHours: 9, ThreadRatePerMinute: 30, CommandPrefix: "!"}
	now := time.Date(2026, 1, 1, 0, 0, 30, 0, jst)
	a := New(cfg, st, sys.NewMetrics(), ledger.WithClock(func() time.Time { return now }))

	ctx, cancel := context.WithCancel(context.Background())
	go a.Queue.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-a.Queue.Done()
	})
	return a
}

func TestLoadMissingDocumentSavesCleanState(t *testing.T) {
	st := &memStore{}
	a := newTestApp(t, st)

	require.NoError(t, a.Load(context.Background()))

	doc, saves := st.saved()
	assert.Equal(t, 1, saves)
	require.NotNil(t, doc)
	assert.Empty(t, doc.FirstWinners)
	assert.Nil(t, doc.StartDate)
}

func TestLoadMalformedDocumentIsReplaced(t *testing.T) {
	st := &memStore{loadErr: fmt.Errorf("decode: %w", store.ErrMalformed)}
	a := newTestApp(t, st)

	require.NoError(t, a.Load(context.Background()))
	_, saves := st.saved()
	assert.Equal(t, 1, saves)
}

func TestLoadTransportErrorIsReturned(t *testing.T) {
	st := &memStore{loadErr: errors.New("connection refused")}
	a := newTestApp(t, st)

	err := a.Load(context.Background())
	require.Error(t, err)
	_, saves := st.saved()
	assert.Zero(t, saves)
}

func TestCloseAfterFailedLoadKeepsStoredState(t *testing.T) {
	stored := &store.Document{
		FirstWinners: map[string]string{"2025-01-01": "111"},
		History:      map[string]map[string]string{},
	}
	st := &memStore{doc: stored, loadErr: errors.New("connection reset")}
	a := newTestApp(t, st)

	require.Error(t, a.Load(context.Background()))
	a.Close(context.Background())

	doc, saves := st.saved()
	assert.Zero(t, saves)
	assert.Same(t, stored, doc)
	assert.Equal(t, map[string]string{"2025-01-01": "111"}, doc.FirstWinners)
}

func TestCloseAfterLoadFlushes(t *testing.T) {
	st := &memStore{doc: store.NewDocument()}
	a := newTestApp(t, st)
	ctx := context.Background()

	require.NoError(t, a.Load(ctx))
	require.NoError(t, a.Do(ctx, func() {
		a.Ledger.RecordTrigger(1200000000000000001, 1100000000000000001, time.Date(2026, 1, 1, 0, 0, 1, 0, jst))
	}))
	a.Close(ctx)

	doc, saves := st.saved()
	assert.Equal(t, 1, saves)
	assert.Equal(t, "1200000000000000001", doc.FirstWinners["2026-01-01"])
}

func TestLoadRestoresState(t *testing.T) {
	start := "2026-01-01"
	channel := "1100000000000000001"
	st := &memStore{doc: &store.Document{
		FirstWinners: map[string]string{"2026-01-01": "1200000000000000001"},
		History: map[string]map[string]string{
			"2026-01-01": {"1200000000000000001": "2026-01-01T00:00:01+09:00"},
		},
		LastChannelID:      &channel,
		StartDate:          &start,
		ThreadlineSettings: map[string][]string{channel: {"message", "file"}},
	}}
	a := newTestApp(t, st)

	require.NoError(t, a.Load(context.Background()))

	var (
		ranking []ledger.Entry
		set     threadline.Set
	)
	require.NoError(t, a.Do(context.Background(), func() {
		ranking = a.Ledger.TodayRanking()
		set = a.Threadline.Get(snowflake.MustParse(channel))
	}))
	require.Len(t, ranking, 1)
	assert.Equal(t, snowflake.ID(1200000000000000001), ranking[0].UserID)
	assert.Equal(t, threadline.NewSet(threadline.CategoryMessage, threadline.CategoryFile), set)

	_, saves := st.saved()
	assert.Zero(t, saves, "a clean document is not rewritten")
}

func TestPersistWritesSnapshot(t *testing.T) {
	st := &memStore{}
	a := newTestApp(t, st)
	ctx := context.Background()

	require.NoError(t, a.Do(ctx, func() {
		a.Ledger.RecordTrigger(1200000000000000001, 1100000000000000001, time.Date(2026, 1, 1, 0, 0, 1, 0, jst))
		a.Threadline.Enable(1100000000000000001, threadline.NewSet(threadline.CategoryLink))
	}))
	require.NoError(t, a.Persist(ctx))

	doc, _ := st.saved()
	assert.Equal(t, "1200000000000000001", doc.FirstWinners["2026-01-01"])
	assert.Equal(t, []string{"link"}, doc.ThreadlineSettings["1100000000000000001"])
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.StoreSaves.WithLabelValues("ok")))
}

func TestWriteSkipsStaleSnapshots(t *testing.T) {
	st := &memStore{}
	a := newTestApp(t, st)
	ctx := context.Background()

	newer := store.NewDocument()
	newer.FirstWinners["2026-01-02"] = "1"
	older := store.NewDocument()

	require.NoError(t, a.write(ctx, 2, newer))
	require.NoError(t, a.write(ctx, 1, older))

	doc, saves := st.saved()
	assert.Equal(t, 1, saves)
	assert.Same(t, newer, doc)
}

func TestFailedWriteIsRetriedByNextPersist(t *testing.T) {
	st := &memStore{saveErr: errors.New("disk full")}
	a := newTestApp(t, st)
	ctx := context.Background()

	require.Error(t, a.Persist(ctx))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.Metrics.StoreSaves.WithLabelValues("error")))

	st.mu.Lock()
	st.saveErr = nil
	st.mu.Unlock()

	require.NoError(t, a.Persist(ctx))
	_, saves := st.saved()
	assert.Equal(t, 2, saves)
}

func TestConcurrentPersistKeepsNewest(t *testing.T) {
	st := &memStore{}
	a := newTestApp(t, st)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = a.Do(ctx, func() {
				a.Threadline.Enable(snowflake.ID(n), threadline.NewSet(threadline.CategoryMessage))
			})
			_ = a.Persist(ctx)
		}(i)
	}
	wg.Wait()

	doc, saves := st.saved()
	assert.LessOrEqual(t, saves, 20)
	assert.Len(t, doc.ThreadlineSettings, 20)
}

func TestAllowedBeforeAttach(t *testing.T) {
	a := newTestApp(t, &memStore{})
	assert.False(t, a.Allowed(1, gate.SendMessages))
}

func TestMemberNameWithoutClient(t *testing.T) {
	a := newTestApp(t, &memStore{})
	assert.Equal(t, "ユーザーID:1200000000000000001", a.MemberName(1, 1200000000000000001))
}
