package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/userboard/internal/records"
	"github.com/odyssey-erp/userboard/internal/shared"
)

type stubFetcher struct {
	mu        sync.Mutex
	calls     int
	set       records.Set
	err       error
	release   chan struct{}
	ignoreCtx bool
}

func (s *stubFetcher) List(ctx context.Context) (records.Set, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.release != nil {
		if s.ignoreCtx {
			<-s.release
		} else {
			select {
			case <-s.release:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return s.set, s.err
}

func (s *stubFetcher) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func makeRecords(n int) records.Set {
	set := make(records.Set, n)
	for i := range set {
		id := i + 1
		set[i] = records.Record{
			ID:       id,
			Name:     fmt.Sprintf("User %d", id),
			Username: fmt.Sprintf("user%d", id),
			Email:    fmt.Sprintf("user%d@example.com", id),
			Phone:    fmt.Sprintf("555-%04d", id),
			Website:  fmt.Sprintf("user%d.example", id),
		}
	}
	return set
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func mountedController(t *testing.T, f *stubFetcher) *Controller {
	t.Helper()
	ctrl := NewController(f, Options{Logger: quietLogger()})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = ctrl.Mount(context.Background()).Wait(ctx)
	return ctrl
}

func TestNewControllerStartsEmptyOnFirstPage(t *testing.T) {
	ctrl := NewController(&stubFetcher{}, Options{Logger: quietLogger()})
	snap := ctrl.Snapshot()

	assert.False(t, snap.Ready)
	assert.False(t, snap.Loaded)
	assert.Empty(t, snap.Rows)
	assert.Equal(t, 1, snap.Pagination.Page)
	assert.Equal(t, shared.DefaultPerPage, snap.Pagination.PerPage)
	assert.Equal(t, 0, snap.Pagination.TotalPages)
	assert.Nil(t, ctrl.Load())
}

func TestMountLoadsRecordsAndMarksReady(t *testing.T) {
	f := &stubFetcher{set: makeRecords(25)}
	ctrl := mountedController(t, f)

	snap := ctrl.Snapshot()
	assert.True(t, snap.Ready)
	assert.True(t, snap.Loaded)
	assert.Equal(t, 3, snap.Pagination.TotalPages)
	assert.Equal(t, 25, snap.Pagination.Total)
	require.Len(t, snap.Rows, 10)
	assert.Equal(t, 1, snap.Rows[0].ID)
	assert.NoError(t, ctrl.Load().Err())
}

func TestMountIssuesExactlyOneFetch(t *testing.T) {
	f := &stubFetcher{set: makeRecords(3)}
	ctrl := NewController(f, Options{Logger: quietLogger()})

	first := ctrl.Mount(context.Background())
	second := ctrl.Mount(context.Background())
	require.Same(t, first, second)
	require.NoError(t, first.Wait(context.Background()))

	ctrl.Mount(context.Background())
	assert.Equal(t, 1, f.Calls())
}

func TestMountFailureLeavesWidgetUnpopulated(t *testing.T) {
	upstreamErr := errors.New("connection refused")
	f := &stubFetcher{err: upstreamErr}
	ctrl := NewController(f, Options{Logger: quietLogger()})

	err := ctrl.Mount(context.Background()).Wait(context.Background())
	require.ErrorIs(t, err, upstreamErr)

	snap := ctrl.Snapshot()
	assert.False(t, snap.Ready)
	assert.True(t, snap.Loaded)
	assert.Empty(t, ctrl.Records())
	assert.Equal(t, 0, snap.Pagination.TotalPages)
	assert.Empty(t, snap.Pagination.Pages())
	assert.Equal(t, 1, f.Calls(), "no retry after failure")
}

func TestLoadErrPendingBeforeResolution(t *testing.T) {
	f := &stubFetcher{set: makeRecords(1), release: make(chan struct{})}
	ctrl := NewController(f, Options{Logger: quietLogger()})
	load := ctrl.Mount(context.Background())

	assert.ErrorIs(t, load.Err(), ErrLoadPending)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, load.Wait(ctx), context.DeadlineExceeded)

	close(f.release)
	require.NoError(t, load.Wait(context.Background()))
	assert.NoError(t, load.Err())
}

func TestCloseCancelsInFlightLoad(t *testing.T) {
	f := &stubFetcher{set: makeRecords(5), release: make(chan struct{})}
	ctrl := NewController(f, Options{Logger: quietLogger()})
	load := ctrl.Mount(context.Background())

	ctrl.Close()

	assert.ErrorIs(t, load.Wait(context.Background()), ErrClosed)
	assert.Empty(t, ctrl.Records())
	assert.False(t, ctrl.Snapshot().Ready)
}

func TestLateResultAfterCloseIsDiscarded(t *testing.T) {
	f := &stubFetcher{set: makeRecords(5), release: make(chan struct{}), ignoreCtx: true}
	ctrl := NewController(f, Options{Logger: quietLogger()})
	load := ctrl.Mount(context.Background())

	ctrl.Close()
	close(f.release)

	assert.ErrorIs(t, load.Wait(context.Background()), ErrClosed)
	assert.Empty(t, ctrl.Records())
	assert.False(t, ctrl.Snapshot().Ready)
}

func TestMountAfterCloseResolvesImmediately(t *testing.T) {
	f := &stubFetcher{set: makeRecords(1)}
	ctrl := NewController(f, Options{Logger: quietLogger()})
	ctrl.Close()

	assert.ErrorIs(t, ctrl.Mount(context.Background()).Wait(context.Background()), ErrClosed)
	assert.Equal(t, 0, f.Calls())
}

func TestPagesCoverSetWithoutOverlap(t *testing.T) {
	for _, n := range []int{0, 1, 9, 10, 11, 20, 25, 100} {
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			set := makeRecords(n)
			ctrl := mountedController(t, &stubFetcher{set: set})

			total := ctrl.Snapshot().Pagination.TotalPages
			assert.Equal(t, (n+9)/10, total)

			var seen records.Set
			for p := 1; p <= total; p++ {
				ctrl.SelectPage(p)
				rows := ctrl.Snapshot().Rows
				assert.LessOrEqual(t, len(rows), 10)
				assert.Equal(t, []records.Record(set[(p-1)*10:min(p*10, n)]), rows)
				seen = append(seen, rows...)
			}
			if n == 0 {
				assert.Empty(t, seen)
				return
			}
			assert.Equal(t, set, seen)
		})
	}
}

func TestSelectPageIsIdempotent(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(25)})

	ctrl.SelectPage(2)
	first := ctrl.Snapshot()
	ctrl.SelectPage(2)
	second := ctrl.Snapshot()

	assert.Equal(t, first, second)
	assert.Equal(t, 11, second.Rows[0].ID)
	assert.True(t, second.Pagination.IsActive(2))
}

func TestSelectPageOutOfRangeYieldsEmptySlice(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(25)})

	for _, p := range []int{0, -1, 4, 1 << 40} {
		ctrl.SelectPage(p)
		snap := ctrl.Snapshot()
		assert.Empty(t, snap.Rows, "page %d", p)
		assert.Equal(t, p, snap.Pagination.Page, "page is stored unvalidated")
	}
}

func TestSelectPageForcesReadyAfterFailedLoad(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{err: errors.New("boom")})
	require.False(t, ctrl.Snapshot().Ready)

	ctrl.SelectPage(1)

	snap := ctrl.Snapshot()
	assert.True(t, snap.Ready)
	assert.Empty(t, snap.Rows)
}

func TestSetPageSizeResetsToFirstPage(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(25)})
	ctrl.SelectPage(3)

	require.NoError(t, ctrl.SetPageSize(5))

	snap := ctrl.Snapshot()
	assert.Equal(t, 1, snap.Pagination.Page)
	assert.Equal(t, 5, snap.Pagination.PerPage)
	assert.Equal(t, 5, snap.Pagination.TotalPages)
	assert.Len(t, snap.Rows, 5)

	assert.ErrorIs(t, ctrl.SetPageSize(0), ErrInvalidPageSize)
	assert.Equal(t, 5, ctrl.Snapshot().Pagination.PerPage)
}

func TestEditAndSaveReplacesOnlyTargetRecord(t *testing.T) {
	set := records.Set{
		{ID: 1, Name: "A", Username: "a", Email: "a@example.com", Phone: "1", Website: "a.example"},
		{ID: 2, Name: "B", Username: "b", Email: "b@example.com", Phone: "2", Website: "b.example"},
	}
	ctrl := mountedController(t, &stubFetcher{set: set})

	require.NoError(t, ctrl.OpenEdit(2))
	modal := ctrl.Snapshot().Modal
	assert.Equal(t, ModalView{Open: true, ID: 2, Name: "B", Email: "b@example.com", Username: "b"}, modal)

	require.True(t, ctrl.Stage(FieldName, "Z"))
	require.True(t, ctrl.Save())

	want := records.Set{
		{ID: 1, Name: "A", Username: "a", Email: "a@example.com", Phone: "1", Website: "a.example"},
		{ID: 2, Name: "Z", Username: "b", Email: "b@example.com", Phone: "2", Website: "b.example"},
	}
	assert.Equal(t, want, ctrl.Records())
	assert.False(t, ctrl.Snapshot().Modal.Open)
	assert.Equal(t, "B", set[1].Name, "loaded set is not modified in place")
}

func TestSaveStagesAllFieldsWithoutValidation(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(3)})
	before := ctrl.Records()

	require.NoError(t, ctrl.OpenEdit(3))
	require.True(t, ctrl.StageAll(records.Edit{Name: "", Email: "not-an-email", Username: "x"}))
	require.True(t, ctrl.Save())

	after := ctrl.Records()
	require.Len(t, after, len(before))
	assert.Equal(t, before[:2], after[:2])
	assert.Equal(t, 3, after[2].ID)
	assert.Equal(t, "", after[2].Name)
	assert.Equal(t, "not-an-email", after[2].Email)
	assert.Equal(t, "x", after[2].Username)
	assert.Equal(t, before[2].Phone, after[2].Phone)
}

func TestCancelLeavesRecordsIdentical(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(12)})
	before := ctrl.Records()

	require.NoError(t, ctrl.OpenEdit(4))
	ctrl.Stage(FieldEmail, "changed@example.com")
	ctrl.Stage(FieldUsername, "changed")
	ctrl.Cancel()

	assert.Equal(t, before, ctrl.Records())
	assert.False(t, ctrl.Snapshot().Modal.Open)
	assert.False(t, ctrl.Save(), "staging is gone after cancel")
}

func TestSaveWithoutSelectionIsNoop(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(2)})
	before := ctrl.Records()

	assert.False(t, ctrl.Stage(FieldName, "Z"))
	assert.False(t, ctrl.StageAll(records.Edit{Name: "Z"}))
	assert.False(t, ctrl.Save())
	assert.Equal(t, before, ctrl.Records())
}

func TestOpenEditUnknownRecord(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(2)})

	err := ctrl.OpenEdit(99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.False(t, ctrl.Snapshot().Modal.Open)
}

func TestOpenEditRetargetsOpenModal(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(3)})

	require.NoError(t, ctrl.OpenEdit(1))
	ctrl.Stage(FieldName, "draft")
	require.NoError(t, ctrl.OpenEdit(2))

	modal := ctrl.Snapshot().Modal
	assert.Equal(t, 2, modal.ID)
	assert.Equal(t, "User 2", modal.Name)
}

func TestDeleteNeverMutates(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(11)})
	before := ctrl.Records()

	for _, id := range []int{1, 11, 404} {
		notice := ctrl.Delete(id)
		assert.Equal(t, UnderDevelopment, notice.Message)
		assert.Equal(t, shared.FlashNotice, notice.Kind)
	}
	assert.Equal(t, before, ctrl.Records())
	assert.Len(t, ctrl.Records(), 11)
}

func TestSnapshotRowsShareNoMutableState(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(3)})
	snap := ctrl.Snapshot()

	require.NoError(t, ctrl.OpenEdit(1))
	ctrl.Stage(FieldName, "Z")
	require.True(t, ctrl.Save())

	assert.Equal(t, "User 1", snap.Rows[0].Name)
}

func TestConcurrentEventsAreSerialized(t *testing.T) {
	ctrl := mountedController(t, &stubFetcher{set: makeRecords(50)})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctrl.SelectPage(i%5 + 1)
			_ = ctrl.Snapshot()
			if err := ctrl.OpenEdit(i + 1); err == nil {
				ctrl.Stage(FieldName, fmt.Sprintf("name-%d", i))
				ctrl.Save()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, ctrl.Records(), 50)
}
