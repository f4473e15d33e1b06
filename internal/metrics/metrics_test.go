package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsProvider struct {
	mu    sync.Mutex
	stats Stats
	calls int
}

func (m *mockStatsProvider) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.stats
}

func (m *mockStatsProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestCollectSetsCategoryGauges(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{TotalImages: 7, Images: 5, Grids: 2}}
	collector := NewCollector(provider, time.Minute)

	collector.collect()

	if got := testutil.ToFloat64(IndexImagesTotal.WithLabelValues("image")); got != 5 {
		t.Errorf("image gauge = %v, want 5", got)
	}
	if got := testutil.ToFloat64(IndexImagesTotal.WithLabelValues("grid")); got != 2 {
		t.Errorf("grid gauge = %v, want 2", got)
	}
}

func TestCollectWithNilProvider(t *testing.T) {
	collector := NewCollector(nil, time.Minute)

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("collect() with nil provider panicked: %v", r)
		}
	}()
	collector.collect()
}

func TestCollectorStartCollectsImmediately(t *testing.T) {
	provider := &mockStatsProvider{stats: Stats{TotalImages: 1, Images: 1}}
	collector := NewCollector(provider, time.Hour)

	collector.Start()
	defer collector.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for provider.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("collector did not collect on start")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCollectorMultipleStops(t *testing.T) {
	collector := NewCollector(&mockStatsProvider{}, 10*time.Millisecond)
	collector.Start()

	defer func() {
		if r := recover(); r != nil {
			t.Errorf("second Stop() panicked: %v", r)
		}
	}()
	collector.Stop()
	collector.Stop()
}

func TestFilesystemObserverRecords(t *testing.T) {
	observer := NewFilesystemObserver()

	before := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("images", "stat"))
	observer.ObserveOperation("images", "stat", 0.001, nil)
	observer.ObserveOperation("images", "stat", 0.002, errors.New("boom"))
	after := testutil.ToFloat64(FilesystemOperationErrors.WithLabelValues("images", "stat"))
	if after-before != 1 {
		t.Errorf("operation errors increased by %v, want 1", after-before)
	}

	beforeRetry := testutil.ToFloat64(FilesystemRetryAttempts.WithLabelValues("open", "images"))
	observer.ObserveRetryAttempt("open", "images")
	observer.ObserveStaleError("open", "images")
	observer.ObserveRetrySuccess("open", "images")
	observer.ObserveRetryFailure("open", "images")
	afterRetry := testutil.ToFloat64(FilesystemRetryAttempts.WithLabelValues("open", "images"))
	if afterRetry-beforeRetry != 1 {
		t.Errorf("retry attempts increased by %v, want 1", afterRetry-beforeRetry)
	}
}

func TestInitializeMetricsIdempotent(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("InitializeMetrics() panicked: %v", r)
		}
	}()

	InitializeMetrics()
	InitializeMetrics()

	if n := testutil.CollectAndCount(IndexImagesTotal); n != 2 {
		t.Errorf("IndexImagesTotal series = %d, want 2", n)
	}
	if n := testutil.CollectAndCount(MetadataExtractionsTotal); n != 4 {
		t.Errorf("MetadataExtractionsTotal series = %d, want 4", n)
	}
}

func TestSetAppInfo(t *testing.T) {
	SetAppInfo("1.2.3", "abc123", "go1.25")

	if got := testutil.ToFloat64(AppInfo.WithLabelValues("1.2.3", "abc123", "go1.25")); got != 1 {
		t.Errorf("AppInfo = %v, want 1", got)
	}
}
