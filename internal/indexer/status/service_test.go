package status

import (
	"context"
	"errors"
	"testing"

	"github.com/sabueso/sabueso/internal/testutil"
)

type recordingHub struct {
	events []string
}

func (h *recordingHub) Broadcast(msgType string, payload interface{}) error {
	h.events = append(h.events, msgType)
	return nil
}

func TestGetHealthUnchecked(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Store, testutil.NopLogger())

	health, err := svc.GetHealth(context.Background(), "dontorrent", "DonTorrent")
	if err != nil {
		t.Fatalf("GetHealth() error = %v", err)
	}
	if health.Status != HealthStatusUnknown {
		t.Errorf("GetHealth() Status = %q, want unknown", health.Status)
	}
	if health.Message != "Not checked yet" {
		t.Errorf("GetHealth() Message = %q, want Not checked yet", health.Message)
	}
}

func TestRecordSuccess(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Store, testutil.NopLogger())
	ctx := context.Background()

	if err := svc.RecordSuccess(ctx, "dontorrent", "DonTorrent"); err != nil {
		t.Fatalf("RecordSuccess() error = %v", err)
	}

	health, err := svc.GetHealth(ctx, "dontorrent", "DonTorrent")
	if err != nil {
		t.Fatalf("GetHealth() error = %v", err)
	}
	if health.Status != HealthStatusHealthy {
		t.Errorf("GetHealth() Status = %q, want healthy", health.Status)
	}
	if health.Message != "Operating normally" {
		t.Errorf("GetHealth() Message = %q, want Operating normally", health.Message)
	}
	if health.LastCheck == nil || health.LastSuccess == nil {
		t.Errorf("GetHealth() timestamps = %v/%v, want both set", health.LastCheck, health.LastSuccess)
	}
}

func TestRecordFailureIncrementsCount(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Store, testutil.NopLogger())
	ctx := context.Background()
	opErr := errors.New("connection refused")

	for i := 0; i < 2; i++ {
		if err := svc.RecordFailure(ctx, "dontorrent", "DonTorrent", opErr); err != nil {
			t.Fatalf("RecordFailure() error = %v", err)
		}
	}

	health, err := svc.GetHealth(ctx, "dontorrent", "DonTorrent")
	if err != nil {
		t.Fatalf("GetHealth() error = %v", err)
	}
	if health.Status != HealthStatusFailing {
		t.Errorf("GetHealth() Status = %q, want failing", health.Status)
	}
	if health.FailureCount != 2 {
		t.Errorf("GetHealth() FailureCount = %d, want 2", health.FailureCount)
	}
	if health.Message != "2 consecutive failure(s)" {
		t.Errorf("GetHealth() Message = %q, want 2 consecutive failure(s)", health.Message)
	}
	if health.LastError != "connection refused" {
		t.Errorf("GetHealth() LastError = %q, want connection refused", health.LastError)
	}
}

func TestRecoveryClearsFailures(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Store, testutil.NopLogger())
	ctx := context.Background()

	if err := svc.RecordFailure(ctx, "dontorrent", "DonTorrent", errors.New("timeout")); err != nil {
		t.Fatalf("RecordFailure() error = %v", err)
	}
	if err := svc.RecordSuccess(ctx, "dontorrent", "DonTorrent"); err != nil {
		t.Fatalf("RecordSuccess() error = %v", err)
	}

	health, err := svc.GetHealth(ctx, "dontorrent", "DonTorrent")
	if err != nil {
		t.Fatalf("GetHealth() error = %v", err)
	}
	if health.Status != HealthStatusHealthy {
		t.Errorf("GetHealth() Status = %q, want healthy after recovery", health.Status)
	}
	if health.FailureCount != 0 {
		t.Errorf("GetHealth() FailureCount = %d, want 0 after recovery", health.FailureCount)
	}
}

func TestBroadcastsOnlyOnTransition(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	hub := &recordingHub{}
	svc := NewService(tdb.Store, testutil.NopLogger())
	svc.SetHub(hub)
	ctx := context.Background()

	svc.RecordSuccess(ctx, "dontorrent", "DonTorrent")
	svc.RecordSuccess(ctx, "dontorrent", "DonTorrent")
	svc.RecordFailure(ctx, "dontorrent", "DonTorrent", errors.New("boom"))
	svc.RecordFailure(ctx, "dontorrent", "DonTorrent", errors.New("boom"))
	svc.RecordSuccess(ctx, "dontorrent", "DonTorrent")

	// unknown->healthy, healthy->failing, failing->healthy
	if len(hub.events) != 3 {
		t.Errorf("Broadcast called %d times, want 3: %v", len(hub.events), hub.events)
	}
}

func TestComputeStats(t *testing.T) {
	healths := []*IndexerHealth{
		{Status: HealthStatusHealthy},
		{Status: HealthStatusHealthy},
		{Status: HealthStatusFailing},
		{Status: HealthStatusUnknown},
	}

	stats := ComputeStats(healths)
	if stats.TotalIndexers != 4 {
		t.Errorf("ComputeStats() TotalIndexers = %d, want 4", stats.TotalIndexers)
	}
	if stats.HealthyIndexers != 2 {
		t.Errorf("ComputeStats() HealthyIndexers = %d, want 2", stats.HealthyIndexers)
	}
	if stats.FailingIndexers != 1 {
		t.Errorf("ComputeStats() FailingIndexers = %d, want 1", stats.FailingIndexers)
	}
	if stats.UncheckedIndexers != 1 {
		t.Errorf("ComputeStats() UncheckedIndexers = %d, want 1", stats.UncheckedIndexers)
	}
}
