package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-token-radar/internal/domain"
)

func TestBuild_StartOrderAndFlags(t *testing.T) {
	settings := []Settings{
		{Name: NameBoost, Enabled: true, Interval: time.Minute, Multiplier: 3},
		{Name: NameScanning, Enabled: false, Interval: time.Minute},
		{Name: NamePolling, Enabled: true, Interval: time.Minute},
		{Name: NameWebSocket, Enabled: true, Required: true},
	}

	entries, err := Build(settings, testDeps())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := []string{NameWebSocket, NamePolling, NameBoost}
	if len(entries) != len(want) {
		t.Fatalf("expected %d strategies, got %d", len(want), len(entries))
	}
	for i, name := range want {
		if got := entries[i].Strategy.Name(); got != name {
			t.Errorf("position %d: expected %s, got %s", i, name, got)
		}
	}
	if !entries[0].Required || entries[1].Required {
		t.Error("required flag not carried through")
	}

	boost, ok := entries[2].Strategy.(*BoostStrategy)
	if !ok {
		t.Fatalf("expected *BoostStrategy, got %T", entries[2].Strategy)
	}
	if boost.cfg.Interval != 3*time.Minute {
		t.Errorf("expected boost interval 3m, got %v", boost.cfg.Interval)
	}
}

func TestBuild_Errors(t *testing.T) {
	if _, err := Build([]Settings{{Name: "telepathy", Enabled: true}}, testDeps()); !errors.Is(err, ErrUnknownStrategy) {
		t.Errorf("expected ErrUnknownStrategy, got %v", err)
	}
	if _, err := Build([]Settings{{Name: NamePolling, Enabled: true}}, testDeps()); !errors.Is(err, ErrMissingInterval) {
		t.Errorf("expected ErrMissingInterval, got %v", err)
	}
}

func TestNew_Sources(t *testing.T) {
	tests := []struct {
		name   string
		source domain.Source
	}{
		{NameWebSocket, domain.SourceWebSocket},
		{NamePolling, domain.SourcePolling},
		{NameScanning, domain.SourceChainScan},
		{NameBoost, domain.SourceBoost},
	}
	for _, tt := range tests {
		s, err := New(Settings{Name: tt.name, Interval: time.Second}, testDeps())
		if err != nil {
			t.Fatalf("New(%s): %v", tt.name, err)
		}
		if s.Source() != tt.source {
			t.Errorf("%s: expected source %s, got %s", tt.name, tt.source, s.Source())
		}
	}
}

func TestBase_StatusFollowsRunContext(t *testing.T) {
	b := newBase("test", domain.SourceUnknown, testDeps())
	parent, cancel := context.WithCancel(context.Background())
	if _, err := b.begin(parent); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !b.Status().Running {
		t.Fatal("expected running after begin")
	}

	cancel()
	if b.Status().Running {
		t.Fatal("status must not report running once the run context ends")
	}
	if _, err := b.begin(context.Background()); err != ErrAlreadyRunning {
		t.Fatalf("begin before Stop: got %v, want ErrAlreadyRunning", err)
	}

	if !b.end() {
		t.Fatal("end should still release the ended run")
	}
	if _, err := b.begin(context.Background()); err != nil {
		t.Fatalf("restart after Stop: %v", err)
	}
	b.end()
}

func TestBase_EmitAfterStopIsDropped(t *testing.T) {
	b := newBase("test", domain.SourceUnknown, testDeps())
	ctx, err := b.begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	if !b.emit(ctx, domain.DetectionResult{Records: []*domain.CandidateRecord{{Address: testMint}}, Duration: 10 * time.Millisecond}) {
		t.Fatal("emit while running should succeed")
	}
	if !b.emit(ctx, domain.DetectionResult{Duration: 30 * time.Millisecond}) {
		t.Fatal("emit while running should succeed")
	}

	st := b.Status()
	if st.TotalDetected != 1 || st.AvgProcessingTime != 20*time.Millisecond {
		t.Errorf("unexpected status: %+v", st)
	}

	if !b.end() {
		t.Fatal("end should report a running strategy")
	}
	if b.end() {
		t.Fatal("second end should be a no-op")
	}
	if b.emit(ctx, domain.DetectionResult{Records: []*domain.CandidateRecord{{Address: testMint2}}}) {
		t.Fatal("emit after stop must be dropped")
	}
	if got := b.Status().TotalDetected; got != 1 {
		t.Errorf("late emit must not count, got %d", got)
	}
}
