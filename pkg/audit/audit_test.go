package audit_test

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wanctl/wanctl/pkg/audit"
)

func TestLog_RecordAndSummary(t *testing.T) {
	l := audit.New(zerolog.Nop(), 10)
	l.RouterWrite("set-rate", "dl-primary", nil)
	l.RouterWrite("set-rate", "ul-primary", errors.New("ssh: eof"))
	l.SteeringTransition("PRIMARY_GOOD", "PRIMARY_DEGRADED", false)

	summary := l.GetSummary()
	if summary.Total != 3 {
		t.Fatalf("Total = %d, want 3", summary.Total)
	}
	if summary.Succeeded != 2 {
		t.Errorf("Succeeded = %d, want 2", summary.Succeeded)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
}

func TestLog_EvictsOldestAtCapacity(t *testing.T) {
	l := audit.New(zerolog.Nop(), 3)
	for i := 0; i < 5; i++ {
		l.RouterWrite("set-rate", "dl", nil)
	}
	entries := l.Entries(0)
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3 (capacity)", len(entries))
	}
}

func TestLog_DryRunDetail(t *testing.T) {
	l := audit.New(zerolog.Nop(), 10)
	l.SteeringTransition("PRIMARY_GOOD", "PRIMARY_DEGRADED", true)
	entries := l.Entries(1)
	if entries[0].Detail == "" {
		t.Error("Detail = \"\", want dry-run note")
	}
}
