package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stratum-hq/reliq/pkg/engine"
)

func sampleRecord(ruleID string, errText string, age time.Duration) *TraceRecord {
	return &TraceRecord{
		ID:            fmt.Sprintf("rec-%s-%d", ruleID, age),
		RuleID:        ruleID,
		RecordedAt:    time.Now().UTC().Add(-age),
		Executed:      errText == "",
		ConditionsMet: errText == "",
		Elapsed:       3 * time.Millisecond,
		Error:         errText,
	}
}

func seedStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	records := []*TraceRecord{
		sampleRecord("acct_rule_001", "", 3*time.Hour),
		sampleRecord("acct_rule_001", "", 2*time.Hour),
		sampleRecord("acct_rule_002", "division by zero", time.Hour),
	}
	for _, rec := range records {
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
}

func runStoreContract(t *testing.T, s Store) {
	t.Helper()
	seedStore(t, s)
	ctx := context.Background()

	t.Run("query by rule id", func(t *testing.T) {
		recs, err := s.Query(ctx, &Query{RuleID: "acct_rule_001"})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(recs) != 2 {
			t.Fatalf("records = %d, want 2", len(recs))
		}
		// Newest first.
		if recs[0].RecordedAt.Before(recs[1].RecordedAt) {
			t.Errorf("records not ordered newest first")
		}
	})

	t.Run("query errors only", func(t *testing.T) {
		recs, err := s.Query(ctx, &Query{OnlyErrors: true})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(recs) != 1 || recs[0].RuleID != "acct_rule_002" {
			t.Fatalf("records = %+v, want only the failed execution", recs)
		}
	})

	t.Run("query time window", func(t *testing.T) {
		recs, err := s.Query(ctx, &Query{Since: time.Now().UTC().Add(-90 * time.Minute)})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(recs) != 1 {
			t.Errorf("records = %d, want 1 inside window", len(recs))
		}
	})

	t.Run("query limit", func(t *testing.T) {
		recs, err := s.Query(ctx, &Query{Limit: 1})
		if err != nil {
			t.Fatalf("Query() error = %v", err)
		}
		if len(recs) != 1 {
			t.Errorf("records = %d, want 1", len(recs))
		}
	})

	t.Run("count", func(t *testing.T) {
		n, err := s.Count(ctx, nil)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if n != 3 {
			t.Errorf("Count() = %d, want 3", n)
		}
	})

	t.Run("prune", func(t *testing.T) {
		removed, err := s.Prune(ctx, time.Now().UTC().Add(-150*time.Minute))
		if err != nil {
			t.Fatalf("Prune() error = %v", err)
		}
		if removed != 1 {
			t.Errorf("Prune() removed %d, want 1", removed)
		}
		n, _ := s.Count(ctx, nil)
		if n != 2 {
			t.Errorf("Count() after prune = %d, want 2", n)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	runStoreContract(t, s)
}

func TestSQLiteStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	s, err := NewSQLiteStore(&SQLiteConfig{
		Path:         dbPath,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	runStoreContract(t, s)
}

func TestSQLiteStore_TraceRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "traces.db")
	s, err := NewSQLiteStore(&SQLiteConfig{Path: dbPath, MaxOpenConns: 2, MaxIdleConns: 1, WALMode: true, BusyTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	rec := sampleRecord("acct_rule_001", "", 0)
	rec.Trace = []engine.TraceEvent{
		{Timestamp: time.Now().UTC().Format(time.RFC3339Nano), Event: engine.EventRuleStart, RuleID: "acct_rule_001"},
		{Timestamp: time.Now().UTC().Format(time.RFC3339Nano), Event: engine.EventRuleComplete, RuleID: "acct_rule_001"},
	}
	if err := s.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	recs, err := s.Query(ctx, &Query{RuleID: "acct_rule_001"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d, want 1", len(recs))
	}
	if len(recs[0].Trace) != 2 || recs[0].Trace[0].Event != engine.EventRuleStart {
		t.Errorf("trace = %+v, want the two stored events", recs[0].Trace)
	}
}

func TestRecordSetResult(t *testing.T) {
	sr := &engine.SetResult{
		RuleSetID: "s1",
		Results: []*engine.Result{
			{RuleID: "a", Executed: true, ConditionsMet: false},
			{RuleID: "b", Executed: true, ConditionsMet: true},
		},
		Elapsed: time.Millisecond,
	}
	rec := RecordSetResult(sr, nil)
	if rec.ID == "" {
		t.Error("record id not generated")
	}
	if !rec.Executed || !rec.ConditionsMet {
		t.Errorf("record = %+v, want executed with at least one match", rec)
	}
	if rec.RuleSetID != "s1" {
		t.Errorf("RuleSetID = %q, want s1", rec.RuleSetID)
	}
}
