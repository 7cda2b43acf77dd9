package cleanup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

type mockSessionPurger struct {
	mu      sync.Mutex
	calls   int
	cutoffs []time.Time
	deleted int64
	err     error
}

func (m *mockSessionPurger) DeleteIssuedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.cutoffs = append(m.cutoffs, cutoff)
	return m.deleted, m.err
}

func (m *mockSessionPurger) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockAuditPurger struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (m *mockAuditPurger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.cutoff = cutoff
	return m.deleted, m.err
}

type mockViewEvictor struct {
	before time.Time
	closed int
}

func (m *mockViewEvictor) CloseIdle(before time.Time) int {
	m.before = before
	return m.closed
}

var jobNow = time.Date(2026, 10, 16, 3, 0, 0, 0, time.UTC)

func newTestJob(buf *bytes.Buffer, sessions SessionPurger, audit AuditPurger, views ViewEvictor) *CleanupJob {
	logger := slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	job := NewCleanupJob(sessions, audit, views, logger)
	job.nowFunc = func() time.Time { return jobNow }
	return job
}

func TestNewCleanupJob_Defaults(t *testing.T) {
	job := NewCleanupJob(&mockSessionPurger{}, &mockAuditPurger{}, nil, slog.Default())
	if job.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", job.SessionTTL)
	}
	if job.RetentionDays != 90 {
		t.Errorf("RetentionDays = %d, want 90", job.RetentionDays)
	}
}

func TestCleanupJob_Run_UsesCutoffs(t *testing.T) {
	var buf bytes.Buffer
	sessions := &mockSessionPurger{deleted: 3}
	audit := &mockAuditPurger{deleted: 10}
	views := &mockViewEvictor{closed: 2}

	job := newTestJob(&buf, sessions, audit, views)
	job.SessionTTL = 12 * time.Hour
	job.RetentionDays = 30

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if want := jobNow.Add(-12 * time.Hour); !sessions.cutoffs[0].Equal(want) {
		t.Errorf("session cutoff = %v, want %v", sessions.cutoffs[0], want)
	}
	if want := jobNow.AddDate(0, 0, -30); !audit.cutoff.Equal(want) {
		t.Errorf("audit cutoff = %v, want %v", audit.cutoff, want)
	}
	if want := jobNow.Add(-12 * time.Hour); !views.before.Equal(want) {
		t.Errorf("view cutoff = %v, want %v", views.before, want)
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("ログのJSONパースに失敗: %v\nraw: %s", err, buf.String())
	}
	if entry["deleted_sessions"] != float64(3) {
		t.Errorf("deleted_sessions = %v, want 3", entry["deleted_sessions"])
	}
	if entry["deleted_audit_entries"] != float64(10) {
		t.Errorf("deleted_audit_entries = %v, want 10", entry["deleted_audit_entries"])
	}
	if entry["closed_views"] != float64(2) {
		t.Errorf("closed_views = %v, want 2", entry["closed_views"])
	}
}

func TestCleanupJob_Run_ContinuesAfterFailure(t *testing.T) {
	var buf bytes.Buffer
	dbErr := errors.New("connection refused")
	sessions := &mockSessionPurger{err: dbErr}
	audit := &mockAuditPurger{}

	job := newTestJob(&buf, sessions, audit, nil)
	err := job.Run(context.Background())

	if !errors.Is(err, dbErr) {
		t.Errorf("error = %v, want wrapping %v", err, dbErr)
	}
	if audit.cutoff.IsZero() {
		t.Error("セッション削除が失敗しても監査ログ削除は実行されるべき")
	}
	if !strings.Contains(buf.String(), "期限切れセッションの削除に失敗しました") {
		t.Errorf("エラーログが出力されていない: %s", buf.String())
	}
}

func TestCleanupJob_Start_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	var buf bytes.Buffer
	sessions := &mockSessionPurger{}
	job := newTestJob(&buf, sessions, &mockAuditPurger{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx, time.Hour)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sessions.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("起動直後のRunが実行されない")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
