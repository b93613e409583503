package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

type fakeResult struct {
	rowsAffected int64
}

func (r *fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (r *fakeResult) RowsAffected() (int64, error) { return r.rowsAffected, nil }

// Executor インターフェースに対するモック実装
type mockExecutor struct {
	execCalled bool
	query      string
	args       []interface{}
	result     sql.Result
	err        error
}

func (m *mockExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	m.execCalled = true
	m.query = query
	m.args = args
	return m.result, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func TestSessionCleanupJob_Run_ExecutesDeleteQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 5},
	}
	job := NewSessionCleanupJob(mock, logger)

	err := job.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() がエラーを返した: %v", err)
	}

	if !mock.execCalled {
		t.Fatal("ExecContext が呼び出されなかった")
	}

	if !strings.Contains(mock.query, "DELETE FROM sessions") {
		t.Errorf("クエリに 'DELETE FROM sessions' が含まれていない: %s", mock.query)
	}
	if !strings.Contains(mock.query, "expires_at") {
		t.Errorf("クエリに 'expires_at' 条件が含まれていない: %s", mock.query)
	}
}

func TestSessionCleanupJob_Run_PassesCurrentTime(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 0},
	}
	job := NewSessionCleanupJob(mock, logger)

	before := time.Now()
	_ = job.Run(context.Background())
	after := time.Now()

	if len(mock.args) < 1 {
		t.Fatal("ExecContext に引数が渡されなかった")
	}

	cutoff, ok := mock.args[0].(time.Time)
	if !ok {
		t.Fatalf("第1引数が time.Time ではない: %T", mock.args[0])
	}
	if cutoff.Before(before) || cutoff.After(after) {
		t.Errorf("期限判定の時刻が現在時刻ではない: %v", cutoff)
	}
}

func TestSessionCleanupJob_Run_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 42},
	}
	job := NewSessionCleanupJob(mock, logger)

	_ = job.Run(context.Background())

	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, ok := entry["deleted_count"]; ok {
			if count == float64(42) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestSessionCleanupJob_Run_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: nil,
		err:    sql.ErrConnDone,
	}
	job := NewSessionCleanupJob(mock, logger)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に Run() は nil でないエラーを返すべき")
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", logOutput)
	}
}

func TestSessionCleanupJob_Run_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 0},
	}
	job := NewSessionCleanupJob(mock, logger)

	// 削除対象がなくてもエラーにならない
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("1回目の Run() がエラーを返した: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("2回目の Run() がエラーを返した: %v", err)
	}
}

func TestSessionCleanupJob_Run_LogsExecutionTime(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	mock := &mockExecutor{
		result: &fakeResult{rowsAffected: 3},
	}
	job := NewSessionCleanupJob(mock, logger)

	_ = job.Run(context.Background())

	var entry map[string]interface{}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	found := false
	for _, line := range lines {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if _, ok := entry["duration_ms"]; ok {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
	}
}
