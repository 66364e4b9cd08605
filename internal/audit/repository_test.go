package audit

import (
	"context"
	"encoding/json"
	"path/filepath"
	"reflect"
	"regexp"
	"slices"
	"testing"
	"time"

	"github.com/nerrad567/logix-service/internal/infrastructure/config"
	"github.com/nerrad567/logix-service/internal/infrastructure/database"
	"github.com/nerrad567/logix-service/internal/service"
	"github.com/nerrad567/logix-service/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	repo := NewSQLiteRepository(db.DB)
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	var n int
	repo.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Millisecond)
	}
	return repo
}

func sameJSON(t *testing.T, want string, got []byte) {
	t.Helper()
	var w, g any
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("stored JSON %q does not decode: %v", got, err)
	}
	if !reflect.DeepEqual(w, g) {
		t.Errorf("JSON = %s, want %s", got, want)
	}
}

func TestRecord(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.Record(ctx, service.AuditEntry{
		RequestID: "req-1",
		ClientID:  "00a1b2",
		Command:   service.CommandWrite,
		Tags:      []string{"Counter"},
		Msg:       json.RawMessage(`["Counter",5]`),
		Result:    map[string]any{"name": "Counter", "value": 5, "status": "Success"},
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	got, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got.Logs) != 1 {
		t.Fatalf("len(Logs) = %d, want 1", len(got.Logs))
	}

	log := got.Logs[0]
	if !regexp.MustCompile(`^aud-[0-9a-f]{8}$`).MatchString(log.ID) {
		t.Errorf("ID = %q, want aud-<8 hex>", log.ID)
	}
	if log.RequestID != "req-1" || log.ClientID != "00a1b2" || log.Command != "write" {
		t.Errorf("log = %+v", log)
	}
	if !slices.Equal(log.Tags, []string{"Counter"}) {
		t.Errorf("Tags = %v, want [Counter]", log.Tags)
	}
	sameJSON(t, `["Counter",5]`, log.Details)
	sameJSON(t, `{"name":"Counter","value":5,"status":"Success"}`, log.Result)
	if log.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt location = %v, want UTC", log.CreatedAt.Location())
	}
}

func TestCreateDefaults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	log := &AuditLog{RequestID: "req-2", Command: "close"}
	if err := repo.Create(ctx, log); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if log.ID == "" || log.CreatedAt.IsZero() {
		t.Errorf("Create did not fill defaults: %+v", log)
	}

	got, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Logs) != 1 {
		t.Fatalf("len(Logs) = %d, want 1", len(got.Logs))
	}
	stored := got.Logs[0]
	if stored.Tags == nil || len(stored.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil", stored.Tags)
	}
	if stored.Details != nil {
		t.Errorf("Details = %s, want nil", stored.Details)
	}
	if string(stored.Result) != "null" {
		t.Errorf("Result = %s, want null", stored.Result)
	}
}

func TestListFilterAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i, cmd := range []string{"connect", "write", "write", "close"} {
		client := "bb"
		if i%2 == 0 {
			client = "aa"
		}
		err := repo.Create(ctx, &AuditLog{
			RequestID: "req-" + string(rune('a'+i)),
			ClientID:  client,
			Command:   cmd,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	requestIDs := func(logs []AuditLog) []string {
		var ids []string
		for _, l := range logs {
			ids = append(ids, l.RequestID)
		}
		return ids
	}

	tests := []struct {
		name      string
		filter    Filter
		wantTotal int
		wantIDs   []string
	}{
		{"all, most recent first", Filter{}, 4, []string{"req-d", "req-c", "req-b", "req-a"}},
		{"by command", Filter{Command: "write"}, 2, []string{"req-c", "req-b"}},
		{"by client and command", Filter{ClientID: "aa", Command: "write"}, 1, []string{"req-c"}},
		{"paged", Filter{Limit: 2, Offset: 1}, 4, []string{"req-c", "req-b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if got.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", got.Total, tt.wantTotal)
			}
			if ids := requestIDs(got.Logs); !slices.Equal(ids, tt.wantIDs) {
				t.Errorf("request IDs = %v, want %v", ids, tt.wantIDs)
			}
		})
	}
}

func TestListClampsLimit(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.List(context.Background(), Filter{Limit: 5000, Offset: -3})
	if err != nil {
		t.Fatal(err)
	}
	if got.Limit != maxLimit || got.Offset != 0 {
		t.Errorf("limit, offset = %d, %d; want %d, 0", got.Limit, got.Offset, maxLimit)
	}
	if got.Logs == nil || len(got.Logs) != 0 {
		t.Errorf("Logs = %#v, want empty non-nil", got.Logs)
	}

	got, err = repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatal(err)
	}
	if got.Limit != defaultLimit {
		t.Errorf("Limit = %d, want %d", got.Limit, defaultLimit)
	}
}

func TestRecordUnmarshalableResult(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Record(context.Background(), service.AuditEntry{
		RequestID: "req-x",
		Command:   service.CommandWrite,
		Result:    make(chan int),
	})
	if err == nil {
		t.Error("expected an error for a result that cannot be marshalled")
	}
}
