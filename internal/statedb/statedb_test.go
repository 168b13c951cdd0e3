package statedb

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenMigrateReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	db1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := db1.Migrate(); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := db1.SetMeta("k", "v"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	db1.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	defer db2.Close()
	if err := db2.Migrate(); err != nil {
		t.Fatalf("Migrate (repeat): %v", err)
	}
	got, err := db2.GetMeta("k")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if got != "v" {
		t.Errorf("GetMeta = %q, want v", got)
	}
}

func TestHeartbeatLifecycle(t *testing.T) {
	db := newTestDB(t)

	if err := db.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}
	count, err := db.AliveCount(30 * time.Second)
	if err != nil {
		t.Fatalf("AliveCount: %v", err)
	}
	if count != 1 {
		t.Errorf("AliveCount = %d, want 1", count)
	}

	if err := db.Heartbeat(); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	if err := db.Unregister(); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	count, err = db.AliveCount(30 * time.Second)
	if err != nil {
		t.Fatalf("AliveCount after unregister: %v", err)
	}
	if count != 0 {
		t.Errorf("AliveCount = %d, want 0", count)
	}
}

func TestCleanDeadRemovesStaleRows(t *testing.T) {
	db := newTestDB(t)

	stale := time.Now().Add(-2 * time.Minute).Unix()
	_, err := db.SQL().Exec(
		"INSERT INTO driver_heartbeats (pid, started, heartbeat, is_driver) VALUES (?, ?, ?, 0)",
		10001, stale, stale,
	)
	if err != nil {
		t.Fatalf("Insert stale row: %v", err)
	}
	if err := db.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := db.CleanDead(30 * time.Second); err != nil {
		t.Fatalf("CleanDead: %v", err)
	}

	var count int
	if err := db.SQL().QueryRow("SELECT COUNT(*) FROM driver_heartbeats").Scan(&count); err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("rows = %d, want 1 (only the live process)", count)
	}
}

func TestElectLeader_FirstInstance(t *testing.T) {
	db := newTestDB(t)

	if err := db.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}
	isLeader, err := db.ElectLeader(30 * time.Second)
	if err != nil {
		t.Fatalf("ElectLeader: %v", err)
	}
	if !isLeader {
		t.Error("First instance should become the driver")
	}

	// Calling again should still return true (already driver)
	isLeader, err = db.ElectLeader(30 * time.Second)
	if err != nil {
		t.Fatalf("ElectLeader (repeat): %v", err)
	}
	if !isLeader {
		t.Error("Should still be the driver on repeat call")
	}
}

func TestElectLeader_SecondInstance(t *testing.T) {
	db := newTestDB(t)

	// Simulate another process holding the role with a fresh heartbeat.
	now := time.Now().Unix()
	_, err := db.SQL().Exec(
		"INSERT INTO driver_heartbeats (pid, started, heartbeat, is_driver) VALUES (?, ?, ?, 1)",
		10001, now, now,
	)
	if err != nil {
		t.Fatalf("Insert driver: %v", err)
	}
	if err := db.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}

	isLeader, err := db.ElectLeader(30 * time.Second)
	if err != nil {
		t.Fatalf("ElectLeader: %v", err)
	}
	if isLeader {
		t.Error("Should NOT become the driver while another process is alive")
	}
}

func TestElectLeader_Failover(t *testing.T) {
	db := newTestDB(t)

	// A driver whose heartbeat went stale 2 minutes ago.
	stale := time.Now().Add(-2 * time.Minute).Unix()
	_, err := db.SQL().Exec(
		"INSERT INTO driver_heartbeats (pid, started, heartbeat, is_driver) VALUES (?, ?, ?, 1)",
		10001, stale, stale,
	)
	if err != nil {
		t.Fatalf("Insert stale driver: %v", err)
	}
	if err := db.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}

	isLeader, err := db.ElectLeader(30 * time.Second)
	if err != nil {
		t.Fatalf("ElectLeader: %v", err)
	}
	if !isLeader {
		t.Error("Should take over after the stale driver is cleared")
	}

	var staleDriver int
	err = db.SQL().QueryRow(
		"SELECT is_driver FROM driver_heartbeats WHERE pid = 10001",
	).Scan(&staleDriver)
	if err != nil {
		t.Fatalf("Query stale PID: %v", err)
	}
	if staleDriver != 0 {
		t.Error("Stale PID should have is_driver=0")
	}
}

func TestResignLeader(t *testing.T) {
	db := newTestDB(t)

	if err := db.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}
	isLeader, err := db.ElectLeader(30 * time.Second)
	if err != nil {
		t.Fatalf("ElectLeader: %v", err)
	}
	if !isLeader {
		t.Fatal("Should become the driver")
	}

	if err := db.ResignLeader(); err != nil {
		t.Fatalf("ResignLeader: %v", err)
	}

	var isDriver int
	err = db.SQL().QueryRow(
		"SELECT is_driver FROM driver_heartbeats WHERE is_driver = 1 LIMIT 1",
	).Scan(&isDriver)
	if err == nil {
		t.Error("No row should hold the driver role after resign")
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	db := newTestDB(t)

	got, err := db.GetMeta("missing")
	if err != nil {
		t.Fatalf("GetMeta missing: %v", err)
	}
	if got != "" {
		t.Errorf("GetMeta missing = %q, want empty", got)
	}

	if err := db.SetMeta("key", "one"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	if err := db.SetMeta("key", "two"); err != nil {
		t.Fatalf("SetMeta overwrite: %v", err)
	}
	got, err = db.GetMeta("key")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if got != "two" {
		t.Errorf("GetMeta = %q, want two", got)
	}
}

func TestTouchAndLastRefreshed(t *testing.T) {
	db := newTestDB(t)

	ts, err := db.LastRefreshed()
	if err != nil {
		t.Fatalf("LastRefreshed: %v", err)
	}
	if ts != 0 {
		t.Errorf("LastRefreshed before Touch = %d, want 0", ts)
	}

	before := time.Now().UnixNano()
	if err := db.Touch(); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	ts, err = db.LastRefreshed()
	if err != nil {
		t.Fatalf("LastRefreshed after Touch: %v", err)
	}
	if ts < before {
		t.Errorf("LastRefreshed = %d, want >= %d", ts, before)
	}
}

func TestConcurrentAccess(t *testing.T) {
	db := newTestDB(t)

	if err := db.Register(); err != nil {
		t.Fatalf("Register: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = db.Heartbeat()
			_, _ = db.ElectLeader(30 * time.Second)
			_ = db.Touch()
		}()
	}
	wg.Wait()

	count, err := db.AliveCount(30 * time.Second)
	if err != nil {
		t.Fatalf("AliveCount: %v", err)
	}
	if count != 1 {
		t.Errorf("AliveCount = %d, want 1", count)
	}
}
