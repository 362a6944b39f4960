package statistics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestList(t *testing.T, size int, ttl time.Duration) *SessionRecordList {
	t.Helper()
	return NewSessionRecordList(filepath.Join(t.TempDir(), "sessions"), size, ttl)
}

func TestSessionRecordListAddFinish(t *testing.T) {
	l := newTestList(t, 8, 0)

	a := &SessionRecord{ID: 1, RemoteAddr: "10.0.0.1:5000", LocalAddr: "127.0.0.1:9000", StartTime: time.Now().Add(-time.Minute)}
	b := &SessionRecord{ID: 2, RemoteAddr: "10.0.0.2:5000", LocalAddr: "127.0.0.1:9000"}
	l.Add(a)
	l.Add(b)

	if b.StartTime.IsZero() {
		t.Error("Add should stamp a missing StartTime")
	}

	active := l.Active()
	if len(active) != 2 {
		t.Fatalf("Active() len = %d, want 2", len(active))
	}
	if active[0].ID != 2 {
		t.Errorf("Active()[0].ID = %d, want newest session 2", active[0].ID)
	}

	a.AddReceived()
	a.AddReceived()
	a.AddSent()
	end := time.Now()
	l.Finish(a, "EOF", end)

	active = l.Active()
	if len(active) != 1 || active[0].ID != 2 {
		t.Fatalf("Active() = %+v, want only session 2", active)
	}

	recent := l.Recent()
	if len(recent) != 1 {
		t.Fatalf("Recent() len = %d, want 1", len(recent))
	}
	got := recent[0]
	if got.Received != 2 || got.Sent != 1 {
		t.Errorf("counters = %d/%d, want 2/1", got.Received, got.Sent)
	}
	if got.Reason != "EOF" || got.EndTime == nil || !got.EndTime.Equal(end) {
		t.Errorf("finish info = %+v", got)
	}
}

func TestSessionRecordListHistoryEviction(t *testing.T) {
	l := newTestList(t, 2, 0)

	for id := uint64(1); id <= 3; id++ {
		r := &SessionRecord{ID: id}
		l.Add(r)
		l.Finish(r, "done", time.Now())
	}

	recent := l.Recent()
	if len(recent) != 2 {
		t.Fatalf("Recent() len = %d, want 2", len(recent))
	}
	if recent[0].ID != 3 || recent[1].ID != 2 {
		t.Errorf("Recent() ids = %d,%d, want 3,2", recent[0].ID, recent[1].ID)
	}
}

func TestSessionRecordListHistoryExpiry(t *testing.T) {
	l := newTestList(t, 8, 20*time.Millisecond)

	r := &SessionRecord{ID: 1}
	l.Add(r)
	l.Finish(r, "done", time.Now())
	if len(l.Recent()) != 1 {
		t.Fatal("finished session missing from history")
	}

	time.Sleep(100 * time.Millisecond)
	if n := len(l.Recent()); n != 0 {
		t.Errorf("Recent() len = %d after ttl, want 0", n)
	}
}

func TestSessionRecordListRunQueue(t *testing.T) {
	l := newTestList(t, 8, 0)
	l.Run()
	defer l.Close()

	r := &SessionRecord{ID: 7, RemoteAddr: "10.0.0.7:1"}
	l.Enqueue(r)
	l.EnqueueFinish(r, "EOF")

	deadline := time.Now().Add(2 * time.Second)
	for len(l.Recent()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("queued finish never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := len(l.Active()); n != 0 {
		t.Errorf("Active() len = %d, want 0", n)
	}
}

func TestSessionRecordListDump(t *testing.T) {
	l := newTestList(t, 8, 0)
	r := &SessionRecord{ID: 3, RemoteAddr: "10.0.0.3:4444", LocalAddr: "127.0.0.1:9000", StartTime: time.Now()}
	r.AddReceived()
	l.Add(r)

	l.Dump()

	data, err := os.ReadFile(l.dumpFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := "3 10.0.0.3:4444 127.0.0.1:9000 0 1 0\n"
	if string(data) != want {
		t.Errorf("dump = %q, want %q", data, want)
	}
}

func TestRecorderIDs(t *testing.T) {
	r := &Recorder{SessionRecordList: newTestList(t, 4, 0)}

	a := r.NewSession("a:1", "l:1")
	b := r.NewSession("b:1", "l:1")
	if a.ID == b.ID || a.ID == 0 {
		t.Errorf("ids not unique: %d, %d", a.ID, b.ID)
	}
	if !strings.HasPrefix(a.RemoteAddr, "a:") {
		t.Errorf("RemoteAddr = %q", a.RemoteAddr)
	}
}

func TestSessionRecordListRecentSkipsExpired(t *testing.T) {
	l := newTestList(t, 8, 50*time.Millisecond)

	old := &SessionRecord{ID: 1}
	l.Add(old)
	l.Finish(old, "done", time.Now())
	time.Sleep(80 * time.Millisecond)

	fresh := &SessionRecord{ID: 2}
	l.Add(fresh)
	l.Finish(fresh, "done", time.Now())

	recent := l.Recent()
	if len(recent) != 1 {
		t.Fatalf("Recent() len = %d, want 1: %+v", len(recent), recent)
	}
	if recent[0].ID != 2 {
		t.Errorf("Recent()[0].ID = %d, want 2", recent[0].ID)
	}
}

func TestSessionRecordListFinishWaitsForQueue(t *testing.T) {
	l := newTestList(t, 8, 0)
	t.Cleanup(l.Close)

	r := &SessionRecord{ID: 1}
	l.Enqueue(r)
	for id := uint64(2); len(l.events) < cap(l.events); id++ {
		l.Enqueue(&SessionRecord{ID: id})
	}

	finished := make(chan struct{})
	go func() {
		l.EnqueueFinish(r, "client quit")
		close(finished)
	}()

	select {
	case <-finished:
		t.Fatal("EnqueueFinish returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	l.Run()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("EnqueueFinish still blocked after Run")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		recent := l.Recent()
		if len(recent) == 1 && recent[0].ID == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("finished session not in history: %+v", recent)
		}
		time.Sleep(10 * time.Millisecond)
	}
	for _, info := range l.Active() {
		if info.ID == 1 {
			t.Fatal("finished session still listed as active")
		}
	}
}

func TestSessionRecordListFinishAfterClose(t *testing.T) {
	l := newTestList(t, 8, 0)
	r := &SessionRecord{ID: 7}
	l.Add(r)
	for id := uint64(100); len(l.events) < cap(l.events); id++ {
		l.Enqueue(&SessionRecord{ID: id})
	}
	l.Close()

	l.EnqueueFinish(r, "server closed")

	recent := l.Recent()
	if len(recent) != 1 || recent[0].Reason != "server closed" {
		t.Fatalf("Recent() = %+v, want the closed session", recent)
	}
	if n := len(l.Active()); n != 0 {
		t.Errorf("Active() len = %d, want 0", n)
	}
}

func TestSessionInfoEndTimeOmittedWhileActive(t *testing.T) {
	l := newTestList(t, 8, 0)
	r := &SessionRecord{ID: 1, StartTime: time.Now()}
	l.Add(r)

	data, err := json.Marshal(l.Active()[0])
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "end_time") {
		t.Errorf("active session JSON has end_time: %s", data)
	}

	l.Finish(r, "done", time.Now())
	data, err = json.Marshal(l.Recent()[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"end_time"`) {
		t.Errorf("finished session JSON lacks end_time: %s", data)
	}
}
