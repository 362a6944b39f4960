package statistics

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// SessionRecord tracks one WebSocket session from accept to close.
// The counters may be bumped by the session's goroutine while the
// record is listed.
type SessionRecord struct {
	ID         uint64
	RemoteAddr string
	LocalAddr  string
	StartTime  time.Time

	received atomic.Int64
	sent     atomic.Int64
}

func (r *SessionRecord) AddReceived() { r.received.Add(1) }
func (r *SessionRecord) AddSent()     { r.sent.Add(1) }

// SessionInfo is a point-in-time copy of a SessionRecord.
type SessionInfo struct {
	ID         uint64     `json:"id"`
	RemoteAddr string     `json:"remote_addr"`
	LocalAddr  string     `json:"local_addr"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Received   int64      `json:"received"`
	Sent       int64      `json:"sent"`
	Reason     string     `json:"reason,omitempty"`
}

func (r *SessionRecord) Snapshot() SessionInfo {
	return SessionInfo{
		ID:         r.ID,
		RemoteAddr: r.RemoteAddr,
		LocalAddr:  r.LocalAddr,
		StartTime:  r.StartTime,
		Received:   r.received.Load(),
		Sent:       r.sent.Load(),
	}
}

// recordEvent is an add when finished is false. Adds and finishes share
// one queue so a finish is never applied before its add.
type recordEvent struct {
	record   *SessionRecord
	finished bool
	reason   string
	at       time.Time
}

type SessionRecordList struct {
	events       chan recordEvent
	records      map[uint64]*SessionRecord
	history      *expirable.LRU[uint64, SessionInfo]
	mu           sync.RWMutex
	dumpFile     string
	dumpInterval time.Duration
	done         chan struct{}
	closeOnce    sync.Once
}

func NewSessionRecordList(dumpFile string, historySize int, historyTTL time.Duration) *SessionRecordList {
	return &SessionRecordList{
		events:       make(chan recordEvent, 1000),
		records:      make(map[uint64]*SessionRecord, 500),
		history:      expirable.NewLRU[uint64, SessionInfo](historySize, nil, historyTTL),
		dumpFile:     dumpFile,
		dumpInterval: 5 * time.Second,
		done:         make(chan struct{}),
	}
}

// Run applies queued adds and removes and dumps the table periodically
// until Close is called.
func (l *SessionRecordList) Run() {
	go func() {
		ticker := time.NewTicker(l.dumpInterval)
		defer ticker.Stop()

		for {
			select {
			case ev := <-l.events:
				if ev.finished {
					l.Finish(ev.record, ev.reason, ev.at)
				} else {
					l.Add(ev.record)
				}
			case <-ticker.C:
				l.Dump()
			case <-l.done:
				return
			}
		}
	}()
}

func (l *SessionRecordList) Close() {
	l.closeOnce.Do(func() { close(l.done) })
}

// Enqueue schedules record to be added without blocking the caller.
func (l *SessionRecordList) Enqueue(record *SessionRecord) {
	select {
	case l.events <- recordEvent{record: record}:
	default:
		slog.Debug("session record dropped", slog.String("remote", record.RemoteAddr))
	}
}

// EnqueueFinish schedules record to be moved to the history. It waits
// for queue space so a finished session never stays listed as active; once
// the list is closed the finish is applied directly.
func (l *SessionRecordList) EnqueueFinish(record *SessionRecord, reason string) {
	ev := recordEvent{record: record, finished: true, reason: reason, at: time.Now()}
	select {
	case l.events <- ev:
	case <-l.done:
		l.Finish(ev.record, ev.reason, ev.at)
	}
}

func (l *SessionRecordList) Add(record *SessionRecord) {
	if record.StartTime.IsZero() {
		record.StartTime = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.records[record.ID] = record
}

// Finish removes record from the active table and keeps its final
// snapshot in the history.
func (l *SessionRecordList) Finish(record *SessionRecord, reason string, at time.Time) {
	l.mu.Lock()
	delete(l.records, record.ID)
	l.mu.Unlock()

	info := record.Snapshot()
	info.EndTime = &at
	info.Reason = reason
	l.history.Add(info.ID, info)
}

// Active returns the live sessions, newest first.
func (l *SessionRecordList) Active() []SessionInfo {
	l.mu.RLock()
	list := make([]SessionInfo, 0, len(l.records))
	for _, record := range l.records {
		list = append(list, record.Snapshot())
	}
	l.mu.RUnlock()

	sort.SliceStable(list, func(i, j int) bool {
		if list[i].StartTime.Equal(list[j].StartTime) {
			return list[i].ID > list[j].ID
		}
		return list[i].StartTime.After(list[j].StartTime)
	})
	return list
}

// Recent returns the closed sessions still in the history, most recently
// closed first.
func (l *SessionRecordList) Recent() []SessionInfo {
	// Values pads expired entries with zero values, so go through Peek.
	keys := l.history.Keys()
	values := make([]SessionInfo, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		if info, ok := l.history.Peek(keys[i]); ok {
			values = append(values, info)
		}
	}
	return values
}

func (l *SessionRecordList) Dump() {
	f, err := os.Create(l.dumpFile)
	if err != nil {
		slog.Error("os.Create", slog.Any("error", err))
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("os.File.Close", slog.Any("error", err))
		}
	}()

	for _, info := range l.Active() {
		duration := time.Since(info.StartTime)
		line := fmt.Sprintf("%d %s %s %d %d %d\n",
			info.ID, info.RemoteAddr, info.LocalAddr, int(duration.Seconds()), info.Received, info.Sent)
		if _, err := f.WriteString(line); err != nil {
			slog.Error("os.File.WriteString", slog.Any("error", err))
			return
		}
	}
}
