package statistics

import (
	"sync/atomic"
	"time"

	"github.com/wsecho/wsecho/internal/config"
	"github.com/wsecho/wsecho/internal/log"
)

const sessionsFile = "sessions"

type Recorder struct {
	SessionRecordList *SessionRecordList

	nextID atomic.Uint64
}

func New(cfg *config.Config) *Recorder {
	return &Recorder{
		SessionRecordList: NewSessionRecordList(
			log.GetStatsFilePath(sessionsFile),
			cfg.History.Size,
			cfg.History.TTL,
		),
	}
}

func (r *Recorder) Start() {
	r.SessionRecordList.Run()
}

func (r *Recorder) Close() error {
	r.SessionRecordList.Close()
	return nil
}

// NewSession allocates a record for a freshly accepted connection and
// queues it for the active table.
func (r *Recorder) NewSession(remoteAddr, localAddr string) *SessionRecord {
	record := &SessionRecord{
		ID:         r.nextID.Add(1),
		RemoteAddr: remoteAddr,
		LocalAddr:  localAddr,
		StartTime:  time.Now(),
	}
	r.SessionRecordList.Enqueue(record)
	return record
}

func (r *Recorder) EndSession(record *SessionRecord, reason string) {
	r.SessionRecordList.EnqueueFinish(record, reason)
}
