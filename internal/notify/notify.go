// Package notify is the seam between views and whatever shows messages to the
// user. Views report outcomes here; they never print.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notice struct {
	Level   Level
	Title   string
	Message string
}

type Notifier interface {
	Notify(n Notice)
}

func Error(n Notifier, msg string) {
	n.Notify(Notice{Level: LevelError, Title: "Error", Message: msg})
}

func Success(n Notifier, msg string) {
	n.Notify(Notice{Level: LevelSuccess, Title: "Success", Message: msg})
}

// Log writes notices to a zap logger.
type Log struct {
	log *zap.Logger
}

func NewLog(l *zap.Logger) *Log {
	return &Log{log: l}
}

func (l *Log) Notify(n Notice) {
	fields := []zap.Field{zap.String("title", n.Title), zap.String("message", n.Message)}
	if n.Level == LevelError {
		l.log.Warn("notice", fields...)
		return
	}
	l.log.Info("notice", fields...)
}

// Func adapts a function to Notifier.
type Func func(Notice)

func (f Func) Notify(n Notice) { f(n) }

// Recorder keeps every notice; used by tests and by the CLI to render output.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *Recorder) All() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

// Last returns the most recent notice, or a zero Notice.
func (r *Recorder) Last() Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return Notice{}
	}
	return r.notices[len(r.notices)-1]
}

func (r *Recorder) Count(l Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, v := range r.notices {
		if v.Level == l {
			n++
		}
	}
	return n
}
