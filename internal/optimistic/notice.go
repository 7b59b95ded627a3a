package optimistic

import "sync"

// NoticeLog is a simple in-memory notice sink. The presentation layer drains
// it to render transient failure messages.
type NoticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

// NewNoticeLog creates an empty notice log.
func NewNoticeLog() *NoticeLog {
	return &NoticeLog{}
}

// Record appends a notice. Satisfies NoticeFunc.
func (l *NoticeLog) Record(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

// Drain returns all recorded notices and clears the log.
func (l *NoticeLog) Drain() []Notice {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.notices
	l.notices = nil
	return out
}

// Len returns the number of undrained notices.
func (l *NoticeLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.notices)
}
