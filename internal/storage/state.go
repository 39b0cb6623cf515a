package storage

import (
	"sync"
	"time"

	"indodax-market-sentry/pkg/types"
)

// 内存中保留的自动扫描结果上限
const maxScanResults = 1000

// SessionState 进程内的会话状态，所有访问都经过互斥锁
type SessionState struct {
	mu             sync.RWMutex
	sent           []types.SentSignalRecord
	lastScreenshot time.Time
	scanResults    []types.AlertLogEntry
	now            func() time.Time
}

func NewSessionState() *SessionState {
	return &SessionState{now: time.Now}
}

// WithClock 替换时间源
func (s *SessionState) WithClock(now func() time.Time) *SessionState {
	s.now = now
	return s
}

// Reserve 按 (pair, text) 精确匹配，未发送过时登记并返回true，检查与登记是原子的
func (s *SessionState) Reserve(pair, text string) (types.SentSignalRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(pair, text); i >= 0 {
		return s.sent[i], false
	}
	rec := types.SentSignalRecord{Pair: pair, SignalText: text, Time: s.now()}
	s.sent = append(s.sent, rec)
	return rec, true
}

// Release 撤销登记，用于发送失败
func (s *SessionState) Release(pair, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(pair, text); i >= 0 {
		s.sent = append(s.sent[:i], s.sent[i+1:]...)
	}
}

func (s *SessionState) indexOf(pair, text string) int {
	for i, rec := range s.sent {
		if rec.Pair == pair && rec.SignalText == text {
			return i
		}
	}
	return -1
}

// SentSignals 返回副本
func (s *SessionState) SentSignals() []types.SentSignalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.SentSignalRecord(nil), s.sent...)
}

// ResetSentSignals 清空已发送记录，返回清除的数量
func (s *SessionState) ResetSentSignals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sent)
	s.sent = nil
	return n
}

// LastScreenshot 最近一次截图时间，从未截图时ok为false
func (s *SessionState) LastScreenshot() (t time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastScreenshot, !s.lastScreenshot.IsZero()
}

func (s *SessionState) MarkScreenshot(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastScreenshot = t
}

// AppendScanResults 追加自动扫描结果，超过上限时丢弃最旧的
func (s *SessionState) AppendScanResults(entries ...types.AlertLogEntry) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanResults = append(s.scanResults, entries...)
	if over := len(s.scanResults) - maxScanResults; over > 0 {
		s.scanResults = append([]types.AlertLogEntry(nil), s.scanResults[over:]...)
	}
}

// ScanResults 返回副本
func (s *SessionState) ScanResults() []types.AlertLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.AlertLogEntry(nil), s.scanResults...)
}
