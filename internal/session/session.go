// Package session 持有一次交互会话的内存状态：当前输入、前缀与解析出的记录序列。
//
// 记录只存在于内存：新的解析整体替换旧记录，Clear 清空一切。已调度的导出不会因此被取消。
// Session 不是并发安全的，调用方（CLI / TUI）在单一控制流中使用它。
package session

import (
	"github.com/google/uuid"

	"github.com/John-Robertt/strmgen/internal/domain"
	"github.com/John-Robertt/strmgen/internal/linkparse"
)

type Session struct {
	// ID 用于 report 追溯（同一会话多次导出共享同一个 ID）。
	ID string

	Input  string
	Prefix string

	Records []domain.PointerRecord
	Reason  domain.Reason

	// Generation 每次 Parse/Clear 自增，调用方可据此判断记录是否已被替换。
	Generation int
}

func New() *Session {
	return &Session{ID: uuid.New().String()}
}

// Parse 用 input/prefix 重新解析，并整体替换当前记录。返回面向用户的提示文案。
func (s *Session) Parse(input, prefix string) string {
	s.Input = input
	s.Prefix = prefix
	s.Records, s.Reason = linkparse.Parse(input, prefix)
	s.Generation++
	return s.Reason.Message(len(s.Records))
}

// Clear 清空记录、输入与前缀。
func (s *Session) Clear() {
	s.Input = ""
	s.Prefix = ""
	s.Records = nil
	s.Reason = ""
	s.Generation++
}

// Snapshot 返回当前记录的副本，供异步导出使用（后续 Parse 不会影响已取走的快照）。
func (s *Session) Snapshot() []domain.PointerRecord {
	return append([]domain.PointerRecord(nil), s.Records...)
}
