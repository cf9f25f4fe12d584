package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/betbot/dbtrader/internal/domain"
	"github.com/betbot/dbtrader/internal/ports"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var sessionLog = logrus.WithField("component", "session")

// Transition 一次状态迁移记录
type Transition struct {
	From State
	To   State
	At   time.Time
}

// Session 单个交易所会话：连接 ID、access token 与状态。
// 每个 Session 对应一组凭证，登出后重置，可再次连接。
type Session struct {
	mu sync.RWMutex

	id     string
	creds  domain.Credentials
	state  State
	connID int
	token  string

	history []Transition
}

// New 创建处于 Disconnected 状态的会话
func New(creds domain.Credentials) *Session {
	return &Session{
		id:     uuid.NewString(),
		creds:  creds,
		state:  StateDisconnected,
		connID: ports.NoConnection,
	}
}

// ID 会话 ID（用于日志关联）
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

func (s *Session) Credentials() domain.Credentials {
	return s.creds
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) ConnID() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connID
}

func (s *Session) SetConnID(id int) {
	s.mu.Lock()
	s.connID = id
	s.mu.Unlock()
}

// Token access token，未认证时为空
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Transition 迁移到新状态，非法迁移返回错误且状态不变
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.state
	if !CanTransition(from, to) {
		return errors.Errorf("非法状态迁移 %s -> %s", from, to)
	}
	s.state = to
	s.history = append(s.history, Transition{From: from, To: to, At: time.Now()})
	sessionLog.WithField("session", s.id).Debugf("状态迁移 %s -> %s", from, to)
	return nil
}

// Require 检查当前状态是否在允许集合内
func (s *Session) Require(op string, allowed ...State) error {
	s.mu.RLock()
	current := s.state
	s.mu.RUnlock()

	for _, st := range allowed {
		if st == current {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, st := range allowed {
		names[i] = st.String()
	}
	return &domain.PreconditionError{
		Op:       op,
		State:    current.String(),
		Required: strings.Join(names, "|"),
	}
}

// Close 进入 Closed 并清除连接信息与 token
func (s *Session) Close() error {
	if err := s.Transition(StateClosed); err != nil {
		return err
	}
	s.mu.Lock()
	s.connID = ports.NoConnection
	s.token = ""
	s.mu.Unlock()
	return nil
}

// Renew 为新的连接生成新的会话 ID（Closed 之后再次连接时调用）
func (s *Session) Renew() {
	s.mu.Lock()
	s.id = uuid.NewString()
	s.token = ""
	s.mu.Unlock()
}

// History 状态迁移记录副本
func (s *Session) History() []Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Transition, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) String() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fmt.Sprintf("Session{id=%s state=%s conn=%d authenticated=%v}", s.id, s.state, s.connID, s.token != "")
}
