package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"engdoc-auditor/api/internal/audit"
	"engdoc-auditor/api/internal/audit/types"
)

// ErrBusy: анализ уже идёт; кнопка запуска неактивна.
var ErrBusy = errors.New("Анализ уже выполняется, дождитесь результата.")

// Session: состояние формы одного пользователя и итог последнего запуска.
type Session struct {
	ID string

	mu           sync.Mutex
	primary      *types.Document
	references   []types.Document
	instructions string
	projectCode  string
	options      types.ValidationOptions
	outcome      Outcome
	lastID       uint64
	lastSeen     time.Time
}

func New(id string) *Session {
	return &Session{
		ID:       id,
		options:  types.DefaultOptions(),
		outcome:  Idle(),
		lastSeen: time.Now(),
	}
}

// Snapshot: копия состояния для отображения.
type Snapshot struct {
	Primary      *types.Document
	References   []types.Document
	Instructions string
	ProjectCode  string
	Options      types.ValidationOptions
	Outcome      Outcome
}

// CanStart: кнопка запуска активна: документ загружен и нет анализа в процессе.
func (s Snapshot) CanStart() bool {
	return s.Primary != nil && !s.Outcome.IsPending()
}

func (s *Session) touch() { s.lastSeen = time.Now() }

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	snap := Snapshot{
		References:   append([]types.Document(nil), s.references...),
		Instructions: s.instructions,
		ProjectCode:  s.projectCode,
		Options:      s.options,
		Outcome:      s.outcome,
	}
	if s.primary != nil {
		p := *s.primary
		snap.Primary = &p
	}
	return snap
}

// SetPrimary заменяет проверяемый документ; nil: убрать.
func (s *Session) SetPrimary(doc *types.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if doc == nil {
		s.primary = nil
		return
	}
	d := *doc
	s.primary = &d
}

func (s *Session) AddReferences(docs ...types.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.references = append(s.references, docs...)
}

func (s *Session) RemoveReference(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if i < 0 || i >= len(s.references) {
		return fmt.Errorf("reference index %d out of range [0,%d)", i, len(s.references))
	}
	s.references = append(s.references[:i:i], s.references[i+1:]...)
	return nil
}

func (s *Session) SetInstructions(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.instructions = v
}

func (s *Session) SetProjectCode(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.projectCode = v
}

func (s *Session) SetOptions(o types.ValidationOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.options = o
}

func (s *Session) ToggleCheck(name types.CheckName) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.options.Toggle(name)
}

// Reset возвращает форму к исходному виду. Незавершённый запрос будет отброшен в Finish.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	s.primary = nil
	s.references = nil
	s.instructions = ""
	s.projectCode = ""
	s.options = types.DefaultOptions()
	s.lastID++
	s.outcome = Idle()
}

// Begin переводит сессию в pending и возвращает id запроса и вход для анализа.
// Без основного документа сетевых действий нет: состояние failed с фиксированным текстом.
func (s *Session) Begin() (uint64, types.AnalysisInput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	if s.outcome.IsPending() {
		return 0, types.AnalysisInput{}, ErrBusy
	}
	s.lastID++
	id := s.lastID
	if s.primary == nil {
		s.outcome = Failed(id, audit.ErrNoPrimaryDocument.Error())
		return 0, types.AnalysisInput{}, audit.ErrNoPrimaryDocument
	}

	p := *s.primary
	in := types.AnalysisInput{
		Primary:      &p,
		References:   append([]types.Document(nil), s.references...),
		Instructions: s.instructions,
		ProjectCode:  s.projectCode,
		Options:      s.options,
	}
	s.outcome = Pending(id)
	return id, in, nil
}

// Finish применяет результат запроса id. Ответы устаревших запросов отбрасываются.
func (s *Session) Finish(id uint64, res types.AnalysisResult, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if id == 0 || id != s.lastID {
		return false
	}
	if err != nil {
		s.outcome = Failed(id, audit.UserMessage(err))
	} else {
		s.outcome = Succeeded(id, res)
	}
	return true
}

// Run: синхронный запуск: Begin, анализ, Finish.
func (s *Session) Run(ctx context.Context, a audit.Analyzer) Outcome {
	id, in, err := s.Begin()
	if err != nil {
		return s.Snapshot().Outcome
	}
	res, err := a.Analyze(ctx, in)
	s.Finish(id, res, err)
	return s.Snapshot().Outcome
}

// Start: асинхронный запуск; done вызывается после Finish.
func (s *Session) Start(ctx context.Context, a audit.Analyzer, done func(Outcome)) error {
	id, in, err := s.Begin()
	if err != nil {
		return err
	}
	go func() {
		res, err := a.Analyze(ctx, in)
		s.Finish(id, res, err)
		if done != nil {
			done(s.Snapshot().Outcome)
		}
	}()
	return nil
}

func (s *Session) idleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome.IsPending() {
		return 0
	}
	return now.Sub(s.lastSeen)
}
