package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/carter293/reactive-notebook/coordinator"
	"github.com/carter293/reactive-notebook/internal/autorun"
	"github.com/carter293/reactive-notebook/kernel"
	"github.com/carter293/reactive-notebook/transport/ws"
)

// Session bundles everything a loaded notebook needs: its Coordinator, the
// Kernel subprocess backing it, the observer-fan-out Hub, and the auto-run
// driver watching its edits.
type Session struct {
	Coordinator *coordinator.Coordinator
	Hub         *ws.Hub
	AutoRun     *autorun.Driver
	kernel      *kernel.Client
}

// SessionManager implements api.Sessions, owning one Kernel subprocess per
// open notebook (SPEC_FULL §4.4: the Kernel is a separate process).
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	storage         coordinator.Storage
	kernelBinPath   string
	autoRunDebounce time.Duration
	log             zerolog.Logger
}

func NewSessionManager(storage coordinator.Storage, kernelBinPath string, autoRunDebounce time.Duration, log zerolog.Logger) *SessionManager {
	return &SessionManager{
		sessions:        make(map[string]*Session),
		storage:         storage,
		kernelBinPath:   kernelBinPath,
		autoRunDebounce: autoRunDebounce,
		log:             log.With().Str("component", "session_manager").Logger(),
	}
}

func (m *SessionManager) Get(notebookID string) (*coordinator.Coordinator, *ws.Hub, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[notebookID]
	if !ok {
		return nil, nil, false
	}
	return s.Coordinator, s.Hub, true
}

func (m *SessionManager) Session(notebookID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[notebookID]
	return s, ok
}

// Open loads a notebook, starts its Kernel subprocess, and wires the
// Coordinator/Hub/autorun trio together. Returns the existing session if
// the notebook is already open.
func (m *SessionManager) Open(ctx context.Context, notebookID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[notebookID]; ok {
		return s, nil
	}

	nb, err := m.storage.Load(ctx, notebookID)
	if err != nil {
		return nil, fmt.Errorf("load notebook: %w", err)
	}

	kc, err := kernel.Start(m.kernelBinPath, m.log)
	if err != nil {
		return nil, fmt.Errorf("start kernel: %w", err)
	}

	co := coordinator.New(nb, kc, m.storage, m.log)
	if err := co.Bind(ctx); err != nil {
		kc.Kill()
		return nil, fmt.Errorf("bind database config: %w", err)
	}
	for _, cell := range nb.Cells() {
		if err := kc.RegisterCell(kernel.RegisterCell{ID: cell.ID, Source: cell.Source, Kind: cell.Kind, Position: cell.Position}); err != nil {
			kc.Kill()
			return nil, fmt.Errorf("register cell %s: %w", cell.ID, err)
		}
	}

	hub := ws.NewHub(m.log)
	go hub.Run()
	obs := co.Subscribe()
	go hub.Feed(obs)

	session := &Session{Coordinator: co, Hub: hub, kernel: kc}
	session.AutoRun = autorun.New(ctx, co, m.autoRunDebounce, m.log)
	m.sessions[notebookID] = session
	return session, nil
}

// Close shuts down a notebook's Kernel subprocess and evicts its session.
func (m *SessionManager) Close(notebookID string) {
	m.mu.Lock()
	s, ok := m.sessions[notebookID]
	delete(m.sessions, notebookID)
	m.mu.Unlock()

	if !ok {
		return
	}
	if err := s.kernel.Shutdown(); err != nil {
		m.log.Warn().Err(err).Str("notebook_id", notebookID).Msg("kernel shutdown error")
	}
}
