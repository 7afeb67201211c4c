package repo

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory é uma implementação em memória do repositório, com a mesma semântica
// do Postgres (incluindo UpdateInTx). Usada em testes e execuções locais sem banco.
type Memory struct {
	mu     sync.Mutex
	bets   map[int64]Bet
	nextID int64
	now    func() time.Time

	updates int
}

func NewMemory() *Memory {
	return &Memory{bets: map[int64]Bet{}, now: time.Now}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Create(_ context.Context, b *Bet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	b.ID = m.nextID
	b.Status = StatusPending
	b.CreatedAt = m.now().UTC()
	b.SettledAt = nil
	m.bets[b.ID] = *b
	return nil
}

func (m *Memory) FindByID(_ context.Context, id int64) (*Bet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *Memory) FindByEventAndStatus(_ context.Context, eventID string, status Status) ([]Bet, error) {
	return m.filter(func(b Bet) bool { return b.EventID == eventID && b.Status == status }), nil
}

func (m *Memory) FindByEvent(_ context.Context, eventID string) ([]Bet, error) {
	return m.filter(func(b Bet) bool { return b.EventID == eventID }), nil
}

func (m *Memory) FindByUser(_ context.Context, userID string) ([]Bet, error) {
	return m.filter(func(b Bet) bool { return b.UserID == userID }), nil
}

func (m *Memory) FindByStatus(_ context.Context, status Status) ([]Bet, error) {
	return m.filter(func(b Bet) bool { return b.Status == status }), nil
}

// UpdateInTx serializa pelo mutex, equivalente ao lock de linha do Postgres
func (m *Memory) UpdateInTx(_ context.Context, id int64, fn func(b *Bet) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bets[id]
	if !ok {
		return ErrNotFound
	}
	if err := fn(&b); err != nil {
		return err
	}
	m.bets[id] = b
	m.updates++
	return nil
}

// Updates retorna quantas escritas foram efetivadas
func (m *Memory) Updates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates
}

// All retorna uma cópia de todas as apostas ordenadas por ID
func (m *Memory) All() []Bet {
	return m.filter(func(Bet) bool { return true })
}

func (m *Memory) filter(keep func(Bet) bool) []Bet {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Bet{}
	for _, b := range m.bets {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
