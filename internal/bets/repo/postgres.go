package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("bet not found")

const betColumns = `id, user_id, event_id, event_market_id, event_winner_id, bet_amount, status, created_at, settled_at`

// Postgres implementa operações de persistência de apostas em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// Ping valida a conexão (healthcheck)
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// Create insere uma nova aposta PENDING e preenche ID, Status e CreatedAt.
// A colocação de apostas é externa a este serviço; usado para carga inicial e testes.
func (p *Postgres) Create(ctx context.Context, b *Bet) error {
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO bets (user_id, event_id, event_market_id, event_winner_id, bet_amount, status)
		VALUES ($1,$2,$3,$4,$5,'PENDING')
		RETURNING id, status, created_at`,
		b.UserID, b.EventID, b.EventMarketID, b.PredictedWinnerID, b.Amount.Round(2),
	).Scan(&b.ID, &b.Status, &b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}
	b.SettledAt = nil
	return nil
}

// FindByID busca uma aposta pelo ID; ErrNotFound se não existir
func (p *Postgres) FindByID(ctx context.Context, id int64) (*Bet, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1`, id)
	b, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find bet %d: %w", id, err)
	}
	return b, nil
}

// FindByEventAndStatus usa o índice (event_id, status); caminho quente do matcher
func (p *Postgres) FindByEventAndStatus(ctx context.Context, eventID string, status Status) ([]Bet, error) {
	return p.query(ctx, `SELECT `+betColumns+` FROM bets WHERE event_id=$1 AND status=$2 ORDER BY id`, eventID, string(status))
}

// FindByEvent lista todas as apostas de um evento
func (p *Postgres) FindByEvent(ctx context.Context, eventID string) ([]Bet, error) {
	return p.query(ctx, `SELECT `+betColumns+` FROM bets WHERE event_id=$1 ORDER BY id`, eventID)
}

// FindByUser lista todas as apostas de um usuário
func (p *Postgres) FindByUser(ctx context.Context, userID string) ([]Bet, error) {
	return p.query(ctx, `SELECT `+betColumns+` FROM bets WHERE user_id=$1 ORDER BY id`, userID)
}

// FindByStatus lista apostas por status
func (p *Postgres) FindByStatus(ctx context.Context, status Status) ([]Bet, error) {
	return p.query(ctx, `SELECT `+betColumns+` FROM bets WHERE status=$1 ORDER BY id`, string(status))
}

// UpdateInTx carrega a aposta com lock pessimista (FOR UPDATE), aplica fn e
// persiste status/settled_at na mesma transação.
// Se fn retornar erro, nada é gravado. ErrNotFound se a aposta não existir.
func (p *Postgres) UpdateInTx(ctx context.Context, id int64, fn func(b *Bet) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	b, err := scanBet(tx.QueryRowContext(ctx, `SELECT `+betColumns+` FROM bets WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock bet %d: %w", id, err)
	}

	if err := fn(b); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bets SET status=$1, settled_at=$2 WHERE id=$3`,
		string(b.Status), nullTime(b.SettledAt), id,
	); err != nil {
		return fmt.Errorf("update bet %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bet %d: %w", id, err)
	}
	return nil
}

func (p *Postgres) query(ctx context.Context, q string, args ...any) ([]Bet, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query bets: %w", err)
	}
	defer rows.Close()

	out := make([]Bet, 0)
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bet: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// scanner cobre *sql.Row e *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanBet(s scanner) (*Bet, error) {
	var (
		b         Bet
		status    string
		settledAt sql.NullTime
	)
	if err := s.Scan(&b.ID, &b.UserID, &b.EventID, &b.EventMarketID, &b.PredictedWinnerID,
		&b.Amount, &status, &b.CreatedAt, &settledAt); err != nil {
		return nil, err
	}
	b.Status = Status(status)
	if settledAt.Valid {
		t := settledAt.Time
		b.SettledAt = &t
	}
	return &b, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
