package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mivanic/parley/internal/domain"
)

const profileColumns = "id, email, username, display_name, password_hash, avatar_url, status, created_at, updated_at"

type ProfileRepo struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

func (r *ProfileRepo) Create(ctx context.Context, p *domain.Profile) error {
	query := `
		INSERT INTO profiles (id, email, username, display_name, password_hash, avatar_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Email, p.Username, p.DisplayName,
		p.PasswordHash, p.AvatarURL, p.Status, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	return r.scanProfile(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = $1", id)
}

func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.scanProfile(ctx, "SELECT "+profileColumns+" FROM profiles WHERE email = $1", email)
}

func (r *ProfileRepo) GetByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	return r.scanProfile(ctx, "SELECT "+profileColumns+" FROM profiles WHERE username = $1", username)
}

func (r *ProfileRepo) ListAllExcept(ctx context.Context, id uuid.UUID) ([]domain.Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles WHERE id <> $1 ORDER BY username"

	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := scanProfileRow(rows, &p); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *ProfileRepo) scanProfile(ctx context.Context, query string, arg any) (*domain.Profile, error) {
	var p domain.Profile
	err := scanProfileRow(r.pool.QueryRow(ctx, query, arg), &p)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProfileRow(row pgx.Row, p *domain.Profile) error {
	return row.Scan(
		&p.ID, &p.Email, &p.Username, &p.DisplayName,
		&p.PasswordHash, &p.AvatarURL, &p.Status,
		&p.CreatedAt, &p.UpdatedAt,
	)
}
