package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/komatsuhenry1/MedAssistFront-sub000/internal/domain"
)

var ErrProfileNotFound = errors.New("profile not found")

// Profile es la ficha pública de un paciente o enfermero.
type Profile struct {
	ID             string
	Name           string
	Role           domain.Role
	Specialization string
	Avatar         string
	Available      bool
}

// ProfileRepository define el contrato de persistencia para perfiles.
type ProfileRepository interface {
	Upsert(ctx context.Context, profile Profile) error
	GetByRole(ctx context.Context, id string, role domain.Role) (Profile, error)
}

type PgProfileRepository struct {
	pool *pgxpool.Pool
}

func NewPgProfileRepository(pool *pgxpool.Pool) *PgProfileRepository {
	return &PgProfileRepository{pool: pool}
}

// Upsert registra el perfil o actualiza nombre y rol sin pisar los datos de ficha.
func (r *PgProfileRepository) Upsert(ctx context.Context, profile Profile) error {
	const query = `
		INSERT INTO profiles (id, name, role, specialization, avatar, available)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, role = EXCLUDED.role
	`
	_, err := r.pool.Exec(ctx, query,
		profile.ID,
		profile.Name,
		string(profile.Role),
		profile.Specialization,
		profile.Avatar,
		profile.Available,
	)
	return err
}

func (r *PgProfileRepository) GetByRole(ctx context.Context, id string, role domain.Role) (Profile, error) {
	const query = `
		SELECT id, name, role, specialization, avatar, available
		FROM profiles
		WHERE id = $1 AND role = $2
	`
	var (
		p       Profile
		roleStr string
	)
	err := r.pool.QueryRow(ctx, query, id, string(role)).Scan(
		&p.ID,
		&p.Name,
		&roleStr,
		&p.Specialization,
		&p.Avatar,
		&p.Available,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Profile{}, ErrProfileNotFound
	}
	if err != nil {
		return Profile{}, err
	}
	p.Role = domain.Role(roleStr)
	return p, nil
}
