package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Rimee2005/CareConnect-sub000/internal/domain"
	apperrors "github.com/Rimee2005/CareConnect-sub000/pkg/errors"
	"github.com/Rimee2005/CareConnect-sub000/pkg/logger"
)

// ProfileRepository - единственное, что relay знает о профилях:
// какой учетной записи принадлежит профиль. Сами профили ведет
// основное приложение.
type ProfileRepository interface {
	OwningUserID(ctx context.Context, profileID uuid.UUID, role domain.Role) (uuid.UUID, error)
}

type profileRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewProfileRepository(db *pgxpool.Pool, log logger.Logger) ProfileRepository {
	return &profileRepository{db: db, log: log}
}

func (r *profileRepository) OwningUserID(ctx context.Context, profileID uuid.UUID, role domain.Role) (uuid.UUID, error) {
	var query string
	switch role {
	case domain.RoleVital:
		query = `SELECT user_id FROM vital_profiles WHERE id = $1`
	case domain.RoleGuardian:
		query = `SELECT user_id FROM guardian_profiles WHERE id = $1`
	default:
		return uuid.Nil, apperrors.ErrProfileNotFound
	}

	var userID uuid.UUID
	err := r.db.QueryRow(ctx, query, profileID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, apperrors.ErrProfileNotFound
		}
		r.log.Error("Failed to resolve profile owner", "error", err, "profile_id", profileID)
		return uuid.Nil, err
	}

	return userID, nil
}
