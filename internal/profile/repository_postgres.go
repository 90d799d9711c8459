package profile

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/wichananm65/chef-marketplace-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Schema creates the profiles table when missing.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		role TEXT NOT NULL CHECK (role IN ('chef', 'client')),
		display_name TEXT,
		first_name TEXT,
		last_name TEXT,
		email TEXT,
		phone TEXT,
		location TEXT,
		dob DATE,
		bio TEXT,
		profile_image_path TEXT,
		experience TEXT,
		specialties TEXT[],
		hourly_rate NUMERIC,
		certifications TEXT,
		availability TEXT,
		dietary_preferences TEXT,
		favorite_cuisines TEXT,
		allergies TEXT,
		cooking_skill_level TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS profiles_role_created_idx ON profiles (role, created_at DESC)`,
}

const (
	profileColumns = `id, role, display_name, first_name, last_name, email, phone, location, to_char(dob, 'YYYY-MM-DD'), bio, profile_image_path,
		experience, specialties, hourly_rate, certifications, availability,
		dietary_preferences, favorite_cuisines, allergies, cooking_skill_level, created_at`

	getProfileByIDQuery = `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	listByRoleQuery     = `SELECT ` + profileColumns + ` FROM profiles WHERE role = $1 ORDER BY created_at DESC`
	searchQuery         = `
		SELECT ` + profileColumns + `
		FROM profiles
		WHERE (display_name ILIKE $1 OR location ILIKE $1 OR bio ILIKE $1)
		  AND ($2 = '' OR role = $2)
		ORDER BY created_at DESC
	`
	insertProfileQuery = `
		INSERT INTO profiles (id, role, display_name, first_name, last_name, email, phone, location, dob, bio, profile_image_path,
			experience, specialties, hourly_rate, certifications, availability,
			dietary_preferences, favorite_cuisines, allergies, cooking_skill_level)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING ` + profileColumns
	updateProfileQuery = `
		UPDATE profiles
		SET display_name = $2,
			first_name = $3,
			last_name = $4,
			email = $5,
			phone = $6,
			location = $7,
			dob = $8,
			bio = $9,
			profile_image_path = $10,
			experience = $11,
			specialties = $12,
			hourly_rate = $13,
			certifications = $14,
			availability = $15,
			dietary_preferences = $16,
			favorite_cuisines = $17,
			allergies = $18,
			cooking_skill_level = $19
		WHERE id = $1
		RETURNING ` + profileColumns
	deleteProfileQuery = `DELETE FROM profiles WHERE id = $1`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, getProfileByIDQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p Profile) (Profile, error) {
	args := append([]any{p.ID, string(p.Role)}, mutableArgs(p)...)
	created, err := scanProfile(r.db.QueryRowContext(ctx, insertProfileQuery, args...))
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Profile{}, ErrAlreadyExists
		}
		return Profile{}, err
	}
	return created, nil
}

func (r *PostgresRepository) Update(ctx context.Context, p Profile) (Profile, error) {
	args := append([]any{p.ID}, mutableArgs(p)...)
	updated, err := scanProfile(r.db.QueryRowContext(ctx, updateProfileQuery, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, err
	}
	return updated, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, deleteProfileQuery, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ListByRole(ctx context.Context, role Role) ([]Profile, error) {
	return r.list(ctx, listByRoleQuery, string(role))
}

func (r *PostgresRepository) Search(ctx context.Context, query string, role Role) ([]Profile, error) {
	return r.list(ctx, searchQuery, "%"+escapeLike(query)+"%", string(role))
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// mutableArgs returns the column values in query order from display_name
// through cooking_skill_level.
func mutableArgs(p Profile) []any {
	var rate sql.NullFloat64
	if p.HourlyRate != 0 {
		rate = sql.NullFloat64{Float64: p.HourlyRate, Valid: true}
	}
	var specialties any
	if p.Specialties != nil {
		specialties = pq.Array(p.Specialties)
	}
	return []any{
		nullString(p.DisplayName),
		nullString(p.FirstName),
		nullString(p.LastName),
		nullString(p.Email),
		nullString(p.Phone),
		nullString(p.Location),
		nullString(p.Dob),
		nullString(p.Bio),
		nullString(p.ProfileImagePath),
		nullString(p.Experience),
		specialties,
		rate,
		nullString(p.Certifications),
		nullString(p.Availability),
		nullString(p.DietaryPreferences),
		nullString(p.FavoriteCuisines),
		nullString(p.Allergies),
		nullString(p.CookingSkillLevel),
	}
}

func scanProfile(scanner rowScanner) (Profile, error) {
	var (
		p    Profile
		role string
		text [16]sql.NullString
		rate sql.NullFloat64
		spec []string
		at   time.Time
	)
	if err := scanner.Scan(
		&p.ID,
		&role,
		&text[0], &text[1], &text[2], &text[3], &text[4], &text[5], &text[6], &text[7], &text[8],
		&text[9], pq.Array(&spec), &rate, &text[10], &text[11],
		&text[12], &text[13], &text[14], &text[15],
		&at,
	); err != nil {
		return Profile{}, err
	}

	p.Role = Role(role)
	p.DisplayName = text[0].String
	p.FirstName = text[1].String
	p.LastName = text[2].String
	p.Email = text[3].String
	p.Phone = text[4].String
	p.Location = text[5].String
	p.Dob = text[6].String
	p.Bio = text[7].String
	p.ProfileImagePath = text[8].String
	p.Experience = text[9].String
	p.Certifications = text[10].String
	p.Availability = text[11].String
	p.DietaryPreferences = text[12].String
	p.FavoriteCuisines = text[13].String
	p.Allergies = text[14].String
	p.CookingSkillLevel = text[15].String
	if len(spec) > 0 {
		p.Specialties = spec
	}
	if rate.Valid {
		p.HourlyRate = rate.Float64
	}
	p.CreatedAt = at.UTC().Format(time.RFC3339)
	return p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
