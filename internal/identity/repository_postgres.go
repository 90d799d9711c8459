package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wichananm65/chef-marketplace-backend/internal/database"
)

type PostgresRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Schema creates the auth tables when missing.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS auth_accounts (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		phone TEXT,
		password_hash TEXT,
		provider TEXT NOT NULL DEFAULT 'email',
		metadata JSONB NOT NULL DEFAULT '{}',
		confirmed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS auth_accounts_email_key ON auth_accounts (lower(email))`,
	`CREATE TABLE IF NOT EXISTS auth_otps (
		token_hash TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES auth_accounts(id) ON DELETE CASCADE,
		type TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

const (
	accountColumns = `id, email, phone, password_hash, provider, metadata, confirmed_at, created_at, updated_at`

	getAccountByIDQuery    = `SELECT ` + accountColumns + ` FROM auth_accounts WHERE id = $1`
	getAccountByEmailQuery = `SELECT ` + accountColumns + ` FROM auth_accounts WHERE lower(email) = lower($1)`
	insertAccountQuery     = `
		INSERT INTO auth_accounts (id, email, phone, password_hash, provider, metadata, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	updateAccountQuery = `
		UPDATE auth_accounts
		SET email = $2,
			phone = $3,
			password_hash = $4,
			metadata = $5,
			confirmed_at = $6,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	insertOTPQuery = `
		INSERT INTO auth_otps (token_hash, account_id, type, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	consumeOTPQuery = `
		DELETE FROM auth_otps
		WHERE token_hash = $1 AND type = $2
		RETURNING account_id, expires_at, created_at
	`
)

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (Account, error) {
	return r.getOne(ctx, getAccountByIDQuery, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	return r.getOne(ctx, getAccountByEmailQuery, email)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func (r *PostgresRepository) Create(ctx context.Context, account Account) (Account, error) {
	meta, err := encodeMetadata(account.Metadata)
	if err != nil {
		return Account{}, err
	}
	err = r.db.QueryRowContext(ctx, insertAccountQuery,
		account.ID,
		account.Email,
		nullString(account.Phone),
		nullString(account.PasswordHash),
		account.Provider,
		meta,
		nullTime(account.ConfirmedAt),
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return Account{}, ErrEmailExists
		}
		return Account{}, err
	}
	return account, nil
}

func (r *PostgresRepository) Update(ctx context.Context, account Account) (Account, error) {
	meta, err := encodeMetadata(account.Metadata)
	if err != nil {
		return Account{}, err
	}
	err = r.db.QueryRowContext(ctx, updateAccountQuery,
		account.ID,
		account.Email,
		nullString(account.Phone),
		nullString(account.PasswordHash),
		meta,
		nullTime(account.ConfirmedAt),
	).Scan(&account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	return account, nil
}

func (r *PostgresRepository) SaveOTP(ctx context.Context, otp OTP) error {
	_, err := r.db.ExecContext(ctx, insertOTPQuery, otp.TokenHash, otp.AccountID, string(otp.Type), otp.ExpiresAt)
	return err
}

func (r *PostgresRepository) ConsumeOTP(ctx context.Context, tokenHash string, typ OTPType) (OTP, error) {
	otp := OTP{TokenHash: tokenHash, Type: typ}
	err := r.db.QueryRowContext(ctx, consumeOTPQuery, tokenHash, string(typ)).
		Scan(&otp.AccountID, &otp.ExpiresAt, &otp.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OTP{}, ErrInvalidOTP
		}
		return OTP{}, err
	}
	return otp, nil
}

func scanAccount(scanner rowScanner) (Account, error) {
	var (
		a         Account
		phone     sql.NullString
		password  sql.NullString
		meta      []byte
		confirmed sql.NullTime
	)
	if err := scanner.Scan(
		&a.ID,
		&a.Email,
		&phone,
		&password,
		&a.Provider,
		&meta,
		&confirmed,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return Account{}, err
	}

	a.Phone = phone.String
	a.PasswordHash = password.String
	if confirmed.Valid {
		t := confirmed.Time
		a.ConfirmedAt = &t
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &a.Metadata); err != nil {
			return Account{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return a, nil
}

func encodeMetadata(meta map[string]string) (string, error) {
	if meta == nil {
		return "{}", nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
