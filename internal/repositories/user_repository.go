package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/models"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrNicknameTaken = errors.New("nickname already taken")
)

// searchResultCap bounds nickname search results.
const searchResultCap = 100

// UserRepository abstracts the user directory.
type UserRepository interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, uid string) (models.User, error)
	GetUserByNickname(ctx context.Context, nickname string) (models.User, error)
	UpdateProfile(ctx context.Context, uid, nickname, profession, profileImageURL string) (models.User, error)
	PageUsers(ctx context.Context, callerUID, afterUID string, limit int) ([]models.User, error)
	SearchUsers(ctx context.Context, callerUID, query string) ([]models.User, error)
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

// CreateUser inserts a new user. A nickname collision maps to ErrNicknameTaken.
func (r *UserRepo) CreateUser(ctx context.Context, user models.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (uid, nickname, profession, profile_image_url, password_hash, created_at)
         VALUES ($1, $2, $3, $4, $5, $6)`,
		user.UID, user.Nickname, user.Profession, user.ProfileImageURL, user.PasswordHash, user.CreatedAt)
	if isUniqueViolation(err) {
		return ErrNicknameTaken
	}
	return err
}

// GetUser fetches a user by uid.
func (r *UserRepo) GetUser(ctx context.Context, uid string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE uid=$1`, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// GetUserByNickname fetches a user by the exact nickname.
func (r *UserRepo) GetUserByNickname(ctx context.Context, nickname string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT * FROM users WHERE nickname=$1`, nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// UpdateProfile updates the mutable profile fields and returns the new state.
func (r *UserRepo) UpdateProfile(ctx context.Context, uid, nickname, profession, profileImageURL string) (models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx,
		`UPDATE users SET nickname=$2, profession=$3, profile_image_url=$4
         WHERE uid=$1
         RETURNING uid, nickname, profession, profile_image_url, password_hash, created_at`,
		uid, nickname, profession, profileImageURL).StructScan(&user)
	if isUniqueViolation(err) {
		return models.User{}, ErrNicknameTaken
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// PageUsers returns a keyset page ordered by uid ascending, excluding the
// caller. An empty afterUID starts from the beginning.
func (r *UserRepo) PageUsers(ctx context.Context, callerUID, afterUID string, limit int) ([]models.User, error) {
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users,
		`SELECT * FROM users WHERE uid > $1 AND uid <> $2 ORDER BY uid ASC LIMIT $3`,
		afterUID, callerUID, limit)
	return users, err
}

// SearchUsers returns users whose nickname contains the query,
// case-insensitive, excluding the caller. Results are capped. The query is
// treated literally; LIKE metacharacters in it do not act as wildcards.
func (r *UserRepo) SearchUsers(ctx context.Context, callerUID, query string) ([]models.User, error) {
	users := []models.User{}
	err := r.db.SelectContext(ctx, &users,
		`SELECT * FROM users WHERE nickname ILIKE '%' || $1 || '%' AND uid <> $2 ORDER BY nickname ASC LIMIT $3`,
		escapeLikePattern(query), callerUID, searchResultCap)
	return users, err
}

// escapeLikePattern escapes the LIKE metacharacters so user input matches
// literally inside a containment pattern.
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
