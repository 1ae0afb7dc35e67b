package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/profile"
	"github.com/trezcool/matricula/core/user"
)

const (
	userColumns   = "id, name, username, email, role, is_active, password_hash, created_at, updated_at, last_login"
	insertUser    = `INSERT INTO users (` + userColumns + `) VALUES (:id, :name, :username, :email, :role, :is_active, :password_hash, :created_at, :updated_at, :last_login)`
	insertProfile = `INSERT INTO profiles (user_id, enrollment_stage, created_at, updated_at) VALUES (:user_id, :enrollment_stage, :created_at, :updated_at)`
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedIDs ...string) error {
	q := psql.Select("username").
		From("users").
		Where(sq.Or{
			sq.Expr("LOWER(username) = LOWER(?)", username),
			sq.Expr("LOWER(email) = LOWER(?)", email),
		}).
		Limit(1)
	if ids := validUUIDs(excludedIDs); len(ids) > 0 {
		q = q.Where(sq.NotEq{"id": ids})
	}

	var taken string
	if err := get(ctx, repo.db, &taken, q); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if strings.EqualFold(taken, username) {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

// CreateUser inserts the user and its empty profile in one transaction.
func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, insertUser, usr); err != nil {
			return mapUserConstraint(err, "inserting user")
		}
		if _, err := tx.NamedExecContext(ctx, insertProfile, profile.New(usr.ID, usr.CreatedAt)); err != nil {
			return errors.Wrap(err, "inserting profile")
		}
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return usr, nil
}

func mapUserConstraint(err error, msg string) error {
	if constraint, ok := uniqueConstraint(err); ok {
		if strings.Contains(constraint, "username") {
			return user.ErrUsernameExists
		}
		if strings.Contains(constraint, "email") {
			return user.ErrEmailExists
		}
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	q := psql.Select(userColumns).From("users")

	if filter != nil {
		// users with Name, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where(sq.Or{
				sq.ILike{"name": val},
				sq.ILike{"username": val},
				sq.ILike{"email": val},
			})
		}
		if len(filter.Roles) > 0 {
			q = q.Where(sq.Eq{"role": filter.Roles})
		}
		if filter.IsActive != nil {
			q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		}
	}

	if len(ordering) > 0 {
		for _, ord := range ordering {
			q = q.OrderBy(ord.String())
		}
	} else {
		q = q.OrderBy("created_at ASC")
	}

	users := make([]user.User, 0)
	if err := selectAll(ctx, repo.db, &users, q); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	q := psql.Select(userColumns).From("users").Limit(1)
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Email != "":
		q = q.Where("LOWER(email) = LOWER(?)", filter.Email)
	case filter.UsernameOrEmail != "":
		q = q.Where("LOWER(username) = LOWER(?) OR LOWER(email) = LOWER(?)", filter.UsernameOrEmail, filter.UsernameOrEmail)
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	if err := get(ctx, repo.db, &usr, q); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return usr, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := psql.Update("users").
		SetMap(map[string]interface{}{
			"name":          usr.Name,
			"username":      usr.Username,
			"email":         usr.Email,
			"role":          usr.Role,
			"is_active":     usr.IsActive,
			"password_hash": usr.PasswordHash,
			"updated_at":    usr.UpdatedAt,
			"last_login":    usr.LastLogin,
		}).
		Where(sq.Eq{"id": usr.ID})

	n, err := exec(ctx, repo.db, q)
	if err != nil {
		return user.User{}, mapUserConstraint(err, "updating user")
	}
	if n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return usr, nil
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q := psql.Delete("users").Where(sq.Eq{"id": validUUIDs(ids)})
	if _, err := exec(ctx, repo.db, q); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
