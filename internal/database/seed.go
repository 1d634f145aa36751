package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	seedEntities = []string{"user", "channel", "message"}
	seedActions  = []string{"create", "read", "update", "delete"}
	seedScopes   = []string{"own", "any", "public"}
)

// Seed installs the static permission grid and the two built-in roles:
// "admin" holds every any-scope grant, "user" holds every own-scope grant
// plus public read. An admin account is created with the given
// credentials unless one already exists. Safe to run repeatedly.
func (db *PgRepository) Seed(adminUsername, adminEmail, adminPassword string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, entity := range seedEntities {
		for _, action := range seedActions {
			for _, scope := range seedScopes {
				_, err = tx.Exec(
					"INSERT INTO permissions (entity, action, scope) VALUES ($1, $2, $3) "+
						"ON CONFLICT (entity, action, scope) DO NOTHING",
					entity,
					action,
					scope,
				)
				if err != nil {
					return fmt.Errorf("seed permission %s:%s:%s: %w", action, entity, scope, err)
				}
			}
		}
	}

	for _, role := range []string{"admin", "user"} {
		_, err = tx.Exec(
			"INSERT INTO roles (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", role,
		)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", role, err)
		}
	}

	_, err = tx.Exec(
		"INSERT INTO role_permissions (role_id, permission_id) " +
			"SELECT r.id, p.id FROM roles r, permissions p " +
			"WHERE r.name = 'admin' AND p.scope = 'any' " +
			"ON CONFLICT DO NOTHING",
	)
	if err != nil {
		return fmt.Errorf("seed admin grants: %w", err)
	}

	_, err = tx.Exec(
		"INSERT INTO role_permissions (role_id, permission_id) " +
			"SELECT r.id, p.id FROM roles r, permissions p " +
			"WHERE r.name = 'user' AND (p.scope = 'own' OR (p.scope = 'public' AND p.action = 'read')) " +
			"ON CONFLICT DO NOTHING",
	)
	if err != nil {
		return fmt.Errorf("seed user grants: %w", err)
	}

	pwdHash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	var accountId int
	err = tx.QueryRow(
		"INSERT INTO accounts (username, name, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (username) DO NOTHING RETURNING id",
		adminUsername,
		adminUsername,
		adminEmail,
		string(pwdHash),
		time.Now().UTC(),
		time.Now().UTC(),
	).Scan(&accountId)
	if err != nil {
		// no row back from DO NOTHING means the account was already seeded
		if errors.Is(err, sql.ErrNoRows) {
			err = nil
			return tx.Commit()
		}
		return fmt.Errorf("seed admin account: %w", err)
	}

	_, err = tx.Exec(
		"INSERT INTO account_roles (account_id, role_id) "+
			"SELECT $1, id FROM roles WHERE name IN ('admin', 'user') ON CONFLICT DO NOTHING",
		accountId,
	)
	if err != nil {
		return fmt.Errorf("assign admin roles: %w", err)
	}

	return tx.Commit()
}

// CreateAccount inserts a fixture account with the given roles. Used by
// the seeder path in cmd/server; signup flows live outside this service.
func (db *PgRepository) CreateAccount(params CreateAccountParams) (User, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return User{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO accounts (username, name, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, username, name, email",
		params.Username,
		params.Name,
		params.EmailAddress,
		params.PasswordHash,
		time.Now().UTC(),
		time.Now().UTC(),
	)

	var u User
	err = res.Scan(
		&u.Id,
		&u.Username,
		&u.Name,
		&u.EmailAddress,
	)
	if err != nil {
		return User{}, err
	}

	for _, role := range params.RoleNames {
		_, err = tx.Exec(
			"INSERT INTO account_roles (account_id, role_id) SELECT $1, id FROM roles WHERE name = $2",
			u.Id,
			role,
		)
		if err != nil {
			return User{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return User{}, err
	}

	return u, nil
}
