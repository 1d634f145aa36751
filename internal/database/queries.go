package database

import (
	"database/sql"
	"fmt"
	"time"
)

const accountQuery = "SELECT id, username, name, email, password_hash, created_at, updated_at FROM accounts "

func (db *PgRepository) scanAccount(row *sql.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.Id,
		&u.Username,
		&u.Name,
		&u.EmailAddress,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}

	u.Roles, err = db.rolesForAccount(u.Id)
	return u, err
}

// rolesForAccount loads the account's roles with their permission triples
// in one pass. The snapshot is read-only for the rest of the request.
func (db *PgRepository) rolesForAccount(accountId int) ([]Role, error) {
	rows, err := db.conn.Query(
		"SELECT r.id, r.name, p.id, p.entity, p.action, p.scope FROM account_roles ar "+
			"JOIN roles r ON r.id = ar.role_id "+
			"JOIN role_permissions rp ON rp.role_id = r.id "+
			"JOIN permissions p ON p.id = rp.permission_id "+
			"WHERE ar.account_id = $1 ORDER BY r.id, p.id",
		accountId,
	)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []Role
	for rows.Next() {
		var (
			roleId   int
			roleName string
			perm     Permission
		)
		if err := rows.Scan(&roleId, &roleName, &perm.Id, &perm.Entity, &perm.Action, &perm.Scope); err != nil {
			return nil, fmt.Errorf("scan role row: %w", err)
		}

		if len(roles) == 0 || roles[len(roles)-1].Id != roleId {
			roles = append(roles, Role{Id: roleId, Name: roleName})
		}
		last := &roles[len(roles)-1]
		last.Permissions = append(last.Permissions, perm)
	}

	return roles, rows.Err()
}

func (db *PgRepository) GetAccountById(accountId int) (User, error) {
	return db.scanAccount(db.conn.QueryRow(accountQuery+"WHERE id = $1 LIMIT 1", accountId))
}

func (db *PgRepository) GetAccountByEmail(email string) (User, error) {
	return db.scanAccount(db.conn.QueryRow(accountQuery+"WHERE email = $1 LIMIT 1", email))
}

func (db *PgRepository) GetAccountByUsername(username string) (User, error) {
	return db.scanAccount(db.conn.QueryRow(accountQuery+"WHERE username = $1 LIMIT 1", username))
}

// GetChannelByName returns the channel with its owner, privacy flag and
// membership roster. Privacy is derived from the presence of the
// private_channels extension row.
func (db *PgRepository) GetChannelByName(name string) (Channel, error) {
	row := db.conn.QueryRow(
		"SELECT c.id, c.external_id, c.name, c.description, c.owner_id, "+
			"a.username, a.name, pc.channel_id IS NOT NULL, c.created_at, c.updated_at "+
			"FROM channels c "+
			"JOIN accounts a ON a.id = c.owner_id "+
			"LEFT JOIN private_channels pc ON pc.channel_id = c.id "+
			"WHERE c.name = $1 LIMIT 1",
		name,
	)

	var ch Channel
	err := row.Scan(
		&ch.Id,
		&ch.ExternalId,
		&ch.Name,
		&ch.Description,
		&ch.OwnerId,
		&ch.Owner.Username,
		&ch.Owner.Name,
		&ch.IsPrivate,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)
	if err != nil {
		return Channel{}, err
	}
	ch.Owner.Id = ch.OwnerId

	if !ch.IsPrivate {
		return ch, nil
	}

	rows, err := db.conn.Query(
		"SELECT a.id, a.username, a.name FROM memberships m "+
			"JOIN accounts a ON a.id = m.account_id WHERE m.channel_id = $1 ORDER BY m.id",
		ch.Id,
	)
	if err != nil {
		return Channel{}, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var member User
		if err := rows.Scan(&member.Id, &member.Username, &member.Name); err != nil {
			return Channel{}, fmt.Errorf("scan member row: %w", err)
		}
		ch.Members = append(ch.Members, member)
		ch.MemberIds = append(ch.MemberIds, member.Id)
	}

	return ch, rows.Err()
}

// SearchChannels filters the directory in a single pass: a channel is
// visible when it is public, the requester is a member or the owner, or
// includeAll is set (admin override). An empty ownerFilter matches any
// owner. Capped at 50 rows.
func (db *PgRepository) SearchChannels(accountId int, nameFilter, ownerFilter string, includeAll bool) ([]ChannelSummary, error) {
	like := "%" + nameFilter + "%"
	rows, err := db.conn.Query(
		"SELECT DISTINCT c.id, c.name FROM channels c "+
			"JOIN accounts a ON a.id = c.owner_id "+
			"LEFT JOIN private_channels pc ON pc.channel_id = c.id "+
			"LEFT JOIN memberships m ON m.channel_id = pc.channel_id "+
			"WHERE c.name LIKE $1 "+
			"AND ($4 = '' OR a.username = $4) "+
			"AND (pc.channel_id IS NULL OR m.account_id = $2 OR c.owner_id = $2 OR $3) "+
			"LIMIT 50",
		like,
		accountId,
		includeAll,
		ownerFilter,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels = make([]ChannelSummary, 0)
	for rows.Next() {
		var ch ChannelSummary
		if err := rows.Scan(&ch.Id, &ch.Name); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		channels = append(channels, ch)
	}

	return channels, rows.Err()
}

// CreateChannel inserts the channel and, for private channels, its
// extension row in one transaction.
func (db *PgRepository) CreateChannel(params CreateChannelParams) (Channel, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Channel{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"INSERT INTO channels (external_id, name, description, owner_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"RETURNING id, external_id, name, description, owner_id, created_at, updated_at",
		params.ExternalId,
		params.Name,
		params.Description,
		params.OwnerId,
		time.Now().UTC(),
		time.Now().UTC(),
	)

	var ch Channel
	err = res.Scan(
		&ch.Id,
		&ch.ExternalId,
		&ch.Name,
		&ch.Description,
		&ch.OwnerId,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)
	if err != nil {
		return Channel{}, err
	}

	if params.IsPrivate {
		_, err = tx.Exec(
			"INSERT INTO private_channels (channel_id, created_at) VALUES ($1, $2)",
			ch.Id,
			time.Now().UTC(),
		)
		if err != nil {
			return Channel{}, err
		}
		ch.IsPrivate = true
	}

	if err = tx.Commit(); err != nil {
		return Channel{}, err
	}

	return ch, nil
}

// UpdateChannel applies the patch and reconciles the privacy extension:
// switching to private creates an empty extension, switching to public
// drops the extension and its memberships.
func (db *PgRepository) UpdateChannel(params UpdateChannelParams) (Channel, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return Channel{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res := tx.QueryRow(
		"UPDATE channels SET name = $2, description = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, external_id, name, description, owner_id, created_at, updated_at",
		params.ChannelId,
		params.Name,
		params.Description,
		time.Now().UTC(),
	)

	var ch Channel
	err = res.Scan(
		&ch.Id,
		&ch.ExternalId,
		&ch.Name,
		&ch.Description,
		&ch.OwnerId,
		&ch.CreatedAt,
		&ch.UpdatedAt,
	)
	if err != nil {
		return Channel{}, err
	}

	if params.IsPrivate {
		_, err = tx.Exec(
			"INSERT INTO private_channels (channel_id, created_at) VALUES ($1, $2) "+
				"ON CONFLICT (channel_id) DO NOTHING",
			ch.Id,
			time.Now().UTC(),
		)
		if err != nil {
			return Channel{}, err
		}
	} else {
		_, err = tx.Exec("DELETE FROM memberships WHERE channel_id = $1", ch.Id)
		if err != nil {
			return Channel{}, err
		}

		_, err = tx.Exec("DELETE FROM private_channels WHERE channel_id = $1", ch.Id)
		if err != nil {
			return Channel{}, err
		}
	}
	ch.IsPrivate = params.IsPrivate

	if err = tx.Commit(); err != nil {
		return Channel{}, err
	}

	return ch, nil
}

// DeleteChannel cascades to messages, memberships and the privacy
// extension in one transaction.
func (db *PgRepository) DeleteChannel(channelId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("DELETE FROM messages WHERE channel_id = $1", channelId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM memberships WHERE channel_id = $1", channelId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM private_channels WHERE channel_id = $1", channelId)
	if err != nil {
		return err
	}

	res, err := tx.Exec("DELETE FROM channels WHERE id = $1", channelId)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = sql.ErrNoRows
		return err
	}

	return tx.Commit()
}

func (db *PgRepository) CreateMembership(channelId, accountId int) (Membership, error) {
	res := db.conn.QueryRow(
		"INSERT INTO memberships (channel_id, account_id, created_at) "+
			"VALUES ($1, $2, $3) RETURNING id, channel_id, account_id, created_at",
		channelId,
		accountId,
		time.Now().UTC(),
	)

	var m Membership
	err := res.Scan(
		&m.Id,
		&m.ChannelId,
		&m.AccountId,
		&m.CreatedAt,
	)

	return m, err
}

func (db *PgRepository) DeleteMembership(channelId, accountId int) error {
	res, err := db.conn.Exec(
		"DELETE FROM memberships WHERE channel_id = $1 AND account_id = $2",
		channelId,
		accountId,
	)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

func (db *PgRepository) MembershipExists(channelId, accountId int) bool {
	var id int
	err := db.conn.QueryRow(
		"SELECT id FROM memberships WHERE channel_id = $1 AND account_id = $2 LIMIT 1",
		channelId,
		accountId,
	).Scan(&id)

	return err == nil
}

func (db *PgRepository) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (channel_id, user_id, text, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, channel_id, user_id, text, created_at",
		params.ChannelId,
		params.UserId,
		params.Text,
		time.Now().UTC(),
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.ChannelId,
		&msg.UserId,
		&msg.Text,
		&msg.CreatedAt,
	)

	return msg, err
}

// GetMessages returns the channel's messages in creation order, ties
// broken by id for determinism.
func (db *PgRepository) GetMessages(channelId, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(
		"SELECT m.id, m.channel_id, m.user_id, a.username, m.text, m.created_at FROM messages m "+
			"JOIN accounts a ON a.id = m.user_id "+
			"WHERE m.channel_id = $1 ORDER BY m.created_at, m.id LIMIT $2",
		channelId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0, limit)
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.Id, &msg.ChannelId, &msg.UserId, &msg.Username, &msg.Text, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, rows.Err()
}
