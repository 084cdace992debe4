package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/parleychat/parley/internal/types"
)

const messageColumns = "m.id, m.content, m.user_id, m.room_id, m.reply_to_id, m.created_at, u.username"

func (db *PgRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO users (username, password_hash, created_at) "+
			"VALUES ($1, $2, $3) RETURNING id, username, created_at",
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return User{}, ErrDuplicateUser
		}
		return User{}, err
	}

	return u, nil
}

func (db *PgRepository) GetAccountByUsername(username string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at FROM users "+
			"WHERE username = $1 LIMIT 1",
		username,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}

	return user, err
}

func (db *PgRepository) GetAccountById(id int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		id,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}

	return user, err
}

func (db *PgRepository) GetAllRooms() ([]types.Room, error) {
	rows, err := db.conn.Query("SELECT id, name, COALESCE(description, '') FROM rooms ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []types.Room
	for rows.Next() {
		var room types.Room
		if err := rows.Scan(&room.Id, &room.Name, &room.Description); err != nil {
			return nil, err
		}

		rooms = append(rooms, room)
	}

	return rooms, rows.Err()
}

func (db *PgRepository) GetRoomById(id int) (types.Room, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, COALESCE(description, '') FROM rooms WHERE id = $1 LIMIT 1",
		id,
	)

	var room types.Room
	err := row.Scan(&room.Id, &room.Name, &room.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Room{}, ErrNotFound
	}

	return room, err
}

func (db *PgRepository) EnsureDefaultRooms() error {
	var count int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM rooms").Scan(&count); err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	for _, seed := range defaultRooms {
		if _, err := db.conn.Exec(
			"INSERT INTO rooms (name, description) VALUES ($1, $2)",
			seed.name,
			seed.description,
		); err != nil {
			return fmt.Errorf("seed room %q: %w", seed.name, err)
		}
	}

	return nil
}

// scanMessageRow reads a single joined message row without resolving its
// reply target.
func scanMessageRow(row *sql.Row) (types.MessageWithUser, error) {
	var (
		msg       types.MessageWithUser
		replyToId sql.NullInt64
		username  string
	)

	err := row.Scan(
		&msg.Id,
		&msg.Content,
		&msg.UserId,
		&msg.RoomId,
		&replyToId,
		&msg.CreatedAt,
		&username,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return types.MessageWithUser{}, ErrNotFound
	}
	if err != nil {
		return types.MessageWithUser{}, err
	}

	if replyToId.Valid {
		id := int(replyToId.Int64)
		msg.ReplyToId = &id
	}
	msg.User = types.UserRef{Id: msg.UserId, Username: username}

	return msg, nil
}

func (db *PgRepository) getMessageRow(id int) (types.MessageWithUser, error) {
	row := db.conn.QueryRow(
		"SELECT "+messageColumns+" FROM messages m "+
			"JOIN users u ON m.user_id = u.id WHERE m.id = $1",
		id,
	)

	return scanMessageRow(row)
}

// resolveReply attaches the one-level parent to msg. The parent's own
// reply target is left unresolved.
func (db *PgRepository) resolveReply(msg *types.MessageWithUser) error {
	if msg.ReplyToId == nil {
		return nil
	}

	parent, err := db.getMessageRow(*msg.ReplyToId)
	if errors.Is(err, ErrNotFound) {
		// parent was deleted, leave the reference dangling
		return nil
	}
	if err != nil {
		return err
	}

	msg.ReplyTo = &parent
	return nil
}

func (db *PgRepository) GetMessagesByRoom(roomId, limit int) ([]types.MessageWithUser, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.conn.Query(
		"SELECT "+messageColumns+" FROM messages m "+
			"JOIN users u ON m.user_id = u.id "+
			"WHERE m.room_id = $1 ORDER BY m.id DESC LIMIT $2",
		roomId,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []types.MessageWithUser
	for rows.Next() {
		var (
			msg       types.MessageWithUser
			replyToId sql.NullInt64
			username  string
		)

		err := rows.Scan(
			&msg.Id,
			&msg.Content,
			&msg.UserId,
			&msg.RoomId,
			&replyToId,
			&msg.CreatedAt,
			&username,
		)
		if err != nil {
			return nil, err
		}

		if replyToId.Valid {
			id := int(replyToId.Int64)
			msg.ReplyToId = &id
		}
		msg.User = types.UserRef{Id: msg.UserId, Username: username}

		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// reverse into chronological order, oldest first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	for i := range messages {
		if err := db.resolveReply(&messages[i]); err != nil {
			return nil, err
		}
	}

	return messages, nil
}

func (db *PgRepository) GetMessageById(id int) (types.MessageWithUser, error) {
	msg, err := db.getMessageRow(id)
	if err != nil {
		return types.MessageWithUser{}, err
	}

	if err := db.resolveReply(&msg); err != nil {
		return types.MessageWithUser{}, err
	}

	return msg, nil
}

func (db *PgRepository) CreateMessage(params CreateMessageParams) (types.MessageWithUser, error) {
	var id int
	err := db.conn.QueryRow(
		"INSERT INTO messages (content, user_id, room_id, reply_to_id, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id",
		params.Content,
		params.UserId,
		params.RoomId,
		params.ReplyToId,
		time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return types.MessageWithUser{}, err
	}

	return db.GetMessageById(id)
}

func (db *PgRepository) DeleteMessage(id, userId int) (bool, error) {
	res, err := db.conn.Exec(
		"DELETE FROM messages WHERE id = $1 AND user_id = $2",
		id,
		userId,
	)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
