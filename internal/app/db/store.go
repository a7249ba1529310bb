package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"messenger/internal/app/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// Store implements store.Store on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

// NewStore wraps an already migrated pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return mapErr(pgx.BeginFunc(ctx, s.pool, fn))
}

// limitArg turns a non-positive limit into NULL, which Postgres reads as "no limit".
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}

// ---- users ----

const userColumns = `id, username, email, password_hash, name, avatar, role, blocked,
	status, bio, background_color, banner,
	message_count, friend_count, achievement_count, level,
	last_login, created_at, updated_at`

func scanUser(row scanner) (*store.User, error) {
	var (
		u    store.User
		role string
	)
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Name, &u.Avatar, &role, &u.Blocked,
		&u.Profile.Status, &u.Profile.Bio, &u.Profile.BackgroundColor, &u.Profile.Banner,
		&u.Stats.MessageCount, &u.Stats.FriendCount, &u.Stats.AchievementCount, &u.Stats.Level,
		&u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Role = store.Role(role)
	return &u, nil
}

func queryUsers(ctx context.Context, q querier, sql string, args ...any) ([]*store.User, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*store.User, error) {
		return scanUser(row)
	})
	return users, mapErr(err)
}

func queryUser(ctx context.Context, q querier, sql string, args ...any) (*store.User, error) {
	u, err := scanUser(q.QueryRow(ctx, sql, args...))
	return u, mapErr(err)
}

func (s *Store) CreateUser(ctx context.Context, u *store.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, name, avatar, role, blocked,
			status, bio, background_color, banner, level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Name, u.Avatar, string(u.Role), u.Blocked,
		u.Profile.Status, u.Profile.Bio, u.Profile.BackgroundColor, u.Profile.Banner, u.Stats.Level, u.CreatedAt,
	)
	return mapErr(err)
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*store.User, error) {
	return queryUser(ctx, s.pool, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*store.User, error) {
	return queryUser(ctx, s.pool, `SELECT `+userColumns+` FROM users WHERE LOWER(username) = LOWER($1)`, username)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return queryUser(ctx, s.pool, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (s *Store) UsersByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	return queryUsers(ctx, s.pool, `SELECT `+userColumns+` FROM users WHERE id = ANY($1) ORDER BY created_at`, ids)
}

func (s *Store) ListUsers(ctx context.Context, limit, offset int) ([]*store.User, error) {
	return queryUsers(ctx, s.pool,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, id LIMIT $1 OFFSET $2`,
		limitArg(limit), offset)
}

func (s *Store) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]*store.User, error) {
	return queryUsers(ctx, s.pool, `
		SELECT `+userColumns+` FROM users
		WHERE id <> $2 AND LOWER(name) LIKE $1
		ORDER BY created_at, id
		LIMIT $3`,
		likePattern(query), excludeID, limitArg(limit))
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd store.ProfileUpdate) (*store.User, error) {
	return queryUser(ctx, s.pool, `
		UPDATE users SET
			name = COALESCE($2, name),
			status = COALESCE($3, status),
			bio = COALESCE($4, bio),
			background_color = COALESCE($5, background_color),
			banner = COALESCE($6, banner),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, upd.Name, upd.Status, upd.Bio, upd.BackgroundColor, upd.Banner)
}

func (s *Store) SetAvatar(ctx context.Context, id, avatar string) (*store.User, error) {
	return queryUser(ctx, s.pool,
		`UPDATE users SET avatar = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, avatar)
}

func (s *Store) SetRole(ctx context.Context, id string, role store.Role) (*store.User, error) {
	return queryUser(ctx, s.pool,
		`UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, string(role))
}

func (s *Store) SetBlocked(ctx context.Context, id string, blocked bool) (*store.User, error) {
	return queryUser(ctx, s.pool,
		`UPDATE users SET blocked = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, blocked)
}

func (s *Store) TouchLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ---- friends ----

const friendRequestColumns = `id, from_user_id, to_user_id, status, created_at`

func scanFriendRequest(row scanner) (*store.FriendRequest, error) {
	var (
		fr     store.FriendRequest
		status string
	)
	if err := row.Scan(&fr.ID, &fr.FromUserID, &fr.ToUserID, &status, &fr.CreatedAt); err != nil {
		return nil, err
	}
	fr.Status = store.FriendRequestStatus(status)
	return &fr, nil
}

func (s *Store) CreateFriendRequest(ctx context.Context, req *store.FriendRequest) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO friend_requests (id, from_user_id, to_user_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		req.ID, req.FromUserID, req.ToUserID, string(req.Status), req.CreatedAt)
	return mapErr(err)
}

func (s *Store) FindFriendRequest(ctx context.Context, id string) (*store.FriendRequest, error) {
	fr, err := scanFriendRequest(s.pool.QueryRow(ctx,
		`SELECT `+friendRequestColumns+` FROM friend_requests WHERE id = $1`, id))
	return fr, mapErr(err)
}

func (s *Store) PendingRequestsFor(ctx context.Context, userID string) ([]*store.FriendRequest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+friendRequestColumns+` FROM friend_requests
		WHERE to_user_id = $1 AND status = 'pending'
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*store.FriendRequest, error) {
		return scanFriendRequest(row)
	})
	return out, mapErr(err)
}

func resolveRequest(ctx context.Context, q querier, requestID, recipientID string, status store.FriendRequestStatus) (*store.FriendRequest, error) {
	return scanFriendRequest(q.QueryRow(ctx, `
		UPDATE friend_requests SET status = $3
		WHERE id = $1 AND to_user_id = $2 AND status = 'pending'
		RETURNING `+friendRequestColumns,
		requestID, recipientID, string(status)))
}

func (s *Store) AcceptFriendRequest(ctx context.Context, requestID, accepterID string) (*store.FriendRequest, error) {
	var out *store.FriendRequest

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		fr, err := resolveRequest(ctx, tx, requestID, accepterID, store.FriendRequestAccepted)
		if err != nil {
			return err
		}

		a, b := fr.FromUserID, fr.ToUserID
		if a > b {
			a, b = b, a
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO friendships (user_a, user_b) VALUES ($1, $2) ON CONFLICT DO NOTHING`, a, b)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 1 {
			if _, err := tx.Exec(ctx,
				`UPDATE users SET friend_count = friend_count + 1 WHERE id IN ($1, $2)`, a, b); err != nil {
				return err
			}
		}

		out = fr
		return nil
	})

	return out, err
}

func (s *Store) RejectFriendRequest(ctx context.Context, requestID, rejecterID string) (*store.FriendRequest, error) {
	fr, err := resolveRequest(ctx, s.pool, requestID, rejecterID, store.FriendRequestRejected)
	return fr, mapErr(err)
}

func (s *Store) AreFriends(ctx context.Context, a, b string) (bool, error) {
	if a > b {
		a, b = b, a
	}
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM friendships WHERE user_a = $1 AND user_b = $2)`, a, b).Scan(&exists)
	return exists, mapErr(err)
}

func (s *Store) RemoveFriendship(ctx context.Context, a, b string) error {
	if a > b {
		a, b = b, a
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM friendships WHERE user_a = $1 AND user_b = $2`, a, b)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET friend_count = GREATEST(friend_count - 1, 0) WHERE id IN ($1, $2)`, a, b)
		return err
	})
}

func (s *Store) ListFriends(ctx context.Context, userID string) ([]*store.User, error) {
	return queryUsers(ctx, s.pool, `
		SELECT `+userColumns+` FROM users
		WHERE id IN (
			SELECT user_b FROM friendships WHERE user_a = $1
			UNION
			SELECT user_a FROM friendships WHERE user_b = $1
		)
		ORDER BY created_at, id`, userID)
}

// ---- chats ----

const chatColumns = `c.id, c.name, c.type, c.description, c.avatar, c.created_by,
	c.message_count, c.last_message_at, c.created_at,
	ARRAY(SELECT p.user_id FROM chat_participants p WHERE p.chat_id = c.id ORDER BY p.position, p.user_id)`

func scanChat(row scanner) (*store.Chat, error) {
	var (
		c        store.Chat
		chatType string
	)
	err := row.Scan(&c.ID, &c.Name, &chatType, &c.Description, &c.Avatar, &c.CreatedBy,
		&c.MessageCount, &c.LastMessageAt, &c.CreatedAt, &c.Participants)
	if err != nil {
		return nil, err
	}
	c.Type = store.ChatType(chatType)
	return &c, nil
}

func (s *Store) CreateChat(ctx context.Context, c *store.Chat) error {
	var pairKey *string
	if c.Type == store.ChatPrivate && len(c.Participants) == 2 {
		key := store.PairKey(c.Participants[0], c.Participants[1])
		pairKey = &key
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO chats (id, name, type, description, avatar, created_by, pair_key, last_message_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID, c.Name, string(c.Type), c.Description, c.Avatar, c.CreatedBy, pairKey, c.LastMessageAt, c.CreatedAt)
		if err != nil {
			return err
		}

		batch := &pgx.Batch{}
		for i, userID := range c.Participants {
			batch.Queue(`INSERT INTO chat_participants (chat_id, user_id, position, joined_at) VALUES ($1, $2, $3, $4)`,
				c.ID, userID, i, c.CreatedAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *Store) FindChat(ctx context.Context, id string) (*store.Chat, error) {
	c, err := scanChat(s.pool.QueryRow(ctx, `SELECT `+chatColumns+` FROM chats c WHERE c.id = $1`, id))
	return c, mapErr(err)
}

func (s *Store) FindPrivateChat(ctx context.Context, a, b string) (*store.Chat, error) {
	c, err := scanChat(s.pool.QueryRow(ctx,
		`SELECT `+chatColumns+` FROM chats c WHERE c.pair_key = $1`, store.PairKey(a, b)))
	return c, mapErr(err)
}

func (s *Store) ChatsForUser(ctx context.Context, userID string) ([]*store.Chat, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+chatColumns+` FROM chats c
		WHERE EXISTS (SELECT 1 FROM chat_participants p WHERE p.chat_id = c.id AND p.user_id = $1)
		ORDER BY c.last_message_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*store.Chat, error) {
		return scanChat(row)
	})
	return out, mapErr(err)
}

func (s *Store) ChatParticipants(ctx context.Context, chatID string) ([]string, error) {
	var (
		exists       bool
		participants []string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1),
			ARRAY(SELECT user_id FROM chat_participants WHERE chat_id = $1 ORDER BY position, user_id)`,
		chatID).Scan(&exists, &participants)
	if err != nil {
		return nil, mapErr(err)
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	return participants, nil
}

const messageColumns = `id, chat_id, sender_id, text, files, sticker, created_at`

func scanMessage(row scanner) (*store.Message, error) {
	var m store.Message
	if err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.Files, &m.Sticker, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Store) CreateMessage(ctx context.Context, m *store.Message) error {
	files := m.Files
	if files == nil {
		files = []string{}
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE chats SET message_count = message_count + 1, last_message_at = $2
			WHERE id = $1`, m.ChatID, m.CreatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO messages (id, chat_id, sender_id, text, files, sticker, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ID, m.ChatID, m.SenderID, m.Text, files, m.Sticker, m.CreatedAt); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `UPDATE users SET message_count = message_count + 1 WHERE id = $1`, m.SenderID)
		return err
	})
}

func (s *Store) FindMessage(ctx context.Context, id string) (*store.Message, error) {
	m, err := scanMessage(s.pool.QueryRow(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	return m, mapErr(err)
}

func (s *Store) ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*store.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM messages
		WHERE chat_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`, chatID, limitArg(limit), offset)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*store.Message, error) {
		return scanMessage(row)
	})
	return out, mapErr(err)
}

func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var chatID string
		if err := tx.QueryRow(ctx, `DELETE FROM messages WHERE id = $1 RETURNING chat_id`, id).Scan(&chatID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE chats SET message_count = GREATEST(message_count - 1, 0) WHERE id = $1`, chatID)
		return err
	})
}

// ---- achievements ----

const achievementColumns = `id, name, description, image, type, level, active, created_at`

func scanAchievement(row scanner, extra ...any) (*store.Achievement, error) {
	var (
		a       store.Achievement
		achType string
	)
	dest := append([]any{&a.ID, &a.Name, &a.Description, &a.Image, &achType, &a.Level, &a.Active, &a.CreatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	a.Type = store.AchievementType(achType)
	return &a, nil
}

func (s *Store) ListAchievements(ctx context.Context, activeOnly bool) ([]*store.Achievement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+achievementColumns+` FROM achievements
		WHERE active OR NOT $1
		ORDER BY created_at, id`, activeOnly)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*store.Achievement, error) {
		return scanAchievement(row)
	})
	return out, mapErr(err)
}

func (s *Store) FindAchievement(ctx context.Context, id string) (*store.Achievement, error) {
	a, err := scanAchievement(s.pool.QueryRow(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE id = $1`, id))
	return a, mapErr(err)
}

func (s *Store) FindAchievementByName(ctx context.Context, name string) (*store.Achievement, error) {
	a, err := scanAchievement(s.pool.QueryRow(ctx, `SELECT `+achievementColumns+` FROM achievements WHERE name = $1`, name))
	return a, mapErr(err)
}

func (s *Store) CreateAchievement(ctx context.Context, a *store.Achievement) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO achievements (id, name, description, image, type, level, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Name, a.Description, a.Image, string(a.Type), a.Level, a.Active, a.CreatedAt)
	return mapErr(err)
}

func (s *Store) UpdateAchievement(ctx context.Context, id string, upd store.AchievementUpdate) (*store.Achievement, error) {
	var achType *string
	if upd.Type != nil {
		t := string(*upd.Type)
		achType = &t
	}

	a, err := scanAchievement(s.pool.QueryRow(ctx, `
		UPDATE achievements SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			image = COALESCE($4, image),
			type = COALESCE($5, type),
			active = COALESCE($6, active)
		WHERE id = $1
		RETURNING `+achievementColumns,
		id, upd.Name, upd.Description, upd.Image, achType, upd.Active))
	return a, mapErr(err)
}

func (s *Store) DeleteAchievement(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM achievements WHERE id = $1`, id)
	if IsForeignKeyViolation(err) {
		return store.ErrInUse
	}
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AssignAchievement(ctx context.Context, userID, achievementID string, at time.Time) (time.Time, bool, error) {
	var (
		unlockedAt time.Time
		created    bool
	)

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (user_id, achievement_id) DO NOTHING`, userID, achievementID, at)
		if err != nil {
			return err
		}

		if tag.RowsAffected() == 0 {
			return tx.QueryRow(ctx, `
				SELECT unlocked_at FROM user_achievements
				WHERE user_id = $1 AND achievement_id = $2`, userID, achievementID).Scan(&unlockedAt)
		}

		created = true
		unlockedAt = at
		_, err = tx.Exec(ctx,
			`UPDATE users SET achievement_count = achievement_count + 1 WHERE id = $1`, userID)
		return err
	})

	return unlockedAt, created, err
}

func (s *Store) RevokeAchievement(ctx context.Context, userID, achievementID string) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM user_achievements WHERE user_id = $1 AND achievement_id = $2`, userID, achievementID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}

		_, err = tx.Exec(ctx,
			`UPDATE users SET achievement_count = GREATEST(achievement_count - 1, 0) WHERE id = $1`, userID)
		return err
	})
}

func (s *Store) UserAchievements(ctx context.Context, userID string, limit, offset int) ([]*store.UnlockedAchievement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.name, a.description, a.image, a.type, a.level, a.active, a.created_at, ua.unlocked_at
		FROM user_achievements ua
		JOIN achievements a ON a.id = ua.achievement_id
		WHERE ua.user_id = $1
		ORDER BY ua.unlocked_at DESC, a.id
		LIMIT $2 OFFSET $3`, userID, limitArg(limit), offset)
	if err != nil {
		return nil, mapErr(err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*store.UnlockedAchievement, error) {
		var unlockedAt time.Time
		a, err := scanAchievement(row, &unlockedAt)
		if err != nil {
			return nil, err
		}
		return &store.UnlockedAchievement{Achievement: *a, UnlockedAt: unlockedAt}, nil
	})
	return out, mapErr(err)
}
