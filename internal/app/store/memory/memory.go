// Package memory implements store.Store in process memory.
// It backs tests and the STORE_DRIVER=memory mode; nothing survives a restart.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"messenger/internal/app/store"
)

type unlock struct {
	achievementID string
	at            time.Time
}

// Store is a mutex-guarded in-memory store.Store.
type Store struct {
	mu sync.RWMutex

	users          map[string]*store.User
	friendRequests map[string]*store.FriendRequest
	friendships    map[string]time.Time // keyed by store.PairKey
	chats          map[string]*store.Chat
	privateChats   map[string]string // pair key -> chat id
	messages       map[string]*store.Message
	chatMessages   map[string][]string // chat id -> message ids, oldest first
	achievements   map[string]*store.Achievement
	unlocks        map[string][]unlock // user id -> unlocks, oldest first
}

var _ store.Store = (*Store)(nil)

// New returns an empty store seeded with the default achievement catalog.
func New() *Store {
	s := &Store{
		users:          make(map[string]*store.User),
		friendRequests: make(map[string]*store.FriendRequest),
		friendships:    make(map[string]time.Time),
		chats:          make(map[string]*store.Chat),
		privateChats:   make(map[string]string),
		messages:       make(map[string]*store.Message),
		chatMessages:   make(map[string][]string),
		achievements:   make(map[string]*store.Achievement),
		unlocks:        make(map[string][]unlock),
	}

	for _, a := range store.DefaultCatalog() {
		s.achievements[a.ID] = a
	}

	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func cloneUser(u *store.User) *store.User {
	c := *u
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

func cloneChat(c *store.Chat) *store.Chat {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	return &out
}

func cloneMessage(m *store.Message) *store.Message {
	out := *m
	out.Files = append([]string{}, m.Files...)
	return &out
}

func cloneAchievement(a *store.Achievement) *store.Achievement {
	out := *a
	return &out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ---- users ----

func (s *Store) CreateUser(_ context.Context, u *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return store.ErrConflict
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return store.ErrConflict
		}
	}

	s.users[u.ID] = cloneUser(u)
	return nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) findUser(match func(*store.User) bool) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (*store.User, error) {
	return s.findUser(func(u *store.User) bool { return strings.EqualFold(u.Username, username) })
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*store.User, error) {
	return s.findUser(func(u *store.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *Store) UsersByIDs(_ context.Context, ids []string) ([]*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.User, 0, len(ids))
	for _, id := range lo.Uniq(ids) {
		if u, ok := s.users[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (s *Store) sortedUsers() []*store.User {
	users := lo.Values(s.users)
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users
}

func (s *Store) ListUsers(_ context.Context, limit, offset int) ([]*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lo.Map(page(s.sortedUsers(), limit, offset), func(u *store.User, _ int) *store.User {
		return cloneUser(u)
	}), nil
}

func (s *Store) SearchUsers(_ context.Context, query, excludeID string, limit int) ([]*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	matches := lo.Filter(s.sortedUsers(), func(u *store.User, _ int) bool {
		return u.ID != excludeID && strings.Contains(strings.ToLower(u.Name), q)
	})

	return lo.Map(page(matches, limit, 0), func(u *store.User, _ int) *store.User {
		return cloneUser(u)
	}), nil
}

func (s *Store) updateUser(id string, mutate func(u *store.User)) (*store.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	mutate(u)
	u.UpdatedAt = time.Now().UTC()
	return cloneUser(u), nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, upd store.ProfileUpdate) (*store.User, error) {
	return s.updateUser(id, func(u *store.User) {
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Status != nil {
			u.Profile.Status = *upd.Status
		}
		if upd.Bio != nil {
			u.Profile.Bio = *upd.Bio
		}
		if upd.BackgroundColor != nil {
			u.Profile.BackgroundColor = *upd.BackgroundColor
		}
		if upd.Banner != nil {
			u.Profile.Banner = *upd.Banner
		}
	})
}

func (s *Store) SetAvatar(_ context.Context, id, avatar string) (*store.User, error) {
	return s.updateUser(id, func(u *store.User) { u.Avatar = avatar })
}

func (s *Store) SetRole(_ context.Context, id string, role store.Role) (*store.User, error) {
	return s.updateUser(id, func(u *store.User) { u.Role = role })
}

func (s *Store) SetBlocked(_ context.Context, id string, blocked bool) (*store.User, error) {
	return s.updateUser(id, func(u *store.User) { u.Blocked = blocked })
}

func (s *Store) TouchLogin(_ context.Context, id string, at time.Time) error {
	_, err := s.updateUser(id, func(u *store.User) { u.LastLogin = &at })
	return err
}

// ---- friends ----

func (s *Store) CreateFriendRequest(_ context.Context, req *store.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := store.PairKey(req.FromUserID, req.ToUserID)
	for _, existing := range s.friendRequests {
		if existing.Status == store.FriendRequestPending && store.PairKey(existing.FromUserID, existing.ToUserID) == key {
			return store.ErrConflict
		}
	}

	c := *req
	s.friendRequests[req.ID] = &c
	return nil
}

func (s *Store) FindFriendRequest(_ context.Context, id string) (*store.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fr, ok := s.friendRequests[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *fr
	return &c, nil
}

func (s *Store) PendingRequestsFor(_ context.Context, userID string) ([]*store.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.FriendRequest, 0)
	for _, fr := range s.friendRequests {
		if fr.ToUserID == userID && fr.Status == store.FriendRequestPending {
			c := *fr
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) resolveRequest(requestID, recipientID string, status store.FriendRequestStatus) (*store.FriendRequest, error) {
	fr, ok := s.friendRequests[requestID]
	if !ok || fr.ToUserID != recipientID || fr.Status != store.FriendRequestPending {
		return nil, store.ErrNotFound
	}
	fr.Status = status
	c := *fr
	return &c, nil
}

func (s *Store) AcceptFriendRequest(_ context.Context, requestID, accepterID string) (*store.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fr, ok := s.friendRequests[requestID]
	if !ok || fr.ToUserID != accepterID || fr.Status != store.FriendRequestPending {
		return nil, store.ErrNotFound
	}
	from, okFrom := s.users[fr.FromUserID]
	to, okTo := s.users[fr.ToUserID]
	if !okFrom || !okTo {
		return nil, store.ErrNotFound
	}

	out, err := s.resolveRequest(requestID, accepterID, store.FriendRequestAccepted)
	if err != nil {
		return nil, err
	}

	key := store.PairKey(fr.FromUserID, fr.ToUserID)
	if _, already := s.friendships[key]; !already {
		s.friendships[key] = time.Now().UTC()
		from.Stats.FriendCount++
		to.Stats.FriendCount++
	}
	return out, nil
}

func (s *Store) RejectFriendRequest(_ context.Context, requestID, rejecterID string) (*store.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resolveRequest(requestID, rejecterID, store.FriendRequestRejected)
}

func (s *Store) AreFriends(_ context.Context, a, b string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.friendships[store.PairKey(a, b)]
	return ok, nil
}

func (s *Store) RemoveFriendship(_ context.Context, a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := store.PairKey(a, b)
	if _, ok := s.friendships[key]; !ok {
		return store.ErrNotFound
	}
	delete(s.friendships, key)

	for _, id := range []string{a, b} {
		if u, ok := s.users[id]; ok && u.Stats.FriendCount > 0 {
			u.Stats.FriendCount--
		}
	}
	return nil
}

func (s *Store) ListFriends(_ context.Context, userID string) ([]*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.User, 0)
	for _, u := range s.sortedUsers() {
		if u.ID == userID {
			continue
		}
		if _, ok := s.friendships[store.PairKey(userID, u.ID)]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

// ---- chats ----

func (s *Store) CreateChat(_ context.Context, c *store.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.chats[c.ID]; ok {
		return store.ErrConflict
	}

	if c.Type == store.ChatPrivate && len(c.Participants) == 2 {
		key := store.PairKey(c.Participants[0], c.Participants[1])
		if _, ok := s.privateChats[key]; ok {
			return store.ErrConflict
		}
		s.privateChats[key] = c.ID
	}

	s.chats[c.ID] = cloneChat(c)
	return nil
}

func (s *Store) FindChat(_ context.Context, id string) (*store.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneChat(c), nil
}

func (s *Store) FindPrivateChat(_ context.Context, a, b string) (*store.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.privateChats[store.PairKey(a, b)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneChat(s.chats[id]), nil
}

func (s *Store) ChatsForUser(_ context.Context, userID string) ([]*store.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Chat, 0)
	for _, c := range s.chats {
		if c.HasParticipant(userID) {
			out = append(out, cloneChat(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastMessageAt.After(out[j].LastMessageAt) })
	return out, nil
}

func (s *Store) ChatParticipants(_ context.Context, chatID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[chatID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]string(nil), c.Participants...), nil
}

func (s *Store) CreateMessage(_ context.Context, m *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[m.ChatID]
	if !ok {
		return store.ErrNotFound
	}
	sender, ok := s.users[m.SenderID]
	if !ok {
		return store.ErrNotFound
	}

	s.messages[m.ID] = cloneMessage(m)
	s.chatMessages[m.ChatID] = append(s.chatMessages[m.ChatID], m.ID)
	c.MessageCount++
	c.LastMessageAt = m.CreatedAt
	sender.Stats.MessageCount++
	return nil
}

func (s *Store) FindMessage(_ context.Context, id string) (*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMessage(m), nil
}

func (s *Store) ListMessages(_ context.Context, chatID string, limit, offset int) ([]*store.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.chatMessages[chatID]
	newestFirst := make([]*store.Message, 0, len(ids))
	for i := len(ids) - 1; i >= 0; i-- {
		newestFirst = append(newestFirst, cloneMessage(s.messages[ids[i]]))
	}
	return page(newestFirst, limit, offset), nil
}

func (s *Store) DeleteMessage(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.messages, id)
	s.chatMessages[m.ChatID] = lo.Without(s.chatMessages[m.ChatID], id)
	if c, ok := s.chats[m.ChatID]; ok && c.MessageCount > 0 {
		c.MessageCount--
	}
	return nil
}

// ---- achievements ----

func (s *Store) ListAchievements(_ context.Context, activeOnly bool) ([]*store.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Achievement, 0, len(s.achievements))
	for _, a := range s.achievements {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, cloneAchievement(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) FindAchievement(_ context.Context, id string) (*store.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.achievements[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneAchievement(a), nil
}

func (s *Store) FindAchievementByName(_ context.Context, name string) (*store.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.achievements {
		if a.Name == name {
			return cloneAchievement(a), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) nameTaken(name, exceptID string) bool {
	for _, a := range s.achievements {
		if a.Name == name && a.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *Store) CreateAchievement(_ context.Context, a *store.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.achievements[a.ID]; ok || s.nameTaken(a.Name, "") {
		return store.ErrConflict
	}
	s.achievements[a.ID] = cloneAchievement(a)
	return nil
}

func (s *Store) UpdateAchievement(_ context.Context, id string, upd store.AchievementUpdate) (*store.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.achievements[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.Name != nil && s.nameTaken(*upd.Name, id) {
		return nil, store.ErrConflict
	}

	if upd.Name != nil {
		a.Name = *upd.Name
	}
	if upd.Description != nil {
		a.Description = *upd.Description
	}
	if upd.Image != nil {
		a.Image = *upd.Image
	}
	if upd.Type != nil {
		a.Type = *upd.Type
	}
	if upd.Active != nil {
		a.Active = *upd.Active
	}
	return cloneAchievement(a), nil
}

func (s *Store) DeleteAchievement(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.achievements[id]; !ok {
		return store.ErrNotFound
	}
	for _, held := range s.unlocks {
		if lo.ContainsBy(held, func(h unlock) bool { return h.achievementID == id }) {
			return store.ErrInUse
		}
	}
	delete(s.achievements, id)
	return nil
}

func (s *Store) AssignAchievement(_ context.Context, userID, achievementID string, at time.Time) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return time.Time{}, false, store.ErrNotFound
	}
	if _, ok := s.achievements[achievementID]; !ok {
		return time.Time{}, false, store.ErrNotFound
	}

	if held, found := lo.Find(s.unlocks[userID], func(h unlock) bool { return h.achievementID == achievementID }); found {
		return held.at, false, nil
	}

	s.unlocks[userID] = append(s.unlocks[userID], unlock{achievementID: achievementID, at: at})
	u.Stats.AchievementCount++
	return at, true, nil
}

func (s *Store) RevokeAchievement(_ context.Context, userID, achievementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	held := s.unlocks[userID]
	_, idx, found := lo.FindIndexOf(held, func(h unlock) bool { return h.achievementID == achievementID })
	if !found {
		return store.ErrNotFound
	}
	s.unlocks[userID] = append(held[:idx:idx], held[idx+1:]...)

	if u, ok := s.users[userID]; ok && u.Stats.AchievementCount > 0 {
		u.Stats.AchievementCount--
	}
	return nil
}

func (s *Store) UserAchievements(_ context.Context, userID string, limit, offset int) ([]*store.UnlockedAchievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	held := s.unlocks[userID]
	out := make([]*store.UnlockedAchievement, 0, len(held))
	for i := len(held) - 1; i >= 0; i-- {
		a, ok := s.achievements[held[i].achievementID]
		if !ok {
			continue
		}
		out = append(out, &store.UnlockedAchievement{Achievement: *a, UnlockedAt: held[i].at})
	}
	return page(out, limit, offset), nil
}
