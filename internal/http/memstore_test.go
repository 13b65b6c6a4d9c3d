package http

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/media"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/repository"
)

type reactionKey struct {
	post int64
	user int64
}

// memStore mirrors repository.Store semantics in memory.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]model.User
	orgs      map[int64]model.Org
	materials map[int64]model.Material
	posts     map[int64]model.Post
	comments  map[int64]model.Comment
	replies   []model.Reply
	reactions map[reactionKey]model.Reaction
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]model.User{},
		orgs:      map[int64]model.Org{},
		materials: map[int64]model.Material{},
		posts:     map[int64]model.Post{},
		comments:  map[int64]model.Comment{},
		reactions: map[reactionKey]model.Reaction{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) CreateUser(_ context.Context, user model.User) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return model.User{}, repository.ErrConflict
		}
	}
	if user.OrgID != nil {
		if _, ok := m.orgs[*user.OrgID]; !ok {
			return model.User{}, repository.ErrNotFound
		}
	}
	user.ID = m.id()
	user.CreatedAt = time.Now().UTC()
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) GetUserByID(_ context.Context, id int64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (m *memStore) UsernameTaken(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Name != nil && *user.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) SetUsername(_ context.Context, id int64, name string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	for otherID, other := range m.users {
		if otherID != id && other.Name != nil && *other.Name == name {
			return model.User{}, repository.ErrConflict
		}
	}
	user.Name = &name
	m.users[id] = user
	return user, nil
}

func (m *memStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	m.users[id] = user
	return nil
}

func (m *memStore) SetRefreshToken(_ context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.RefreshTokenHash = &tokenHash
	user.RefreshTokenExpiresAt = &expiresAt
	m.users[id] = user
	return nil
}

func (m *memStore) CreateOrg(_ context.Context, org model.Org) (model.Org, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.orgs {
		if existing.Name == org.Name {
			return model.Org{}, repository.ErrConflict
		}
	}
	org.ID = m.id()
	org.OtherPics = []string{}
	m.orgs[org.ID] = org
	return org, nil
}

func (m *memStore) GetOrg(_ context.Context, id int64) (model.Org, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return model.Org{}, repository.ErrNotFound
	}
	return org, nil
}

func (m *memStore) ListOrgs(_ context.Context) ([]model.Org, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	orgs := []model.Org{}
	for _, org := range m.orgs {
		orgs = append(orgs, org)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].ID < orgs[j].ID })
	return orgs, nil
}

func (m *memStore) updateOrg(id int64, fn func(*model.Org)) (model.Org, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org, ok := m.orgs[id]
	if !ok {
		return model.Org{}, repository.ErrNotFound
	}
	fn(&org)
	m.orgs[id] = org
	return org, nil
}

func (m *memStore) SetOrgLogo(_ context.Context, id int64, url string) (model.Org, error) {
	return m.updateOrg(id, func(o *model.Org) { o.Logo = &url })
}

func (m *memStore) SetOrgMainPic(_ context.Context, id int64, url string) (model.Org, error) {
	return m.updateOrg(id, func(o *model.Org) { o.MainPic = &url })
}

func (m *memStore) SetOrgVideo(_ context.Context, id int64, url string) (model.Org, error) {
	return m.updateOrg(id, func(o *model.Org) { o.OrgsVideo = &url })
}

func (m *memStore) AppendOrgOtherPics(_ context.Context, id int64, urls []string) (model.Org, error) {
	return m.updateOrg(id, func(o *model.Org) {
		o.OtherPics = append(append([]string{}, o.OtherPics...), urls...)
	})
}

func (m *memStore) DeleteOrg(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orgs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.orgs, id)
	for userID, user := range m.users {
		if user.OrgID != nil && *user.OrgID == id {
			user.OrgID = nil
			m.users[userID] = user
		}
	}
	return nil
}

func (m *memStore) CreateMaterial(_ context.Context, material model.Material) (model.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	material.ID = m.id()
	m.materials[material.ID] = material
	return material, nil
}

func (m *memStore) GetMaterial(_ context.Context, id int64) (model.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	material, ok := m.materials[id]
	if !ok {
		return model.Material{}, repository.ErrNotFound
	}
	return material, nil
}

func (m *memStore) ListMaterials(_ context.Context) ([]model.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	materials := []model.Material{}
	for _, material := range m.materials {
		materials = append(materials, material)
	}
	sort.Slice(materials, func(i, j int) bool { return materials[i].ID < materials[j].ID })
	return materials, nil
}

func (m *memStore) UpdateMaterial(_ context.Context, material model.Material) (model.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[material.ID]; !ok {
		return model.Material{}, repository.ErrNotFound
	}
	m.materials[material.ID] = material
	return material, nil
}

func (m *memStore) DeleteMaterial(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.materials, id)
	return nil
}

// withAuthor must be called with mu held.
func (m *memStore) withAuthor(post model.Post) model.Post {
	author := m.users[post.AuthorID]
	post.Author = model.Author{ID: author.ID, Name: author.Name, Role: author.Role}
	return post
}

func (m *memStore) CreatePost(_ context.Context, post model.Post) (model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[post.AuthorID]; !ok {
		return model.Post{}, repository.ErrNotFound
	}
	post.ID = m.id()
	post.CreatedAt = time.Now().UTC()
	m.posts[post.ID] = post
	return m.withAuthor(post), nil
}

func (m *memStore) GetPost(_ context.Context, id int64) (model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[id]
	if !ok {
		return model.Post{}, repository.ErrNotFound
	}
	post = m.withAuthor(post)
	post.Comments = []model.Comment{}
	for _, comment := range m.sortedComments(id) {
		comment.Replies = []model.Reply{}
		for _, reply := range m.replies {
			if reply.CommentID == comment.ID {
				comment.Replies = append(comment.Replies, reply)
			}
		}
		post.Comments = append(post.Comments, comment)
	}
	return post, nil
}

func (m *memStore) sortedComments(postID int64) []model.Comment {
	var comments []model.Comment
	for _, comment := range m.comments {
		if comment.PostID == postID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments
}

func (m *memStore) listPosts(match func(model.Post) bool, limit, offset int) []model.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	posts := []model.Post{}
	for _, post := range m.posts {
		if match(post) {
			posts = append(posts, m.withAuthor(post))
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	if offset >= len(posts) {
		return []model.Post{}
	}
	posts = posts[offset:]
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts
}

func (m *memStore) ListPostsExcludingAuthor(_ context.Context, authorID int64, limit, offset int) ([]model.Post, error) {
	return m.listPosts(func(p model.Post) bool { return p.AuthorID != authorID }, limit, offset), nil
}

func (m *memStore) ListPostsByAuthor(_ context.Context, authorID int64, limit, offset int) ([]model.Post, error) {
	return m.listPosts(func(p model.Post) bool { return p.AuthorID == authorID }, limit, offset), nil
}

func (m *memStore) UpdatePost(_ context.Context, post model.Post) (model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.posts[post.ID]
	if !ok {
		return model.Post{}, repository.ErrNotFound
	}
	existing.Title = post.Title
	existing.Content = post.Content
	existing.Media = post.Media
	m.posts[post.ID] = existing
	return m.withAuthor(existing), nil
}

func (m *memStore) DeletePost(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memStore) ToggleReaction(_ context.Context, postID, userID int64, kind model.Reaction) (model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	post, ok := m.posts[postID]
	if !ok {
		return model.Post{}, repository.ErrNotFound
	}
	key := reactionKey{post: postID, user: userID}
	counter := func(r model.Reaction) *int {
		if r == model.ReactionLike {
			return &post.LikesCount
		}
		return &post.DislikesCount
	}

	current, had := m.reactions[key]
	switch {
	case had && current == kind:
		delete(m.reactions, key)
		*counter(kind)--
	case had:
		*counter(current)--
		m.reactions[key] = kind
		*counter(kind)++
	default:
		m.reactions[key] = kind
		*counter(kind)++
	}
	m.posts[postID] = post
	return m.withAuthor(post), nil
}

func (m *memStore) CreateComment(_ context.Context, comment model.Comment) (model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[comment.PostID]; !ok {
		return model.Comment{}, repository.ErrNotFound
	}
	comment.ID = m.id()
	comment.CreatedAt = time.Now().UTC()
	comment.Replies = []model.Reply{}
	m.comments[comment.ID] = comment
	return comment, nil
}

func (m *memStore) CreateReply(_ context.Context, reply model.Reply) (model.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[reply.CommentID]; !ok {
		return model.Reply{}, repository.ErrNotFound
	}
	reply.ID = m.id()
	reply.CreatedAt = time.Now().UTC()
	m.replies = append(m.replies, reply)
	return reply, nil
}

type fakeUploader struct {
	mu      sync.Mutex
	uploads []media.File
	kinds   []media.Kind
	err     error
}

func (u *fakeUploader) Upload(_ context.Context, kind media.Kind, file media.File) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return "", u.err
	}
	u.uploads = append(u.uploads, file)
	u.kinds = append(u.kinds, kind)
	return fmt.Sprintf("https://cdn.test/%s/%d%s", kind, len(u.uploads), path.Ext(file.Name)), nil
}

func (u *fakeUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.uploads)
}

type sentMail struct {
	to   string
	link string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, link: link})
	return nil
}

func (m *fakeMailer) last() (sentMail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}, errors.New("no mail sent")
	}
	return m.sent[len(m.sent)-1], nil
}

type memLedger struct {
	mu     sync.Mutex
	tokens map[string]int64
}

func (l *memLedger) Remember(_ context.Context, tokenID string, userID int64, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tokens == nil {
		l.tokens = map[string]int64{}
	}
	l.tokens[tokenID] = userID
	return nil
}

func (l *memLedger) Consume(_ context.Context, tokenID string) (int64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	userID, ok := l.tokens[tokenID]
	delete(l.tokens, tokenID)
	return userID, ok, nil
}
