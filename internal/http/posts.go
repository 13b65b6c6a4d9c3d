package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/auth"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/media"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/repository"
)

type commentRequest struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

type postsResponse struct {
	Data []model.Post `json:"data"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if !s.parseForm(w, r) {
		return
	}
	content, _ := formValue(r, "content")
	if content == "" {
		writeError(w, http.StatusBadRequest, "missing_content", "Content is required")
		return
	}
	post := model.Post{Content: content, AuthorID: claims.UserID}
	if title, ok := formValue(r, "title"); ok && title != "" {
		post.Title = &title
	}

	mediaURL, ok := s.postMedia(w, r)
	if !ok {
		return
	}
	post.Media = mediaURL

	created, err := s.store.CreatePost(r.Context(), post)
	if err != nil {
		s.postError(w, r, "create_post", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	limit, offset := pagination(r)
	posts, err := s.store.ListPostsExcludingAuthor(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		s.serverError(w, r, "list_posts", err)
		return
	}
	writeJSON(w, http.StatusOK, postsResponse{Data: posts})
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid post id")
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.postError(w, r, "get_post", err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid post id")
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.postError(w, r, "delete_post.get", err)
		return
	}
	if post.AuthorID != claims.UserID && claims.Role != model.RoleAdmin {
		forbidden(w)
		return
	}
	if err := s.store.DeletePost(r.Context(), id); err != nil {
		s.postError(w, r, "delete_post", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Post deleted successfully"})
}

func (s *Server) handleMyPosts(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	s.writePostsBy(w, r, claims.UserID)
}

func (s *Server) handlePostsByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "Invalid user id")
		return
	}
	s.writePostsBy(w, r, id)
}

func (s *Server) writePostsBy(w http.ResponseWriter, r *http.Request, authorID int64) {
	limit, offset := pagination(r)
	posts, err := s.store.ListPostsByAuthor(r.Context(), authorID, limit, offset)
	if err != nil {
		s.serverError(w, r, "posts_by_author", err)
		return
	}
	writeJSON(w, http.StatusOK, postsResponse{Data: posts})
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid post id")
		return
	}
	if !s.parseForm(w, r) {
		return
	}
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.postError(w, r, "update_post.get", err)
		return
	}
	if post.AuthorID != claims.UserID {
		forbidden(w)
		return
	}

	if title, ok := formValue(r, "title"); ok {
		if title == "" {
			post.Title = nil
		} else {
			post.Title = &title
		}
	}
	if content, ok := formValue(r, "content"); ok {
		if content == "" {
			writeError(w, http.StatusBadRequest, "missing_content", "Content is required")
			return
		}
		post.Content = content
	}
	mediaURL, ok := s.postMedia(w, r)
	if !ok {
		return
	}
	if mediaURL != nil {
		post.Media = mediaURL
	}

	updated, err := s.store.UpdatePost(r.Context(), post)
	if err != nil {
		s.postError(w, r, "update_post.save", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleReaction(kind model.Reaction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromContext(r.Context())
		id, ok := pathID(r, "id")
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_id", "Invalid post id")
			return
		}
		post, err := s.store.ToggleReaction(r.Context(), id, claims.UserID, kind)
		if err != nil {
			s.postError(w, r, string(kind)+"_post", err)
			return
		}
		writeJSON(w, http.StatusOK, post)
	}
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid post id")
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "missing_content", "Content is required")
		return
	}
	author, ok := s.pseudonym(w, r, claims, req.Author)
	if !ok {
		return
	}

	comment, err := s.store.CreateComment(r.Context(), model.Comment{Content: content, Author: author, PostID: id})
	if err != nil {
		s.postError(w, r, "add_comment", err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleAddReply(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	id, ok := pathID(r, "commentId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "Invalid comment id")
		return
	}
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Malformed JSON body")
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		writeError(w, http.StatusBadRequest, "missing_content", "Content is required")
		return
	}
	author, ok := s.pseudonym(w, r, claims, req.Author)
	if !ok {
		return
	}

	reply, err := s.store.CreateReply(r.Context(), model.Reply{Content: content, Author: author, CommentID: id})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "comment_not_found", "Comment not found")
			return
		}
		s.serverError(w, r, "add_reply", err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

// pseudonym is the requested author label, else the caller's username, else Anonymous.
func (s *Server) pseudonym(w http.ResponseWriter, r *http.Request, claims *auth.Claims, requested string) (string, bool) {
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested, true
	}
	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "Anonymous", true
		}
		s.serverError(w, r, "pseudonym", err)
		return "", false
	}
	return user.Pseudonym(), true
}

// postMedia uploads the optional image part. It returns a nil URL when no
// file was sent.
func (s *Server) postMedia(w http.ResponseWriter, r *http.Request) (*string, bool) {
	headers := formFiles(r, "file")
	if len(headers) == 0 {
		return nil, true
	}
	file, err := readUpload(headers[0])
	if err != nil {
		s.serverError(w, r, "post_media.read", err)
		return nil, false
	}
	if !media.IsImage(file.ContentType) {
		unsupportedFile(w, "image")
		return nil, false
	}
	url, err := s.upload(r.Context(), media.KindImage, file)
	if err != nil {
		s.serverError(w, r, "post_media.upload", err)
		return nil, false
	}
	return &url, true
}

func (s *Server) postError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "post_not_found", "Post not found")
		return
	}
	s.serverError(w, r, op, err)
}

func forbidden(w http.ResponseWriter) {
	writeError(w, http.StatusForbidden, "forbidden", "You do not have permission to perform this action")
}
