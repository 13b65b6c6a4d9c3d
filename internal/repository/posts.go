package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/db"
	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
)

const postSelect = `
	SELECT p.id, p.title, p.content, p.author_id, u.name, u.role, p.media, p.created_at, p.likes_count, p.dislikes_count
	FROM posts p
	JOIN users u ON u.id = p.author_id`

func scanPost(row pgx.Row) (model.Post, error) {
	var post model.Post
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.AuthorID,
		&post.Author.Name,
		&post.Author.Role,
		&post.Media,
		&post.CreatedAt,
		&post.LikesCount,
		&post.DislikesCount,
	)
	post.Author.ID = post.AuthorID
	return post, mapErr(err)
}

func collectPosts(rows pgx.Rows, err error) ([]model.Post, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (s *Store) CreatePost(ctx context.Context, post model.Post) (model.Post, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO posts (title, content, author_id, media)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, post.Title, post.Content, post.AuthorID, post.Media).Scan(&id)
	if err != nil {
		return model.Post{}, mapErr(err)
	}
	return getPost(ctx, s.pool, id)
}

// GetPost loads a post together with its comments and their replies.
func (s *Store) GetPost(ctx context.Context, id int64) (model.Post, error) {
	post, err := getPost(ctx, s.pool, id)
	if err != nil {
		return model.Post{}, err
	}
	post.Comments, err = s.ListComments(ctx, id)
	if err != nil {
		return model.Post{}, err
	}
	return post, nil
}

func getPost(ctx context.Context, q querier, id int64) (model.Post, error) {
	return scanPost(q.QueryRow(ctx, postSelect+` WHERE p.id = $1`, id))
}

// ListPostsExcludingAuthor is the feed: everyone's posts but the caller's, newest first.
func (s *Store) ListPostsExcludingAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error) {
	return collectPosts(s.pool.Query(ctx, postSelect+`
		WHERE p.author_id <> $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3
	`, authorID, limit, offset))
}

func (s *Store) ListPostsByAuthor(ctx context.Context, authorID int64, limit, offset int) ([]model.Post, error) {
	return collectPosts(s.pool.Query(ctx, postSelect+`
		WHERE p.author_id = $1
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $2 OFFSET $3
	`, authorID, limit, offset))
}

func (s *Store) UpdatePost(ctx context.Context, post model.Post) (model.Post, error) {
	err := affected(s.pool.Exec(ctx, `
		UPDATE posts SET title = $1, content = $2, media = $3
		WHERE id = $4
	`, post.Title, post.Content, post.Media, post.ID))
	if err != nil {
		return model.Post{}, err
	}
	return getPost(ctx, s.pool, post.ID)
}

func (s *Store) DeletePost(ctx context.Context, id int64) error {
	return affected(s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id))
}

type reactionTable struct {
	table   string
	counter string
}

var reactionTables = map[model.Reaction]reactionTable{
	model.ReactionLike:    {table: "likes", counter: "likes_count"},
	model.ReactionDislike: {table: "dislikes", counter: "dislikes_count"},
}

// ToggleReaction removes the user's reaction of this kind if present, otherwise
// records it and drops the opposite one. Counters follow the reaction rows.
func (s *Store) ToggleReaction(ctx context.Context, postID, userID int64, kind model.Reaction) (model.Post, error) {
	own, ok := reactionTables[kind]
	if !ok {
		return model.Post{}, fmt.Errorf("unknown reaction %q", kind)
	}
	other := reactionTables[model.ReactionDislike]
	if kind == model.ReactionDislike {
		other = reactionTables[model.ReactionLike]
	}

	var post model.Post
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		var locked int64
		if err := tx.QueryRow(ctx, `SELECT id FROM posts WHERE id = $1 FOR UPDATE`, postID).Scan(&locked); err != nil {
			return mapErr(err)
		}

		removed, err := tx.Exec(ctx, `DELETE FROM `+own.table+` WHERE post_id = $1 AND user_id = $2`, postID, userID)
		if err != nil {
			return err
		}
		if removed.RowsAffected() > 0 {
			if _, err := tx.Exec(ctx, `UPDATE posts SET `+own.counter+` = GREATEST(`+own.counter+` - 1, 0) WHERE id = $1`, postID); err != nil {
				return err
			}
		} else {
			if _, err := tx.Exec(ctx, `INSERT INTO `+own.table+` (post_id, user_id) VALUES ($1, $2)`, postID, userID); err != nil {
				return mapErr(err)
			}
			if _, err := tx.Exec(ctx, `UPDATE posts SET `+own.counter+` = `+own.counter+` + 1 WHERE id = $1`, postID); err != nil {
				return err
			}
			switched, err := tx.Exec(ctx, `DELETE FROM `+other.table+` WHERE post_id = $1 AND user_id = $2`, postID, userID)
			if err != nil {
				return err
			}
			if switched.RowsAffected() > 0 {
				if _, err := tx.Exec(ctx, `UPDATE posts SET `+other.counter+` = GREATEST(`+other.counter+` - 1, 0) WHERE id = $1`, postID); err != nil {
					return err
				}
			}
		}

		post, err = getPost(ctx, tx, postID)
		return err
	})
	if err != nil {
		return model.Post{}, err
	}
	return post, nil
}

// CreateComment returns ErrNotFound when the post does not exist.
func (s *Store) CreateComment(ctx context.Context, comment model.Comment) (model.Comment, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO comments (content, author, post_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, comment.Content, comment.Author, comment.PostID).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return model.Comment{}, mapErr(err)
	}
	comment.Replies = []model.Reply{}
	return comment, nil
}

// CreateReply returns ErrNotFound when the comment does not exist.
func (s *Store) CreateReply(ctx context.Context, reply model.Reply) (model.Reply, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO replies (content, author, comment_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, reply.Content, reply.Author, reply.CommentID).Scan(&reply.ID, &reply.CreatedAt)
	if err != nil {
		return model.Reply{}, mapErr(err)
	}
	return reply, nil
}

func (s *Store) ListComments(ctx context.Context, postID int64) ([]model.Comment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, content, author, created_at, post_id
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at, id
	`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	index := map[int64]int{}
	ids := []int64{}
	for rows.Next() {
		var comment model.Comment
		if err := rows.Scan(&comment.ID, &comment.Content, &comment.Author, &comment.CreatedAt, &comment.PostID); err != nil {
			return nil, err
		}
		comment.Replies = []model.Reply{}
		index[comment.ID] = len(comments)
		ids = append(ids, comment.ID)
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return comments, nil
	}

	replyRows, err := s.pool.Query(ctx, `
		SELECT id, content, author, created_at, comment_id
		FROM replies
		WHERE comment_id = ANY($1)
		ORDER BY created_at, id
	`, ids)
	if err != nil {
		return nil, err
	}
	defer replyRows.Close()

	for replyRows.Next() {
		var reply model.Reply
		if err := replyRows.Scan(&reply.ID, &reply.Content, &reply.Author, &reply.CreatedAt, &reply.CommentID); err != nil {
			return nil, err
		}
		i := index[reply.CommentID]
		comments[i].Replies = append(comments[i].Replies, reply)
	}
	return comments, replyRows.Err()
}
