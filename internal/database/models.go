package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/yashika/lyanna/internal/apperr"
)

// User is an account that can authenticate.
type User struct {
	ID           int64     `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Active       bool      `db:"active"`
	CreatedAt    time.Time `db:"created_at"`
}

// Post is a published content item. Only the fields the sitemap and index
// need are modeled here.
type Post struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	AuthorID  int64     `db:"author_id"`
	Published bool      `db:"published"`
	CreatedAt time.Time `db:"created_at"`
}

// URL returns the canonical path for the post.
func (p Post) URL() string {
	return fmt.Sprintf("/post/%d/", p.ID)
}

// Tag labels posts and has its own listing page.
type Tag struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

// URL returns the canonical path for the tag listing.
func (t Tag) URL() string {
	return fmt.Sprintf("/tag/%s/", t.Name)
}

// GetUser fetches a user by id, returning a typed not-found error when no
// such user exists.
func (d *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := d.conn.GetContext(ctx, &u,
		`SELECT id, name, email, password_hash, active, created_at FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewNotFoundError("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return &u, nil
}

// GetUserByName fetches a user by login name.
func (d *DB) GetUserByName(ctx context.Context, name string) (*User, error) {
	var u User
	err := d.conn.GetContext(ctx, &u,
		`SELECT id, name, email, password_hash, active, created_at FROM users WHERE name = $1`, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewNotFoundError("user", name)
		}
		return nil, fmt.Errorf("get user %q: %w", name, err)
	}
	return &u, nil
}

// GetPost fetches a published post by id.
func (d *DB) GetPost(ctx context.Context, id int64) (*Post, error) {
	var p Post
	err := d.conn.GetContext(ctx, &p,
		`SELECT id, title, author_id, published, created_at FROM posts WHERE id = $1 AND published`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NewNotFoundError("post", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("get post %d: %w", id, err)
	}
	return &p, nil
}

// ListPublishedPosts returns all published posts, newest first.
func (d *DB) ListPublishedPosts(ctx context.Context) ([]Post, error) {
	var posts []Post
	err := d.conn.SelectContext(ctx, &posts,
		`SELECT id, title, author_id, published, created_at FROM posts WHERE published ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// ListTags returns all tags, newest first.
func (d *DB) ListTags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	err := d.conn.SelectContext(ctx, &tags,
		`SELECT id, name, created_at FROM tags ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}
