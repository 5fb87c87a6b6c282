// Package content is the blog's repository layer. It owns every read and
// write against posts, comments, favourites, messages and users, and returns
// materialized pages instead of open queries.
package content

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AlsoListSize is the length of the "also read" sidebar.
const AlsoListSize = 3

// ErrNotFound is returned when a post, user or thread does not exist.
var ErrNotFound = errors.New("not found")

// Store is the repository for every blog record, paging with a fixed page size.
type Store struct {
	db       *gorm.DB
	pageSize int
	now      func() time.Time
}

// NewStore wraps db. pageSize applies to every paginated listing.
func NewStore(db *gorm.DB, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Store{db: db, pageSize: pageSize, now: time.Now}
}

// PageSize returns the configured listing page size.
func (s *Store) PageSize() int {
	return s.pageSize
}

func (s *Store) today() datatypes.Date {
	return datatypes.Date(s.now())
}

func notFound(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// publicAuthor preloads a user without the private columns.
func publicAuthor(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "first_name", "last_name", "is_staff")
}
