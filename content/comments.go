package content

import (
	"fmt"

	"gorm.io/gorm"

	"privateblog/models"
	"privateblog/pagination"
)

// myCommentsOrder is the reverse of postOrder, then comment id.
const myCommentsOrder = "posts.pub_date ASC, posts.id ASC, comments.id ASC"

// AddComment stores text as a comment of authorID on postID.
func (s *Store) AddComment(postID, authorID uint, text string) (*models.Comment, error) {
	if _, err := s.GetPost(postID); err != nil {
		return nil, err
	}
	comment := &models.Comment{
		PostID:      postID,
		AuthorID:    authorID,
		CommentText: text,
		Created:     s.now(),
	}
	if err := s.db.Create(comment).Error; err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return comment, nil
}

// PostComments lists the comments of a post, oldest first.
func (s *Store) PostComments(postID uint, rawPage string) (*pagination.Page[models.Comment], error) {
	query := s.db.Model(&models.Comment{}).Where("post_id = ?", postID)
	page, err := pagination.Paginate[models.Comment](query, "created ASC, id ASC", rawPage, s.pageSize,
		func(db *gorm.DB) *gorm.DB { return db.Preload("Author", publicAuthor) })
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return page, nil
}

// MyComments lists the comments written by userID, grouped by post with the
// oldest post first and in writing order within a post.
func (s *Store) MyComments(userID uint, rawPage string) (*pagination.Page[models.Comment], error) {
	query := s.db.Model(&models.Comment{}).
		Joins("JOIN posts ON posts.id = comments.post_id").
		Where("comments.author_id = ?", userID)
	page, err := pagination.Paginate[models.Comment](query, myCommentsOrder, rawPage, s.pageSize,
		func(db *gorm.DB) *gorm.DB { return db.Preload("Post") })
	if err != nil {
		return nil, fmt.Errorf("failed to list user comments: %w", err)
	}
	return page, nil
}
