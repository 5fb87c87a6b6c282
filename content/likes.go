package content

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"privateblog/models"
	"privateblog/pagination"
)

// ErrAnonymous rejects a like without a user behind it.
var ErrAnonymous = errors.New("anonymous identity")

// ToggleLike flips the like of userID on postID and returns the new state.
func (s *Store) ToggleLike(postID, userID uint) (bool, error) {
	if userID == 0 {
		return false, ErrAnonymous
	}

	liked := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Post{}, postID).Error; err != nil {
			return notFound("post", err)
		}

		res := tx.Where("post_id = ? AND liker_id = ?", postID, userID).Delete(&models.Favourite{})
		if res.Error != nil {
			return fmt.Errorf("failed to remove like: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}

		if err := tx.Create(&models.Favourite{LikerID: userID, PostID: postID}).Error; err != nil {
			return fmt.Errorf("failed to add like: %w", err)
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return liked, nil
}

// FavouritePosts lists the posts liked by userID, newest first.
func (s *Store) FavouritePosts(userID uint, rawPage string) (*pagination.Page[Card], error) {
	liked := s.db.Model(&models.Favourite{}).Select("post_id").Where("liker_id = ?", userID)
	query := s.db.Model(&models.Post{}).Where("id IN (?)", liked)
	page, err := pagination.Paginate[models.Post](query, postOrder, rawPage, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list favourites: %w", err)
	}
	return s.cardPage(page)
}

// NotLikedPosts returns up to limit of the newest posts userID has not liked.
func (s *Store) NotLikedPosts(userID uint, limit int) ([]models.Post, error) {
	sub := s.db.Model(&models.Favourite{}).Select("post_id").Where("liker_id = ?", userID)

	posts := []models.Post{}
	if err := s.db.Where("id NOT IN (?)", sub).Order(postOrder).Limit(limit).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list not liked posts: %w", err)
	}
	return posts, nil
}
