package content

import (
	"fmt"

	"gorm.io/gorm"

	"privateblog/models"
	"privateblog/pagination"
)

const postOrder = "pub_date DESC, id DESC"

// PostInput holds the editable fields of a post.
type PostInput struct {
	Title     string
	Subheader string
	Text      string
	Image     string
}

// Card is a post as shown in listings, with its derived counters.
type Card struct {
	models.Post
	CommentCount int64 `json:"comment_count"`
	LikeCount    int64 `json:"like_count"`
}

// CreatePost publishes a post dated today.
func (s *Store) CreatePost(in PostInput) (*models.Post, error) {
	post := &models.Post{
		Title:     in.Title,
		Subheader: in.Subheader,
		Text:      in.Text,
		Image:     in.Image,
		PubDate:   s.today(),
	}
	if err := s.db.Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

// UpdatePost replaces the editable fields and stamps the modify date. The
// publication date never changes. An empty Image keeps the current one.
func (s *Store) UpdatePost(id uint, in PostInput) (*models.Post, error) {
	post, err := s.GetPost(id)
	if err != nil {
		return nil, err
	}

	today := s.today()
	post.Title = in.Title
	post.Subheader = in.Subheader
	post.Text = in.Text
	if in.Image != "" {
		post.Image = in.Image
	}
	post.ModifyDate = &today

	if err := s.db.Model(post).Select("title", "subheader", "text", "image", "modify_date").Updates(post).Error; err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return post, nil
}

// DeletePost removes the post with its comments and likes.
func (s *Store) DeletePost(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			return notFound("post", err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("failed to delete comments: %w", err)
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Favourite{}).Error; err != nil {
			return fmt.Errorf("failed to delete favourites: %w", err)
		}
		if err := tx.Delete(&post).Error; err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		return nil
	})
}

// GetPost loads one post or returns ErrNotFound.
func (s *Store) GetPost(id uint) (*models.Post, error) {
	var post models.Post
	if err := s.db.First(&post, id).Error; err != nil {
		return nil, notFound("post", err)
	}
	return &post, nil
}

// IndexPage lists all posts, newest first.
func (s *Store) IndexPage(rawPage string) (*pagination.Page[Card], error) {
	page, err := pagination.Paginate[models.Post](s.db.Model(&models.Post{}), postOrder, rawPage, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return s.cardPage(page)
}

// AlsoList returns the newest posts for the sidebar, leaving out currentID
// when it is not zero.
func (s *Store) AlsoList(currentID uint) ([]models.Post, error) {
	query := s.db.Model(&models.Post{})
	if currentID != 0 {
		query = query.Where("id <> ?", currentID)
	}

	posts := []models.Post{}
	if err := query.Order(postOrder).Limit(AlsoListSize).Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to list also-read posts: %w", err)
	}
	return posts, nil
}

// CommentCount counts the comments of a post.
func (s *Store) CommentCount(postID uint) (int64, error) {
	var n int64
	if err := s.db.Model(&models.Comment{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

// LikeCount counts the likes of a post.
func (s *Store) LikeCount(postID uint) (int64, error) {
	var n int64
	if err := s.db.Model(&models.Favourite{}).Where("post_id = ?", postID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return n, nil
}

// IsLiked is always false for userID 0, the anonymous visitor.
func (s *Store) IsLiked(postID, userID uint) (bool, error) {
	if userID == 0 {
		return false, nil
	}
	var n int64
	if err := s.db.Model(&models.Favourite{}).
		Where("post_id = ? AND liker_id = ?", postID, userID).
		Count(&n).Error; err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return n > 0, nil
}

type postCount struct {
	PostID uint
	N      int64
}

func (s *Store) countBy(model interface{}, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []postCount
	if err := s.db.Model(model).
		Select("post_id, COUNT(*) AS n").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.PostID] = r.N
	}
	return out, nil
}

// Cards attaches comment and like counts to posts, keeping their order.
func (s *Store) Cards(posts []models.Post) ([]Card, error) {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	comments, err := s.countBy(&models.Comment{}, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	likes, err := s.countBy(&models.Favourite{}, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count likes: %w", err)
	}

	cards := make([]Card, 0, len(posts))
	for _, p := range posts {
		cards = append(cards, Card{Post: p, CommentCount: comments[p.ID], LikeCount: likes[p.ID]})
	}
	return cards, nil
}

func (s *Store) cardPage(page *pagination.Page[models.Post]) (*pagination.Page[Card], error) {
	cards, err := s.Cards(page.Items)
	if err != nil {
		return nil, err
	}
	out := pagination.New(cards, page.Number, page.Count, page.PerPage)
	return out, nil
}
