package content

import (
	"fmt"

	"privateblog/models"
	"privateblog/pagination"
)

const messageOrder = "send_time ASC, id ASC"

func (s *Store) createMessage(interlocutorID uint, direction models.Direction, text string) (*models.Message, error) {
	msg := &models.Message{
		InterlocutorID: interlocutorID,
		Direction:      direction,
		MessageText:    text,
		SendTime:       s.now(),
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return msg, nil
}

// SendToAuthor stores a message written by a visitor to the author.
func (s *Store) SendToAuthor(senderID uint, text string) (*models.Message, error) {
	return s.createMessage(senderID, models.ToAuthor, text)
}

// ReplyFromAuthor stores the author's reply to recipientID.
func (s *Store) ReplyFromAuthor(recipientID uint, text string) (*models.Message, error) {
	if _, err := s.GetUser(recipientID); err != nil {
		return nil, err
	}
	return s.createMessage(recipientID, models.FromAuthor, text)
}

// VisitorMessages is the conversation of userID with the author, both ways,
// oldest first.
func (s *Store) VisitorMessages(userID uint, rawPage string) (*pagination.Page[models.Message], error) {
	query := s.db.Model(&models.Message{}).Where("interlocutor_id = ?", userID)
	page, err := pagination.Paginate[models.Message](query, messageOrder, rawPage, s.pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return page, nil
}

// Thread is VisitorMessages seen from the author's side. The interlocutor
// must exist.
func (s *Store) Thread(interlocutorID uint, rawPage string) (*models.User, *pagination.Page[models.Message], error) {
	user, err := s.GetUser(interlocutorID)
	if err != nil {
		return nil, nil, err
	}
	page, err := s.VisitorMessages(interlocutorID, rawPage)
	if err != nil {
		return nil, nil, err
	}
	return user, page, nil
}

// Interlocutors lists every user who has a conversation with the author,
// by ascending id.
func (s *Store) Interlocutors() ([]models.User, error) {
	sub := s.db.Model(&models.Message{}).Select("interlocutor_id")

	users := []models.User{}
	if err := publicAuthor(s.db.Model(&models.User{})).Where("id IN (?)", sub).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list interlocutors: %w", err)
	}
	return users, nil
}
