package service

import (
	"context"

	"threadx/internal/model"
)

// AddComment prepends a comment. When the author muted replies only the
// author may comment.
func (s *ThreadService) AddComment(ctx context.Context, author model.User, threadID, content string) (*model.Comment, error) {
	content, err := validateContent(s.validate, content, model.MaxCommentLength)
	if err != nil {
		return nil, err
	}

	var comment model.Comment
	err = s.store.Atomically(ctx, func(ctx context.Context) error {
		threads, err := s.threads.List(ctx)
		if err != nil {
			return err
		}
		i, err := findVisible(threads, threadID, author.ID)
		if err != nil {
			return err
		}
		t := &threads[i]
		if t.MuteReplies && t.UserID != author.ID {
			return model.ErrRepliesMuted
		}

		comment = model.Comment{
			ID:        model.NewID(),
			UserID:    author.ID,
			Username:  author.Username,
			Content:   content,
			Timestamp: s.now(),
			Replies:   []model.Reply{},
		}
		t.Comments = append([]model.Comment{comment}, t.Comments...)
		if err := s.threads.SaveAll(ctx, threads); err != nil {
			return err
		}

		s.notify(ctx, t.UserID, model.Alert{
			Type:          model.AlertComment,
			FromUserID:    author.ID,
			FromUsername:  author.Username,
			ActorImage:    author.ProfileImage,
			Content:       "commented on your thread",
			ThreadID:      t.ID,
			ThreadPreview: preview(content, model.ThreadPreviewLength),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// AddReply prepends a reply under a comment. Replies do not nest.
func (s *ThreadService) AddReply(ctx context.Context, author model.User, threadID, commentID, content string) (*model.Reply, error) {
	content, err := validateContent(s.validate, content, model.MaxCommentLength)
	if err != nil {
		return nil, err
	}

	var reply model.Reply
	err = s.store.Atomically(ctx, func(ctx context.Context) error {
		threads, err := s.threads.List(ctx)
		if err != nil {
			return err
		}
		i, err := findVisible(threads, threadID, author.ID)
		if err != nil {
			return err
		}
		t := &threads[i]
		if t.MuteReplies && t.UserID != author.ID {
			return model.ErrRepliesMuted
		}
		ci := t.FindComment(commentID)
		if ci < 0 {
			return model.ErrCommentNotFound
		}
		c := &t.Comments[ci]

		reply = model.Reply{
			ID:        model.NewID(),
			UserID:    author.ID,
			Username:  author.Username,
			Content:   content,
			Timestamp: s.now(),
		}
		c.Replies = append([]model.Reply{reply}, c.Replies...)
		if err := s.threads.SaveAll(ctx, threads); err != nil {
			return err
		}

		s.notify(ctx, c.UserID, model.Alert{
			Type:          model.AlertComment,
			FromUserID:    author.ID,
			FromUsername:  author.Username,
			ActorImage:    author.ProfileImage,
			Content:       "replied to your comment",
			ThreadID:      t.ID,
			ThreadPreview: preview(content, model.ThreadPreviewLength),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

// DeleteComment removes a comment and its replies. Only the comment's
// author may delete it.
func (s *ThreadService) DeleteComment(ctx context.Context, threadID, commentID, requesterID string) error {
	return s.store.Atomically(ctx, func(ctx context.Context) error {
		threads, err := s.threads.List(ctx)
		if err != nil {
			return err
		}
		i, err := findVisible(threads, threadID, requesterID)
		if err != nil {
			return err
		}
		t := &threads[i]
		ci := t.FindComment(commentID)
		if ci < 0 {
			return model.ErrCommentNotFound
		}
		if t.Comments[ci].UserID != requesterID {
			return model.ErrNotCommentOwner
		}
		t.Comments = append(t.Comments[:ci], t.Comments[ci+1:]...)
		return s.threads.SaveAll(ctx, threads)
	})
}

// DeleteReply removes one reply. Only the reply's author may delete it.
func (s *ThreadService) DeleteReply(ctx context.Context, threadID, commentID, replyID, requesterID string) error {
	return s.store.Atomically(ctx, func(ctx context.Context) error {
		threads, err := s.threads.List(ctx)
		if err != nil {
			return err
		}
		i, err := findVisible(threads, threadID, requesterID)
		if err != nil {
			return err
		}
		t := &threads[i]
		ci := t.FindComment(commentID)
		if ci < 0 {
			return model.ErrCommentNotFound
		}
		replies := t.Comments[ci].Replies
		for ri := range replies {
			if replies[ri].ID != replyID {
				continue
			}
			if replies[ri].UserID != requesterID {
				return model.ErrNotReplyOwner
			}
			t.Comments[ci].Replies = append(replies[:ri], replies[ri+1:]...)
			return s.threads.SaveAll(ctx, threads)
		}
		return model.ErrReplyNotFound
	})
}
