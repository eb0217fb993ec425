package services

import (
	"context"
	"strings"

	"dimos-fixit/internal/adapters/persistence/models"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/core/domain"

	"go.uber.org/zap"
)

// Comment service errors
var (
	ErrCommentNotFound = domain.NotFound("Comment not found")
	ErrInternalComment = domain.Forbidden("Only staff can write internal comments")
)

const maxCommentLength = 5000

// CommentService handles issue comments
type CommentService struct {
	commentRepo *repositories.CommentRepository
	issueRepo   *repositories.IssueRepository
	log         *zap.SugaredLogger
}

// NewCommentService creates a new comment service
func NewCommentService(
	commentRepo *repositories.CommentRepository,
	issueRepo *repositories.IssueRepository,
	log *zap.SugaredLogger,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		issueRepo:   issueRepo,
		log:         log,
	}
}

// CreateCommentInput represents create comment input
type CreateCommentInput struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"isInternal"`
}

// List returns the comments of a visible issue; citizens never see internal ones
func (s *CommentService) List(ctx context.Context, actor domain.Actor, issueID uint) ([]*models.Comment, error) {
	if _, err := visibleIssue(ctx, s.issueRepo, actor, issueID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByIssue(ctx, issueID, domain.CanSeeInternalComments(actor.Role))
	if err != nil {
		return nil, domain.Internal(err)
	}
	for _, c := range comments {
		c.Author = c.User.Summary()
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return comments, nil
}

// Create adds a comment to a visible issue
func (s *CommentService) Create(ctx context.Context, actor domain.Actor, issueID uint, input *CreateCommentInput) (*models.Comment, error) {
	if _, err := visibleIssue(ctx, s.issueRepo, actor, issueID); err != nil {
		return nil, err
	}
	if err := domain.Authorize(actor, domain.ResourceComment, domain.ActionCreate, domain.Ownership{}); err != nil {
		return nil, err
	}
	if input.IsInternal && !domain.CanSeeInternalComments(actor.Role) {
		return nil, ErrInternalComment
	}

	content := strings.TrimSpace(input.Content)
	fe := fieldErrors{}
	fe.required("content", content)
	fe.maxLen("content", content, maxCommentLength)
	if err := fe.err(); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		IssueID:    issueID,
		UserID:     actor.ID,
		Content:    content,
		IsInternal: input.IsInternal,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, domain.Internal(err)
	}

	created, err := s.commentRepo.GetByID(ctx, comment.ID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	created.Author = created.User.Summary()
	return created, nil
}

// Delete removes a comment; author or admin
func (s *CommentService) Delete(ctx context.Context, actor domain.Actor, issueID, commentID uint) error {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return lookupErr(err, ErrCommentNotFound)
	}
	if comment.IssueID != issueID {
		return ErrCommentNotFound
	}

	own := domain.Ownership{Owner: comment.UserID == actor.ID}
	if err := domain.Authorize(actor, domain.ResourceComment, domain.ActionDelete, own); err != nil {
		return err
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return domain.Internal(err)
	}
	return nil
}
