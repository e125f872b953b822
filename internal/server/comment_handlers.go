package server

import (
	"socialapi/internal/service"

	"github.com/gofiber/fiber/v2"
)

type CreateCommentRequest struct {
	PostID   uint   `json:"post_id" validate:"required"`
	ParentID *uint  `json:"parent_id"`
	Text     string `json:"text" validate:"required,max=5000"`
}

type UpdateCommentRequest struct {
	Text string `json:"text" validate:"required,max=5000"`
}

// CreateComment handles POST /api/comment
// @Summary Comment on a post
// @Description Set parent_id to reply to another comment on the same post
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateCommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comment [post]
func (s *Server) CreateComment(c *fiber.Ctx) error {
	var req CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.Create(c.UserContext(), service.CreateCommentInput{
		UserID:   userID(c),
		PostID:   req.PostID,
		ParentID: req.ParentID,
		Text:     req.Text,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetPostComments handles GET /api/comment/post/:postId
// @Summary Comment tree of a post
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param depth query int false "Reply levels to include (1-5)"
// @Success 200 {array} models.Comment
// @Router /comment/post/{postId} [get]
func (s *Server) GetPostComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "postId")
	if err != nil {
		return nil
	}
	comments, err := s.commentService.ListForPost(c.UserContext(), postID, c.QueryInt("depth", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comments)
}

// GetComment handles GET /api/comment/:id
func (s *Server) GetComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	comment, err := s.commentService.GetByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// UpdateComment handles PATCH /api/comment/:id
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req UpdateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.Update(c.UserContext(), service.UpdateCommentInput{
		UserID:    userID(c),
		CommentID: id,
		Text:      req.Text,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comment/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.commentService.Remove(c.UserContext(), id, userID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
