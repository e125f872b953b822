package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetPersonalizedFeed handles GET /api/feed/personalized
// @Summary Personalized feed
// @Description Posts of followed users first, then random posts from others
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Number of posts (default 20, max 100)"
// @Success 200 {array} models.Post
// @Router /feed/personalized [get]
func (s *Server) GetPersonalizedFeed(c *fiber.Ctx) error {
	posts, err := s.feedService.PersonalizedFeed(c.UserContext(), userID(c), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}

// GetExploreFeed handles GET /api/feed/explore
// @Summary Explore feed
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param filter query string false "mostLiked, mostReacted, recent or oldest"
// @Param limit query int false "Number of posts (default 20, max 100)"
// @Success 200 {array} models.Post
// @Failure 400 {object} models.ErrorResponse
// @Router /feed/explore [get]
func (s *Server) GetExploreFeed(c *fiber.Ctx) error {
	posts, err := s.feedService.ExploreFeed(c.UserContext(), c.Query("filter"), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(posts)
}
