package server

import (
	"socialapi/internal/models"
	"socialapi/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// PresignS3Upload handles POST /api/s3/url
// @Summary Presigned S3 upload
// @Description Returns a PUT URL valid for five minutes and the public URL of the object
// @Tags uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body storage.UploadRequest true "File to upload"
// @Success 200 {object} storage.PresignedUpload
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /s3/url [post]
func (s *Server) PresignS3Upload(c *fiber.Ctx) error {
	return s.presign(c, s.s3Presigner, "S3")
}

// PresignMinioUpload handles POST /api/minio/url
// @Summary Presigned MinIO upload
// @Tags uploads
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body storage.UploadRequest true "File to upload"
// @Success 200 {object} storage.PresignedUpload
// @Failure 503 {object} models.ErrorResponse
// @Router /minio/url [post]
func (s *Server) PresignMinioUpload(c *fiber.Ctx) error {
	return s.presign(c, s.minioPresigner, "MinIO")
}

func (s *Server) presign(c *fiber.Ctx, p storage.Presigner, provider string) error {
	if p == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: provider + " uploads are not configured",
		})
	}
	var req storage.UploadRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	up, err := p.PresignUpload(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(up)
}
