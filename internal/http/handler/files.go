package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"sharelink/internal/http/middleware"
	"sharelink/internal/model"
	"sharelink/internal/service"
)

type uploadResponse struct {
	ID           int64      `json:"id"`
	ShortLink    string     `json:"shortLink"`
	ShareURL     string     `json:"shareUrl"`
	OriginalName string     `json:"originalName"`
	FileSize     int64      `json:"fileSize"`
	MimeType     string     `json:"mimeType"`
	HasPassword  bool       `json:"hasPassword"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

type updateRequest struct {
	Password      string `json:"password"`
	ExpiresInDays *int   `json:"expiresInDays"`
}

func shareURL(baseURL, shortLink string) string {
	return strings.TrimRight(baseURL, "/") + "/share/" + shortLink
}

// ownerID reads the user id set by middleware.RequireAuth.
func ownerID(c *fiber.Ctx) (int64, bool) {
	id, ok := middleware.UserID(c)
	return id, ok && id > 0
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

// parseDays accepts an absent or blank value as "no expiry".
func parseDays(raw string) (*int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	d, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &d, true
}

// UploadFile stores a multipart upload and returns its share link.
//
//	@Summary	Upload a file
//	@Tags		files
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		file			formData	file	true	"file"
//	@Param		password		formData	string	false	"share password"
//	@Param		expiresInDays	formData	int		false	"days until the link expires"
//	@Success	201				{object}	uploadResponse
//	@Failure	413				{object}	errorPayload
//	@Failure	415				{object}	errorPayload
//	@Security	BearerAuth
//	@Router		/api/files/upload [post]
func UploadFile(svc service.ShareService, baseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerID(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		days, ok := parseDays(c.FormValue("expiresInDays"))
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY", "expiresInDays must be a positive integer")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}

		rec, err := svc.Upload(c.UserContext(), service.UploadInput{
			OwnerID:       owner,
			Reader:        f,
			OriginalName:  fh.Filename,
			ContentType:   ct,
			Size:          fh.Size,
			Password:      c.FormValue("password"),
			ExpiresInDays: days,
		})
		if err != nil {
			return writeServiceError(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(uploadResponse{
			ID:           rec.ID,
			ShortLink:    rec.ShortLink,
			ShareURL:     shareURL(baseURL, rec.ShortLink),
			OriginalName: rec.OriginalName,
			FileSize:     rec.FileSize,
			MimeType:     rec.MimeType,
			HasPassword:  rec.HasPassword(),
			ExpiresAt:    rec.ExpiresAt,
		})
	}
}

// ListFiles pages through the caller's files, newest first.
//
//	@Summary	List own files
//	@Tags		files
//	@Produce	json
//	@Param		search	query		string	false	"name filter"
//	@Param		limit	query		int		false	"page size"	default(20)
//	@Param		offset	query		int		false	"offset"	default(0)
//	@Success	200		{object}	service.ShareListResult
//	@Security	BearerAuth
//	@Router		/api/files [get]
func ListFiles(svc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerID(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}

		limit, err := strconv.Atoi(c.Query("limit", "20"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), owner, c.Query("search"), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// FileStats summarizes the caller's files.
//
//	@Summary	Own file statistics
//	@Tags		files
//	@Produce	json
//	@Success	200	{object}	model.OwnerStats
//	@Security	BearerAuth
//	@Router		/api/files/stats [get]
func FileStats(svc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerID(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}

		stats, err := svc.Stats(c.UserContext(), owner)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(stats)
	}
}

// GetFile returns one of the caller's files.
//
//	@Summary	Get own file
//	@Tags		files
//	@Produce	json
//	@Param		id	path		int	true	"file id"
//	@Success	200	{object}	model.ShareRecord
//	@Failure	404	{object}	errorPayload
//	@Security	BearerAuth
//	@Router		/api/files/{id} [get]
func GetFile(svc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerID(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		rec, err := svc.Get(c.UserContext(), owner, id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(withPasswordFlag(rec))
	}
}

// UpdateFile replaces the password and optionally the expiry of a file.
//
//	@Summary	Update own file
//	@Tags		files
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int				true	"file id"
//	@Param		body	body		updateRequest	true	"new settings"
//	@Success	200		{object}	model.ShareRecord
//	@Failure	404		{object}	errorPayload
//	@Security	BearerAuth
//	@Router		/api/files/{id} [put]
func UpdateFile(svc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerID(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req updateRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		rec, err := svc.Update(c.UserContext(), owner, id, service.UpdateInput{
			Password:      req.Password,
			ExpiresInDays: req.ExpiresInDays,
		})
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(withPasswordFlag(rec))
	}
}

// DeleteFile removes a file and its link.
//
//	@Summary	Delete own file
//	@Tags		files
//	@Param		id	path	int	true	"file id"
//	@Success	204
//	@Failure	404	{object}	errorPayload
//	@Security	BearerAuth
//	@Router		/api/files/{id} [delete]
func DeleteFile(svc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner, ok := ownerID(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		}
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		if err := svc.Delete(c.UserContext(), owner, id); err != nil {
			return writeServiceError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type ownerRecord struct {
	model.ShareRecord
	HasPassword bool `json:"hasPassword"`
}

func withPasswordFlag(rec *model.ShareRecord) ownerRecord {
	return ownerRecord{ShareRecord: *rec, HasPassword: rec.HasPassword()}
}
