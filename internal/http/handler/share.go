package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"sharelink/internal/service"
)

type peekResponse struct {
	ID           int64      `json:"id"`
	OriginalName string     `json:"originalName"`
	FileSize     int64      `json:"fileSize"`
	MimeType     string     `json:"mimeType"`
	HasPassword  bool       `json:"hasPassword"`
	ExpiresAt    *time.Time `json:"expiresAt"`
}

type qrResponse struct {
	QRCode      string `json:"qrCode"`
	DownloadURL string `json:"downloadUrl"`
}

// PeekShare returns public metadata for a short link without counting a download.
//
//	@Summary	Inspect a share
//	@Tags		share
//	@Produce	json
//	@Param		shortLink	path		string	true	"short link"
//	@Param		password	query		string	false	"share password"
//	@Success	200			{object}	peekResponse
//	@Failure	401			{object}	errorPayload
//	@Failure	403			{object}	errorPayload
//	@Failure	404			{object}	errorPayload
//	@Failure	410			{object}	errorPayload
//	@Router		/api/share/{shortLink} [get]
func PeekShare(svc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := svc.Peek(c.UserContext(), c.Params("shortLink"), c.Query("password"))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(peekResponse{
			ID:           rec.ID,
			OriginalName: rec.OriginalName,
			FileSize:     rec.FileSize,
			MimeType:     rec.MimeType,
			HasPassword:  rec.HasPassword(),
			ExpiresAt:    rec.ExpiresAt,
		})
	}
}

// DownloadShare streams the shared content as an attachment.
//
//	@Summary	Download a share
//	@Tags		share
//	@Produce	octet-stream
//	@Param		shortLink	path		string	true	"short link"
//	@Param		password	query		string	false	"share password"
//	@Success	200			{file}		binary
//	@Failure	401			{object}	errorPayload
//	@Failure	403			{object}	errorPayload
//	@Failure	404			{object}	errorPayload
//	@Failure	410			{object}	errorPayload
//	@Router		/api/share/download/{shortLink} [get]
func DownloadShare(svc service.ShareService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		grant, err := svc.Download(c.UserContext(), c.Params("shortLink"), c.Query("password"))
		if err != nil {
			return writeServiceError(c, err)
		}

		size := grant.Info.Size
		if size <= 0 {
			size = grant.Record.FileSize
		}

		c.Attachment(grant.Record.OriginalName)
		if grant.Record.MimeType != "" {
			c.Set(fiber.HeaderContentType, grant.Record.MimeType)
		}
		// fasthttp closes the stream once it has been written.
		return c.SendStream(grant.Content, int(size))
	}
}

// ShareQRCode renders a QR code pointing at the download URL of a short link.
//
//	@Summary	QR code for a share
//	@Tags		share
//	@Produce	json
//	@Param		shortLink	path		string	true	"short link"
//	@Success	200			{object}	qrResponse
//	@Failure	404			{object}	errorPayload
//	@Router		/api/share/qrcode/{shortLink} [get]
func ShareQRCode(svc service.ShareService, baseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rec, err := svc.Lookup(c.UserContext(), c.Params("shortLink"))
		if err != nil {
			return writeServiceError(c, err)
		}

		url := downloadURL(baseURL, rec.ShortLink)
		img, err := qrDataURL(url, qrSize)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "failed to generate QR code")
		}
		return c.JSON(qrResponse{QRCode: img, DownloadURL: url})
	}
}
