package handler

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sharelink/internal/access"
	"sharelink/internal/expiry"
	"sharelink/internal/http/middleware"
	"sharelink/internal/model"
	"sharelink/internal/service"
	serviceMocks "sharelink/internal/service/mocks"
	"sharelink/internal/shortlink"
	"sharelink/internal/storage"
)

const testBaseURL = "https://share.example.com"

// asUser stands in for RequireAuth.
func asUser(id int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.UserIDLocalKey, id)
		return c.Next()
	}
}

func decodeError(t *testing.T, body io.Reader) errorPayload {
	t.Helper()
	var p errorPayload
	require.NoError(t, json.NewDecoder(body).Decode(&p))
	return p
}

func strPtr(s string) *string { return &s }

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("no database", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(nil))

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegister(t *testing.T) {
	mockSvc := new(serviceMocks.MockAuthService)
	app := fiber.New()
	app.Post("/register", Register(mockSvc))

	send := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Register", mock.Anything, "alice", "alice@example.com", "secret1").Return(&service.AuthResult{
			Token: "tok",
			User:  model.User{ID: 7, Username: "alice"},
		}, nil).Once()

		resp := send(`{"username":"alice","email":"alice@example.com","password":"secret1"}`)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body authResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "tok", body.Token)
		assert.Equal(t, int64(7), body.UserID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("duplicate", func(t *testing.T) {
		mockSvc.On("Register", mock.Anything, "alice", "alice@example.com", "secret1").Return(nil, service.ErrUserExists).Once()

		resp := send(`{"username":"alice","email":"alice@example.com","password":"secret1"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "USER_EXISTS", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("validation error keeps its message", func(t *testing.T) {
		err := errors.Join(service.ErrInvalidInput, errors.New("email is not valid"))
		mockSvc.On("Register", mock.Anything, "bob", "nope", "secret1").Return(nil, err).Once()

		resp := send(`{"username":"bob","email":"nope","password":"secret1"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		p := decodeError(t, resp.Body)
		assert.Equal(t, "INVALID_INPUT", p.Error.Code)
		assert.Contains(t, p.Error.Message, "email is not valid")
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := send(`{"username":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp.Body).Error.Code)
	})
}

func TestLogin(t *testing.T) {
	mockSvc := new(serviceMocks.MockAuthService)
	app := fiber.New()
	app.Post("/login", Login(mockSvc))

	send := func(body string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Login", mock.Anything, "alice@example.com", "secret1").Return(&service.AuthResult{
			Token: "tok",
			User:  model.User{ID: 7, Username: "alice"},
		}, nil).Once()

		resp := send(`{"email":"alice@example.com","password":"secret1"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body authResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "alice", body.Username)
	})

	t.Run("bad credentials", func(t *testing.T) {
		mockSvc.On("Login", mock.Anything, "alice@example.com", "wrong").Return(nil, service.ErrInvalidCredentials).Once()

		resp := send(`{"email":"alice@example.com","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeError(t, resp.Body).Error.Code)
	})
}

func multipartUpload(t *testing.T, fields map[string]string, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if filename != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		h.Set("Content-Type", contentType)
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockShareService)
	app := fiber.New()
	app.Post("/upload", asUser(7), UploadFile(mockSvc, testBaseURL))

	post := func(body *bytes.Buffer, ct string) *http.Response {
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("success", func(t *testing.T) {
		exp := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.OwnerID == 7 &&
				in.OriginalName == "notes.txt" &&
				in.ContentType == "text/plain" &&
				in.Size == 5 &&
				in.Password == "pw" &&
				in.ExpiresInDays != nil && *in.ExpiresInDays == 7
		})).Return(&model.ShareRecord{
			ID:           1,
			ShortLink:    "V1StGXR8_Z",
			OriginalName: "notes.txt",
			FileSize:     5,
			MimeType:     "text/plain",
			Password:     strPtr("pw"),
			ExpiresAt:    &exp,
		}, nil).Once()

		body, ct := multipartUpload(t, map[string]string{"password": "pw", "expiresInDays": "7"}, "notes.txt", "text/plain", "hello")
		resp := post(body, ct)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var res uploadResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
		assert.Equal(t, "V1StGXR8_Z", res.ShortLink)
		assert.Equal(t, testBaseURL+"/share/V1StGXR8_Z", res.ShareURL)
		assert.True(t, res.HasPassword)
		require.NotNil(t, res.ExpiresAt)
		assert.True(t, exp.Equal(*res.ExpiresAt))
		mockSvc.AssertExpectations(t)
	})

	t.Run("no expiry", func(t *testing.T) {
		mockSvc.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadInput) bool {
			return in.ExpiresInDays == nil && in.Password == ""
		})).Return(&model.ShareRecord{ID: 2, ShortLink: "abcdefghij"}, nil).Once()

		body, ct := multipartUpload(t, nil, "a.txt", "text/plain", "x")
		resp := post(body, ct)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("file required", func(t *testing.T) {
		body, ct := multipartUpload(t, map[string]string{"password": "pw"}, "", "", "")
		resp := post(body, ct)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("non numeric expiry", func(t *testing.T) {
		body, ct := multipartUpload(t, map[string]string{"expiresInDays": "soon"}, "a.txt", "text/plain", "x")
		resp := post(body, ct)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_EXPIRY", decodeError(t, resp.Body).Error.Code)
	})

	errCases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"zero days", expiry.ErrInvalidExpiry, http.StatusBadRequest, "INVALID_EXPIRY"},
		{"too large", service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"},
		{"unsupported type", service.ErrUnsupportedType, http.StatusUnsupportedMediaType, "UNSUPPORTED_TYPE"},
		{"link space exhausted", shortlink.ErrLinkSpaceExhausted, http.StatusServiceUnavailable, "LINK_SPACE_EXHAUSTED"},
		{"storage down", errors.Join(service.ErrStorageUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc.On("Upload", mock.Anything, mock.Anything).Return(nil, tc.err).Once()

			body, ct := multipartUpload(t, nil, "a.txt", "text/plain", "x")
			resp := post(body, ct)

			assert.Equal(t, tc.status, resp.StatusCode)
			p := decodeError(t, resp.Body)
			assert.Equal(t, tc.code, p.Error.Code)
			assert.NotContains(t, p.Error.Message, "dial tcp")
		})
	}

	t.Run("unauthenticated", func(t *testing.T) {
		app := fiber.New()
		app.Post("/upload", UploadFile(mockSvc, testBaseURL))

		body, ct := multipartUpload(t, nil, "a.txt", "text/plain", "x")
		req := httptest.NewRequest(http.MethodPost, "/upload", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestListFiles(t *testing.T) {
	mockSvc := new(serviceMocks.MockShareService)
	app := fiber.New()
	app.Get("/files", asUser(7), ListFiles(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, int64(7), "report", 10, 0).Return(&service.ShareListResult{
			Items: []model.ShareRecord{{ID: 1, OriginalName: "report.pdf", Password: strPtr("hidden")}},
			Total: 1,
		}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/files?search=report&limit=10&offset=0", nil)
		resp, _ := app.Test(req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		assert.NotContains(t, string(raw), "hidden")
		assert.NotContains(t, string(raw), "storage")

		var result service.ShareListResult
		require.NoError(t, json.Unmarshal(raw, &result))
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("defaults", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, int64(7), "", 20, 0).Return(&service.ShareListResult{}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files?limit=abc", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("invalid offset", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files?offset=x", nil))

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_OFFSET", decodeError(t, resp.Body).Error.Code)
	})
}

func TestFileStats(t *testing.T) {
	mockSvc := new(serviceMocks.MockShareService)
	app := fiber.New()
	app.Get("/stats", asUser(7), FileStats(mockSvc))

	mockSvc.On("Stats", mock.Anything, int64(7)).Return(&model.OwnerStats{
		TotalFiles:     2,
		TotalSize:      30,
		TotalDownloads: 5,
		PopularFiles:   []model.ShareRecord{{ID: 1}},
	}, nil).Once()

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var stats model.OwnerStats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(5), stats.TotalDownloads)
	assert.Len(t, stats.PopularFiles, 1)
}

func TestGetFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockShareService)
	app := fiber.New()
	app.Get("/files/:id", asUser(7), GetFile(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(7), int64(3)).Return(&model.ShareRecord{
			ID: 3, OriginalName: "a.txt", Password: strPtr("pw"),
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/3", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "a.txt", body["originalName"])
		assert.Equal(t, true, body["hasPassword"])
		assert.NotContains(t, body, "password")
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(7), int64(4)).Return(nil, service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/4", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/files/abc", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp.Body).Error.Code)
	})
}

func TestUpdateFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockShareService)
	app := fiber.New()
	app.Put("/files/:id", asUser(7), UpdateFile(mockSvc))

	put := func(path, body string) *http.Response {
		req := httptest.NewRequest(http.MethodPut, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)
		return resp
	}

	t.Run("new expiry", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, int64(7), int64(3), mock.MatchedBy(func(in service.UpdateInput) bool {
			return in.Password == "" && in.ExpiresInDays != nil && *in.ExpiresInDays == 3
		})).Return(&model.ShareRecord{ID: 3}, nil).Once()

		resp := put("/files/3", `{"password":"","expiresInDays":3}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("expiry omitted", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, int64(7), int64(3), mock.MatchedBy(func(in service.UpdateInput) bool {
			return in.Password == "new" && in.ExpiresInDays == nil
		})).Return(&model.ShareRecord{ID: 3, Password: strPtr("new")}, nil).Once()

		resp := put("/files/3", `{"password":"new"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid expiry", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, int64(7), int64(3), mock.Anything).Return(nil, expiry.ErrInvalidExpiry).Once()

		resp := put("/files/3", `{"expiresInDays":-1}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_EXPIRY", decodeError(t, resp.Body).Error.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		resp := put("/files/3", `{"expiresInDays":"x"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp.Body).Error.Code)
	})
}

func TestDeleteFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockShareService)
	app := fiber.New()
	app.Delete("/files/:id", asUser(7), DeleteFile(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(7), int64(3)).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/files/3", nil))
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(7), int64(9)).Return(service.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/files/9", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodDelete, "/files/0", nil))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPeekShare(t *testing.T) {
	mockSvc := new(serviceMocks.MockShareService)
	app := fiber.New()
	app.Get("/share/:shortLink", PeekShare(mockSvc))

	t.Run("granted", func(t *testing.T) {
		mockSvc.On("Peek", mock.Anything, "V1StGXR8_Z", "pw").Return(&model.ShareRecord{
			ID: 1, OriginalName: "a.txt", FileSize: 5, MimeType: "text/plain", Password: strPtr("pw"),
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/share/V1StGXR8_Z?password=pw", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body peekResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "a.txt", body.OriginalName)
		assert.True(t, body.HasPassword)
	})

	denials := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", access.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"expired", access.ErrExpired, http.StatusGone, "EXPIRED"},
		{"password required", access.ErrPasswordRequired, http.StatusUnauthorized, "PASSWORD_REQUIRED"},
		{"password mismatch", access.ErrPasswordMismatch, http.StatusForbidden, "PASSWORD_MISMATCH"},
	}
	for _, tc := range denials {
		t.Run(tc.name, func(t *testing.T) {
			mockSvc.On("Peek", mock.Anything, "abcdefghij", "").Return(nil, tc.err).Once()

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/share/abcdefghij", nil))
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decodeError(t, resp.Body).Error.Code)
		})
	}
}

func TestDownloadShare(t *testing.T) {
	mockSvc := new(serviceMocks.MockShareService)
	app := fiber.New()
	app.Get("/download/:shortLink", DownloadShare(mockSvc))

	t.Run("streams content", func(t *testing.T) {
		mockSvc.On("Download", mock.Anything, "V1StGXR8_Z", "").Return(&access.Grant{
			Record:  &model.ShareRecord{OriginalName: "notes.txt", MimeType: "text/plain", FileSize: 5},
			Content: io.NopCloser(strings.NewReader("hello")),
			Info:    storage.ObjectInfo{Size: 5},
		}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/download/V1StGXR8_Z", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "notes.txt")

		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "hello", string(raw))
	})

	t.Run("expired", func(t *testing.T) {
		mockSvc.On("Download", mock.Anything, "abcdefghij", "pw").Return(nil, access.ErrExpired).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/download/abcdefghij?password=pw", nil))
		assert.Equal(t, http.StatusGone, resp.StatusCode)
		assert.Equal(t, "EXPIRED", decodeError(t, resp.Body).Error.Code)
	})
}

func TestShareQRCode(t *testing.T) {
	mockSvc := new(serviceMocks.MockShareService)
	app := fiber.New()
	app.Get("/qrcode/:shortLink", ShareQRCode(mockSvc, testBaseURL+"/"))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Lookup", mock.Anything, "V1StGXR8_Z").Return(&model.ShareRecord{ShortLink: "V1StGXR8_Z"}, nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/qrcode/V1StGXR8_Z", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body qrResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, testBaseURL+"/download/V1StGXR8_Z", body.DownloadURL)

		const prefix = "data:image/png;base64,"
		require.True(t, strings.HasPrefix(body.QRCode, prefix))
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(body.QRCode, prefix))
		require.NoError(t, err)
		img, err := png.Decode(bytes.NewReader(raw))
		require.NoError(t, err)
		assert.Equal(t, qrSize, img.Bounds().Dx())
	})

	t.Run("unknown link", func(t *testing.T) {
		mockSvc.On("Lookup", mock.Anything, "abcdefghij").Return(nil, access.ErrNotFound).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/qrcode/abcdefghij", nil))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	app.Get("/limited", func(c *fiber.Ctx) error {
		return fiber.ErrTooManyRequests
	})
	app.Get("/private", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("secret internals")
	})

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/missing", http.StatusNotFound, "NOT_FOUND"},
		{"/limited", http.StatusTooManyRequests, "RATE_LIMITED"},
		{"/private", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"/boom", http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set(middleware.RequestIDHeader, "rid-1")
			resp, _ := app.Test(req)

			assert.Equal(t, tt.status, resp.StatusCode)
			p := decodeError(t, resp.Body)
			assert.Equal(t, tt.code, p.Error.Code)
			assert.Equal(t, "rid-1", p.RequestID)
			assert.NotContains(t, p.Error.Message, "secret")
		})
	}
}
