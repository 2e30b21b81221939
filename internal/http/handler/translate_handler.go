package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mishel123hanna/sign-language/internal/http/middleware"
	"github.com/mishel123hanna/sign-language/internal/service"
)

const downloadPrefix = "sign_translation_"

// TranslateHandler serves text to sign, history and catalogue endpoints.
type TranslateHandler struct {
	Translations *service.TranslationService
}

// NewTranslateHandler creates the handler set.
func NewTranslateHandler(translations *service.TranslationService) *TranslateHandler {
	return &TranslateHandler{Translations: translations}
}

// GenerateVideo renders the posted text as a sign video.
func (h *TranslateHandler) GenerateVideo(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Missing token context."})
		return
	}

	var req struct {
		Text         string `json:"text"`
		LanguageCode string `json:"language_code"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "Body must be JSON with a text field."})
		return
	}

	resp, err := h.Translations.GenerateVideo(c.Request.Context(), claims.Subject.UserID, req.Text, req.LanguageCode)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DownloadVideo streams a generated video as an attachment.
func (h *TranslateHandler) DownloadVideo(c *gin.Context) {
	name := c.Param("filename")
	path, err := h.Translations.VideoPath(name)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	c.Header("Content-Type", "video/mp4")
	c.FileAttachment(path, downloadPrefix+name)
}

// History lists the caller's translations.
func (h *TranslateHandler) History(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_token", "error_description": "Missing token context."})
		return
	}

	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "limit must be an integer."})
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": "offset must be a non-negative integer."})
		return
	}

	resp, err := h.Translations.History(c.Request.Context(), claims.Subject.UserID, limit, offset)
	if err != nil {
		respondAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// AvailableSigns lists the sign catalogue for a language.
func (h *TranslateHandler) AvailableSigns(c *gin.Context) {
	resp, err := h.Translations.AvailableSigns(c.Request.Context(), c.Query("language_code"))
	if err != nil {
		respondAPIError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
