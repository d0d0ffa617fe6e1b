package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/social-system/social-system/pkg/files"
	"github.com/social-system/social-system/pkg/logger"
)

const maxUploadSize = 10 << 20 // 10MB

type FileHandler struct {
	store  *files.Store
	logger *logger.Logger
}

func NewFileHandler(store *files.Store, logger *logger.Logger) *FileHandler {
	return &FileHandler{store: store, logger: logger}
}

// Upload 附件先于推文/评论落盘，返回URL由后续创建请求引用
func (h *FileHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open file"})
		return
	}
	defer f.Close()

	url, err := h.store.Save(fileHeader.Filename, f)
	if err != nil {
		h.logger.WithError(err).Error("Failed to save uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save file"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"url": url})
}
