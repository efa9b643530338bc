package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/careerlens/pkg/middleware"
	"github.com/nao1215/careerlens/pkg/resume"
)

// resumeDocxRequest は.docx出力のリクエストボディ。
type resumeDocxRequest struct {
	Resume *resume.Resume `json:"resume" binding:"required"`
}

// handleResumeDocx は履歴書をWord文書に変換して添付ファイルとして返すハンドラを返す。
func (s *Server) handleResumeDocx() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req resumeDocxRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resume is required"})
			return
		}

		render := s.renderResume
		if render == nil {
			render = resume.Render
		}

		data, err := render(req.Resume)
		if err != nil {
			s.logger.WithError(err).WithField("request_id", middleware.GetRequestID(c)).Error("Word文書の生成に失敗しました")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate Word document"})
			return
		}

		c.Header("Content-Disposition", "attachment; filename=resume.docx")
		c.Data(http.StatusOK, resume.ContentType, data)
	}
}
