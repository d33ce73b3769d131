package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chaos-io/depth2layer/config"
	"github.com/chaos-io/depth2layer/depth"
	"github.com/chaos-io/depth2layer/layer"
	"github.com/chaos-io/depth2layer/scene"
)

type handler struct {
	cfg    config.ServerConfig
	svc    *scene.Service
	logger *zap.Logger
}

// createScene 上传图片并返回分层结果，图片只在内存中处理
func (h *handler) createScene(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, scene.Fail("missing image file", err))
		return
	}

	if h.cfg.MaxUploadSize > 0 && file.Size > h.cfg.MaxUploadSize {
		c.JSON(http.StatusBadRequest, scene.Fail(
			fmt.Sprintf("file exceeds size limit (%d MB)", h.cfg.MaxUploadSize/(1024*1024)), nil))
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedType(contentType) {
		c.JSON(http.StatusBadRequest, scene.Fail(
			fmt.Sprintf("unsupported content type %q", contentType), nil))
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, scene.Fail("failed to read upload", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, scene.Fail("failed to read upload", err))
		return
	}

	opts := scene.Options{
		Mock:         boolParam(c, "mock"),
		IncludeDepth: boolParam(c, "include_depth"),
	}
	h.logger.Info("image uploaded",
		zap.String("filename", file.Filename),
		zap.Int64("size", file.Size),
		zap.Bool("mock", opts.Mock),
		zap.Bool("include_depth", opts.IncludeDepth))

	sc, err := h.svc.Process(c.Request.Context(), data, opts)
	if err != nil {
		h.fail(c, "failed to process image", err)
		return
	}
	c.JSON(http.StatusOK, scene.OK("processed", sc))
}

// getScene 根据 MD5 查询已处理的场景
func (h *handler) getScene(c *gin.Context) {
	sc, err := h.svc.Get(c.Request.Context(), c.Param("md5"))
	if err != nil {
		h.fail(c, "failed to get scene", err)
		return
	}
	c.JSON(http.StatusOK, scene.OK("ok", sc))
}

// segment 对请求体中的深度图分层
func (h *handler) segment(c *gin.Context) {
	if h.cfg.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize)
	}

	var dm depth.Map
	if err := c.ShouldBindJSON(&dm); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, scene.Fail(
				fmt.Sprintf("request body exceeds size limit (%d bytes)", tooLarge.Limit), err))
			return
		}
		c.JSON(http.StatusBadRequest, scene.Fail("invalid depth map", err))
		return
	}

	data, err := h.svc.Segment(c.Request.Context(), &dm)
	if err != nil {
		h.fail(c, "failed to segment depth map", err)
		return
	}
	c.JSON(http.StatusOK, scene.OK("segmented", data))
}

func (h *handler) fail(c *gin.Context, message string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.Error(err))
	}
	c.JSON(status, scene.Fail(message, err))
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, layer.ErrInvalidInput), errors.Is(err, depth.ErrInvalidMap):
		return http.StatusBadRequest
	case errors.Is(err, scene.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scene.ErrBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handler) isAllowedType(contentType string) bool {
	if len(h.cfg.AllowedTypes) == 0 {
		return true
	}
	for _, allowed := range h.cfg.AllowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}

func boolParam(c *gin.Context, name string) bool {
	v, ok := c.GetPostForm(name)
	if !ok {
		v = c.Query(name)
	}
	return strings.EqualFold(v, "true") || v == "1"
}
