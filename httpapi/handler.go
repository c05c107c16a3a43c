// Package httpapi 通过 HTTP 暴露引擎的导航、缩放、边距与导出接口。
package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ByLCY/lessoncanvas/dsl"
	"github.com/ByLCY/lessoncanvas/engine"
	"github.com/ByLCY/lessoncanvas/layout"
	"github.com/ByLCY/lessoncanvas/logger"
	"github.com/ByLCY/lessoncanvas/viewport"
)

// Runner 把闭包送到引擎所在的 goroutine 执行并等待完成；host.Loop 满足该接口。
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

type Handler struct {
	eng    *engine.Engine
	runner Runner
	log    *logger.Logger
}

func NewHandler(eng *engine.Engine, runner Runner, log *logger.Logger) *Handler {
	return &Handler{eng: eng, runner: runner, log: logger.OrNop(log).With("component", "http")}
}

// call 在引擎 goroutine 中执行 fn，返回 fn 或投递本身的错误。
// fn 不得读取 c：请求超时后 gin 会回收 c，而 fn 此时可能仍在执行。
func (h *Handler) call(c *gin.Context, fn func() error) error {
	var err error
	if doErr := h.runner.Do(c.Request.Context(), func() { err = fn() }); doErr != nil {
		return doErr
	}
	return err
}

func (h *Handler) status(c *gin.Context) (engine.Status, error) {
	var st engine.Status
	err := h.call(c, func() error {
		st = h.eng.Status()
		return nil
	})
	return st, err
}

// respondStatus 执行 fn 后返回最新状态。
func (h *Handler) respondStatus(c *gin.Context, fn func() error) {
	var st engine.Status
	err := h.call(c, func() error {
		if err := fn(); err != nil {
			return err
		}
		st = h.eng.Status()
		return nil
	})
	if err != nil {
		h.log.Warn("请求失败", "path", c.FullPath(), "error", err)
		respondEngineError(c, err)
		return
	}
	RespondOK(c, st)
}

func animated(c *gin.Context) bool {
	v := strings.ToLower(c.Query("animated"))
	return v == "1" || v == "true" || v == "yes"
}

// GET /api/state
func (h *Handler) State(c *gin.Context) {
	st, err := h.status(c)
	if err != nil {
		respondEngineError(c, err)
		return
	}
	RespondOK(c, st)
}

// POST /api/pages/:index?animated=1
func (h *Handler) GoToPage(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_index", fmt.Errorf("页码必须是整数: %q", c.Param("index")))
		return
	}
	anim := animated(c)
	h.respondStatus(c, func() error { return h.eng.GoToPage(index, anim) })
}

// POST /api/next
func (h *Handler) Next(c *gin.Context) {
	anim := animated(c)
	h.respondStatus(c, func() error { return h.eng.NextPage(anim) })
}

// POST /api/prev
func (h *Handler) Prev(c *gin.Context) {
	anim := animated(c)
	h.respondStatus(c, func() error { return h.eng.PreviousPage(anim) })
}

type zoomRequest struct {
	Scale  *float64 `json:"scale"`
	Factor *float64 `json:"factor"`
	Action string   `json:"action"` // in/out/reset
	Step   float64  `json:"step"`
}

// POST /api/zoom
func (h *Handler) Zoom(c *gin.Context) {
	var req zoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	var op func() error
	switch {
	case req.Scale != nil:
		op = func() error { _, err := h.eng.ZoomTo(*req.Scale); return err }
	case req.Factor != nil:
		op = func() error { _, err := h.eng.ZoomBy(*req.Factor); return err }
	case req.Action == "in":
		op = func() error { _, err := h.eng.ZoomIn(req.Step); return err }
	case req.Action == "out":
		op = func() error { _, err := h.eng.ZoomOut(req.Step); return err }
	case req.Action == "reset":
		op = func() error { _, err := h.eng.ResetZoom(); return err }
	default:
		RespondError(c, http.StatusBadRequest, "invalid_body", fmt.Errorf("需要 scale、factor 或 action(in/out/reset)"))
		return
	}
	h.respondStatus(c, op)
}

// POST /api/view/reset
func (h *Handler) ResetView(c *gin.Context) {
	h.respondStatus(c, func() error { _, err := h.eng.ResetView(); return err })
}

type resizeRequest struct {
	Width  int `json:"width" binding:"required,gt=0"`
	Height int `json:"height" binding:"required,gt=0"`
}

// POST /api/resize
func (h *Handler) Resize(c *gin.Context) {
	var req resizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	h.respondStatus(c, func() error {
		h.eng.Resize(req.Width, req.Height)
		return nil
	})
}

// POST /api/input
func (h *Handler) Input(c *gin.Context) {
	var ev viewport.InputEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	h.respondStatus(c, func() error { return h.eng.HandleInput(ev) })
}

type marginsRequest struct {
	Unit string `json:"unit"`
	layout.Margins
}

type marginsResponse struct {
	Unit    string         `json:"unit"`
	Margins layout.Margins `json:"margins"`
}

// GET /api/margins?unit=mm
func (h *Handler) GetMargins(c *gin.Context) {
	unit, err := layout.ParseUnit(c.DefaultQuery("unit", "mm"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_unit", err)
		return
	}
	var m layout.Margins
	if err := h.call(c, func() error { m = h.eng.Margins(unit); return nil }); err != nil {
		respondEngineError(c, err)
		return
	}
	RespondOK(c, marginsResponse{Unit: unit.String(), Margins: m})
}

// PUT /api/margins
func (h *Handler) SetMargins(c *gin.Context) {
	var req marginsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if req.Unit == "" {
		req.Unit = "mm"
	}
	unit, err := layout.ParseUnit(req.Unit)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_unit", err)
		return
	}
	var m layout.Margins
	var setErr error
	err = h.call(c, func() error {
		if setErr = h.eng.SetMargins(req.Margins, unit); setErr == nil {
			m = h.eng.Margins(unit)
		}
		return nil
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	if setErr != nil {
		RespondError(c, http.StatusBadRequest, "invalid_margins", setErr)
		return
	}
	RespondOK(c, marginsResponse{Unit: unit.String(), Margins: m})
}

// PUT /api/pages：请求体是页面 JSON 数组。
func (h *Handler) SetPages(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	list, err := dsl.DecodePages(data)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_pages", err)
		return
	}
	h.respondStatus(c, func() error { return h.eng.SetPages(list) })
}

// GET /api/layout
func (h *Handler) Layout(c *gin.Context) {
	var doc *layout.Document
	err := h.call(c, func() error {
		var err error
		doc, err = h.eng.Document()
		return err
	})
	if err != nil {
		respondEngineError(c, err)
		return
	}
	RespondOK(c, doc)
}

// GET /api/snapshot.png
func (h *Handler) Snapshot(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.call(c, func() error { return h.eng.Snapshot(&buf) }); err != nil {
		respondEngineError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// GET /api/export.pdf
func (h *Handler) ExportPDF(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.call(c, func() error { return h.eng.ExportPDF(&buf) }); err != nil {
		respondEngineError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="lesson.pdf"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
