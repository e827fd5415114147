package patrons

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/patrons", h.RegisterPatron)
	r.GET("/patrons", h.ListPatrons)
	r.GET("/patrons/:patron_id", h.GetPatron)
	r.GET("/patrons/:patron_id/status", h.StatusReport)
}

// RegisterPatron godoc
// @Summary 利用者登録
// @Tags patrons
// @Accept json
// @Produce json
// @Param body body RegisterPatronRequest true "patron"
// @Success 201 {object} PatronResponse
// @Failure 409 {object} map[string]any
// @Router /patrons [post]
func (h *Handler) RegisterPatron(c *gin.Context) {
	var req RegisterPatronRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apiErr(CodeInvalidArgument, "invalid json"))
		return
	}
	res, err := h.svc.RegisterPatron(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), apiErrFrom(err))
		return
	}
	c.Header("Location", "/patrons/"+res.PatronID)
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetPatron(c *gin.Context) {
	res, err := h.svc.GetPatron(c.Request.Context(), c.Param("patron_id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), apiErrFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) ListPatrons(c *gin.Context) {
	p := Page{
		Limit:  atoiDef(c.Query("limit"), 50),
		Offset: atoiDef(c.Query("offset"), 0),
		Order:  strings.ToLower(c.DefaultQuery("order", "asc")),
	}
	items, total, err := h.svc.ListPatrons(c.Request.Context(), p)
	if err != nil {
		c.JSON(toHTTPStatus(err), apiErrFrom(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": total})
}

// StatusReport godoc
// @Summary 利用者の貸出状況レポート
// @Tags patrons
// @Produce json
// @Param patron_id path string true "6-digit patron id"
// @Success 200 {object} StatusReport
// @Failure 404 {object} map[string]any
// @Router /patrons/{patron_id}/status [get]
func (h *Handler) StatusReport(c *gin.Context) {
	res, err := h.svc.StatusReport(c.Request.Context(), c.Param("patron_id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), apiErrFrom(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

func atoiDef(s string, d int) int {
	if s == "" {
		return d
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func apiErr(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func apiErrFrom(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return apiErr(code, msg)
}
