package fees

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct{ svc *Service }

func RegisterRoutes(r gin.IRoutes, svc *Service) {
	h := &Handler{svc: svc}

	r.POST("/fees/payments", h.PayLateFees)
	r.GET("/fees/payments", h.ListPayments)
	r.POST("/fees/refunds", h.Refund)
}

// PayLateFees godoc
// @Summary 延滞料金の支払い
// @Tags fees
// @Accept json
// @Produce json
// @Param body body PayFeesRequest true "payment"
// @Success 201 {object} PaymentResponse
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /fees/payments [post]
func (h *Handler) PayLateFees(c *gin.Context) {
	var req PayFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.PayLateFees(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) ListPayments(c *gin.Context) {
	res, err := h.svc.ListPayments(c.Request.Context(), c.Query("patron_id"))
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// Refund godoc
// @Summary 支払いの返金
// @Tags fees
// @Accept json
// @Produce json
// @Param body body RefundRequest true "refund"
// @Success 200 {object} RefundResponse
// @Router /fees/refunds [post]
func (h *Handler) Refund(c *gin.Context) {
	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody(CodeInvalidArgument, "invalid json or missing required fields"))
		return
	}
	res, err := h.svc.Refund(c.Request.Context(), req)
	if err != nil {
		c.JSON(toHTTPStatus(err), errorFromErr(err))
		return
	}
	c.JSON(http.StatusOK, res)
}

// ---------- helpers ----------

type errorDTO struct {
	Error struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func errorBody(code Code, msg string) errorDTO {
	var e errorDTO
	e.Error.Code = code
	e.Error.Message = msg
	return e
}

func errorFromErr(err error) errorDTO {
	var msg string
	var code Code = CodeInternal
	if api, ok := err.(*APIError); ok {
		code, msg = api.Code, api.Message
	} else {
		msg = err.Error()
	}
	return errorBody(code, msg)
}
