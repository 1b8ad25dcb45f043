package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/SandLosT/Attendant/internal/agenda"
	"github.com/SandLosT/Attendant/internal/attendance"
	"github.com/SandLosT/Attendant/internal/auth"
	"github.com/SandLosT/Attendant/internal/quote"
	"github.com/SandLosT/Attendant/internal/reporting"
	"github.com/SandLosT/Attendant/internal/workflow"
	"github.com/SandLosT/Attendant/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups the owner-facing HTTP handlers.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth    *auth.Manager
	Owner   auth.Owner
	Engine  *workflow.Engine
	Agenda  *agenda.Service
	Reports *reporting.Service
}

// --- Auth ---

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login checks the owner credentials and issues a JWT token pair.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Username == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}
	if err := h.Owner.Authenticate(req.Username, req.Password); err != nil {
		logger.FromGin(c).Warn("owner login refused", "username", req.Username)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), h.Owner.Username, h.Owner.ShopID, h.Owner.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Refresh trades a refresh token for a new pair.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, err := h.Auth.Refresh(req.RefreshToken, h.Owner.Role, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// Me echoes the caller identity.
func (h Handlers) Me(c *gin.Context) {
	id, err := auth.IdentityFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, id)
}

// --- Quotes ---

type approveRequest struct {
	ScheduledDate string `json:"scheduled_date"`
	Note          string `json:"note"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type manualCloseRequest struct {
	FinalValue    *float64 `json:"final_value"`
	ScheduledDate string   `json:"scheduled_date"`
	Note          string   `json:"note"`
}

func (h Handlers) ListQuotes(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	quotes, err := h.Engine.ListQuotes(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	if quotes == nil {
		quotes = []quote.Quote{}
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

func (h Handlers) GetQuote(c *gin.Context) {
	detail, err := h.Engine.GetQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ApproveQuote confirms a pending quote. scheduled_date is mandatory.
func (h Handlers) ApproveQuote(c *gin.Context) {
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	d, err := h.Engine.Approve(c.Request.Context(), c.Param("id"), req.ScheduledDate, req.Note)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h Handlers) RejectQuote(c *gin.Context) {
	var req rejectRequest
	// empty body is fine: the default reason applies
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	d, err := h.Engine.Reject(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h Handlers) ManualCloseQuote(c *gin.Context) {
	var req manualCloseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	closedBy, _ := auth.UserID(c.Request.Context())
	d, err := h.Engine.ManualClose(c.Request.Context(), c.Param("id"), quote.ManualClose{
		FinalValue:    req.FinalValue,
		ScheduledDate: req.ScheduledDate,
		Note:          req.Note,
		ClosedBy:      closedBy,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// --- Attendances ---

type takeoverRequest struct {
	Minutes int    `json:"minutes"`
	Reason  string `json:"reason"`
}

func (h Handlers) Takeover(c *gin.Context) {
	var req takeoverRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	if req.Minutes < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "minutes must be positive"})
		return
	}
	a, err := h.Engine.Takeover(c.Request.Context(), c.Param("phone"), req.Minutes, req.Reason)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) Release(c *gin.Context) {
	a, err := h.Engine.ReleaseManual(c.Request.Context(), c.Param("phone"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h Handlers) Conversation(c *gin.Context) {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	entries, err := h.Engine.Conversation(c.Request.Context(), c.Param("phone"), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": entries})
}

// --- Agenda ---

type blockRequest struct {
	Date    string `json:"date"`
	Period  string `json:"period"`
	Blocked *bool  `json:"blocked"`
}

type generateRequest struct {
	From     string `json:"from"`
	Days     int    `json:"days"`
	Capacity int    `json:"capacity"`
}

// ListAgenda shows slots between from and to (default: the next 14 days).
func (h Handlers) ListAgenda(c *gin.Context) {
	from := h.Agenda.Today()
	if raw := c.Query("from"); raw != "" {
		var ok bool
		if from, ok = h.Agenda.CanonicalDay(raw); !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid from date"})
			return
		}
	}
	to := c.Query("to")
	if to == "" {
		to, _ = agenda.AddDays(from, 13)
	}
	slots, err := h.Agenda.ListAvailability(c.Request.Context(), from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

// OpenSlots lists bookable slots for the next days (default 14).
func (h Handlers) OpenSlots(c *gin.Context) {
	days, ok := queryInt(c, "days")
	if !ok {
		return
	}
	if days == 0 {
		days = 14
	}
	if days > 90 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "days must be at most 90"})
		return
	}
	slots, err := h.Agenda.OpenSlots(c.Request.Context(), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots})
}

func (h Handlers) BlockSlot(c *gin.Context) {
	h.setBlocked(c, true)
}

func (h Handlers) UnblockSlot(c *gin.Context) {
	h.setBlocked(c, false)
}

func (h Handlers) setBlocked(c *gin.Context, blocked bool) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Blocked != nil {
		blocked = *req.Blocked
	}
	changed, err := h.Agenda.SetBlocked(c.Request.Context(), req.Date, req.Period, blocked)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed, "blocked": blocked})
}

func (h Handlers) GenerateSlots(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
			return
		}
	}
	if req.Days < 0 || req.Capacity < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "days and capacity must be positive"})
		return
	}
	res, err := h.Agenda.GenerateSlots(c.Request.Context(), req.From, req.Days, req.Capacity)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// --- Reports ---

// Summary reports quotes and agenda use between from and to, inclusive.
// Defaults to the current month up to today.
func (h Handlers) Summary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reports not configured"})
		return
	}
	today := h.Agenda.Today()
	r := reporting.DateRange{From: c.Query("from"), To: c.Query("to")}
	if r.To == "" {
		r.To = today
	}
	if r.From == "" {
		r.From = today[:8] + "01"
	}
	out, err := h.Reports.Summary(c.Request.Context(), r)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// fail maps domain errors onto status codes.
func (h Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromGin(c).Error("owner request failed", "path", c.FullPath(), "err", err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, quote.ErrNotFound),
		errors.Is(err, attendance.ErrNotFound),
		errors.Is(err, agenda.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, quote.ErrDateRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, quote.ErrAlreadyDecided),
		errors.Is(err, attendance.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, quote.ErrInvalidArgument),
		errors.Is(err, agenda.ErrInvalidArgument),
		errors.Is(err, attendance.ErrInvalidArgument),
		errors.Is(err, attendance.ErrInvalidPhone),
		errors.Is(err, reporting.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(c *gin.Context, key string) (int, bool) {
	v := c.Query(key)
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": key + " must be a positive integer"})
		return 0, false
	}
	return n, true
}
