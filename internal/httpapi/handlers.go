package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kareemzeiad-ops/kero-feeder/internal/advisory"
	"github.com/kareemzeiad-ops/kero-feeder/internal/ration"
	"github.com/kareemzeiad-ops/kero-feeder/internal/session"
)

type contextRequest struct {
	Animal   string  `json:"animal"`
	Purpose  string  `json:"purpose"`
	WeightKg float64 `json:"weight_kg"`
	MilkKg   float64 `json:"milk_kg"`
}

func (r contextRequest) animalContext() ration.AnimalContext {
	return ration.AnimalContext{Animal: r.Animal, Purpose: r.Purpose, WeightKg: r.WeightKg, MilkKg: r.MilkKg}
}

type selectRequest struct {
	Names []string `json:"names"`
}

type addRequest struct {
	Name string `json:"name"`
}

// weightRequest keeps the amount raw so that numbers and strings are both
// accepted and anything unparseable is ignored by the editor.
type weightRequest struct {
	Amount json.RawMessage `json:"amount"`
}

func (r weightRequest) raw() string {
	var s string
	if err := json.Unmarshal(r.Amount, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(r.Amount))
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidContext),
		errors.Is(err, session.ErrUnknownIngredient),
		errors.Is(err, ration.ErrInvalidCustomIngredient):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotAllocated), errors.Is(err, session.ErrNoSuggestion):
		return http.StatusConflict
	case errors.Is(err, session.ErrAdvisoryDisabled), errors.Is(err, advisory.ErrMissingCredential):
		return http.StatusServiceUnavailable
	case errors.Is(err, advisory.ErrInvalidCredential), errors.Is(err, advisory.ErrMalformedResponse):
		return http.StatusBadGateway
	}
	var adviceErr *session.AdviceError
	if errors.As(err, &adviceErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) fail(c *gin.Context, err error, view *session.View) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request_failed", "route", c.FullPath(), "status", status, "err", err)
	}
	body := gin.H{"error": err.Error()}
	if view != nil {
		body["session"] = view
	}
	c.JSON(status, body)
}

func (h *Handler) session(c *gin.Context) (*session.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err, nil)
		return nil, false
	}
	return s, true
}

// respond writes the view, or the error with the unchanged view attached.
func (h *Handler) respond(c *gin.Context, v session.View, err error) {
	if err != nil {
		h.fail(c, err, &v)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handler) Catalog(c *gin.Context) {
	data := h.sessions.Dataset()
	cat := ration.NewCatalog(data)
	c.JSON(http.StatusOK, gin.H{
		"batch_size":  ration.BatchSize,
		"ingredients": cat.Ingredients(),
		"categories":  cat.Categories(),
		"additives":   data.Additives,
	})
}

func (h *Handler) Purposes(c *gin.Context) {
	data := h.sessions.Dataset()
	c.JSON(http.StatusOK, gin.H{
		"purposes":     data.Purposes,
		"animal_types": data.AnimalTypes,
	})
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	s, err := h.sessions.Create(req.animalContext())
	if err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusCreated, s.View())
}

func (h *Handler) GetSession(c *gin.Context) {
	if s, ok := h.session(c); ok {
		c.JSON(http.StatusOK, s.View())
	}
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SetContext(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	v, err := s.SetContext(req.animalContext())
	h.respond(c, v, err)
}

func (h *Handler) Select(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "names are required"})
		return
	}
	v, err := s.Select(req.Names...)
	h.respond(c, v, err)
}

func (h *Handler) Deselect(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, err := s.Deselect(c.Param("name"))
	h.respond(c, v, err)
}

func (h *Handler) Allocate(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, err := s.Allocate()
	h.respond(c, v, err)
}

func (h *Handler) AddIngredient(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req addRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	v, err := s.Add(req.Name)
	h.respond(c, v, err)
}

func (h *Handler) SetWeight(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req weightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	v, err := s.SetWeight(c.Param("name"), req.raw())
	h.respond(c, v, err)
}

func (h *Handler) RemoveIngredient(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, err := s.Remove(c.Param("name"))
	h.respond(c, v, err)
}

func (h *Handler) DefineCustom(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	v, err := s.DefineCustom(ration.CustomInput{
		Name:    field(raw, "name"),
		Protein: field(raw, "protein"),
		TDN:     field(raw, "tdn"),
		Fiber:   field(raw, "fiber"),
		Fat:     field(raw, "fat"),
	})
	h.respond(c, v, err)
}

// field reads a form value that may arrive as a JSON string or number.
func field(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func (h *Handler) Advise(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, err := s.Advise(c.Request.Context())
	h.respond(c, v, err)
}

func (h *Handler) ApplyAdvice(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	v, err := s.ApplySuggestion()
	h.respond(c, v, err)
}

func (h *Handler) Reset(c *gin.Context) {
	if s, ok := h.session(c); ok {
		c.JSON(http.StatusOK, s.Reset())
	}
}
