package device

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/smartdoorlock/core/internal/middleware"
	"github.com/smartdoorlock/core/internal/models"
	"github.com/smartdoorlock/core/internal/pkg/credential"
	"github.com/smartdoorlock/core/internal/pkg/response"
)

const contextKeyDevice = "device"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/device/request-pairing", h.requestPairing)

	g := rg.Group("/device/:token", h.authorize)
	g.GET("", h.get)
	g.GET("/add-card", h.addCard)
	g.GET("/card/:card/set-name/:name", h.setCardName)
	g.POST("/lock", h.lock)
	g.POST("/unlock", h.unlock)
}

// authorize loads the record at :token and checks the bearer credential
// against it. A missing header is rejected before the store is touched.
func (h *Handler) authorize(c *gin.Context) {
	presented := middleware.BearerToken(c)
	if presented == "" {
		response.Unauthorized(c)
		return
	}
	d, err := h.svc.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if !credential.Matches(d.DeviceID, presented) {
		response.Unauthorized(c)
		return
	}
	c.Set(contextKeyDevice, d)
	c.Next()
}

// POST /device/request-pairing
func (h *Handler) requestPairing(c *gin.Context) {
	var dto RequestPairingDTO
	if err := c.ShouldBind(&dto); err != nil || dto.DeviceID == "" {
		response.BadRequest(c)
		return
	}
	token, err := h.svc.RequestPairing(c.Request.Context(), dto.DeviceID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, pairingResponse{Token: token})
}

// GET /device/:token
func (h *Handler) get(c *gin.Context) {
	response.OK(c, toResponse(currentDevice(c)))
}

// GET /device/:token/add-card
func (h *Handler) addCard(c *gin.Context) {
	if err := h.svc.RequestCardEnrollment(c.Request.Context(), c.Param("token")); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, nil)
}

// GET /device/:token/card/:card/set-name/:name
func (h *Handler) setCardName(c *gin.Context) {
	err := h.svc.RenameCard(c.Request.Context(), c.Param("token"), c.Param("card"), c.Param("name"))
	if err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, nil)
}

// POST /device/:token/lock
func (h *Handler) lock(c *gin.Context) {
	h.setDoor(c, models.DoorLocked)
}

// POST /device/:token/unlock
func (h *Handler) unlock(c *gin.Context) {
	h.setDoor(c, models.DoorUnlocked)
}

func (h *Handler) setDoor(c *gin.Context, status models.DoorStatus) {
	if err := h.svc.SetDoorStatus(c.Request.Context(), c.Param("token"), status); err != nil {
		h.fail(c, err)
		return
	}
	response.OK(c, nil)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCardNotFound):
		response.NotFound(c)
	default:
		response.InternalError(c, err)
	}
}

func currentDevice(c *gin.Context) *models.DeviceModel {
	v, _ := c.Get(contextKeyDevice)
	d, _ := v.(*models.DeviceModel)
	return d
}
