package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/masjid-suite/billing/internal/api/dto"
	"github.com/masjid-suite/billing/internal/logger"
	"github.com/masjid-suite/billing/internal/service"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

type LocalAdminHandler struct {
	service service.LocalAdminService
	log     *logger.Logger
}

func NewLocalAdminHandler(service service.LocalAdminService, log *logger.Logger) *LocalAdminHandler {
	return &LocalAdminHandler{service: service, log: log}
}

// @Summary Register a local admin
// @Tags LocalAdmins
// @Accept json
// @Produce json
// @Param local_admin body dto.CreateLocalAdminRequest true "Local admin profile"
// @Success 201 {object} dto.LocalAdminResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /local-admins [post]
func (h *LocalAdminHandler) CreateLocalAdmin(c *gin.Context) {
	var req dto.CreateLocalAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateLocalAdmin(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create local admin", "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Get a local admin by ID
// @Tags LocalAdmins
// @Produce json
// @Param id path string true "Local admin ID"
// @Success 200 {object} dto.LocalAdminResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /local-admins/{id} [get]
func (h *LocalAdminHandler) GetLocalAdmin(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Local admin ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetLocalAdmin(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List local admins
// @Tags LocalAdmins
// @Produce json
// @Success 200 {object} dto.ListLocalAdminsResponse
// @Router /local-admins [get]
func (h *LocalAdminHandler) ListLocalAdmins(c *gin.Context) {
	var req dto.ListLocalAdminsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListLocalAdmins(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Update a local admin's availability
// @Tags LocalAdmins
// @Accept json
// @Produce json
// @Param id path string true "Local admin ID"
// @Param availability body dto.UpdateAvailabilityRequest true "New availability"
// @Success 200 {object} dto.LocalAdminResponse
// @Failure 400 {object} ierr.ErrorResponse
// @Router /local-admins/{id}/availability [put]
func (h *LocalAdminHandler) UpdateAvailability(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Local admin ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateAvailability(c.Request.Context(), id, req)
	if err != nil {
		h.log.Errorw("failed to update availability", "local_admin_id", id, "error", err)
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Assign a local admin to a masjid
// @Description Capacity-checked assignment; only premium tenants qualify
// @Tags LocalAdmins
// @Accept json
// @Produce json
// @Param assignment body dto.AssignLocalAdminRequest true "Assignment"
// @Success 201 {object} dto.AssignmentResponse
// @Failure 409 {object} ierr.ErrorResponse
// @Failure 422 {object} ierr.ErrorResponse
// @Router /local-admins/assignments [post]
func (h *LocalAdminHandler) AssignLocalAdmin(c *gin.Context) {
	var req dto.AssignLocalAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.AssignLocalAdmin(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to assign local admin",
			"masjid_id", req.MasjidID,
			"local_admin_id", req.LocalAdminID,
			"error", err,
		)
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// @Summary Unassign a masjid's local admin
// @Description Idempotent; unassigning a masjid without an assignment succeeds
// @Tags LocalAdmins
// @Produce json
// @Param masjid_id path string true "Masjid ID"
// @Success 204
// @Router /masjids/{masjid_id}/local-admin [delete]
func (h *LocalAdminHandler) UnassignLocalAdmin(c *gin.Context) {
	masjidID := c.Param("masjid_id")
	if masjidID == "" {
		c.Error(ierr.NewError("masjid_id is required").
			WithHint("Masjid ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.UnassignLocalAdmin(c.Request.Context(), masjidID); err != nil {
		h.log.Errorw("failed to unassign local admin", "masjid_id", masjidID, "error", err)
		c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Get a masjid's local admin assignment
// @Tags LocalAdmins
// @Produce json
// @Param masjid_id path string true "Masjid ID"
// @Success 200 {object} dto.AssignmentResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /masjids/{masjid_id}/local-admin [get]
func (h *LocalAdminHandler) GetAssignment(c *gin.Context) {
	masjidID := c.Param("masjid_id")
	if masjidID == "" {
		c.Error(ierr.NewError("masjid_id is required").
			WithHint("Masjid ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetAssignment(c.Request.Context(), masjidID)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Get a local admin's earnings summary
// @Tags LocalAdmins
// @Produce json
// @Param id path string true "Local admin ID"
// @Success 200 {object} dto.EarningsResponse
// @Failure 404 {object} ierr.ErrorResponse
// @Router /local-admins/{id}/earnings [get]
func (h *LocalAdminHandler) GetEarnings(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Local admin ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetEarnings(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
