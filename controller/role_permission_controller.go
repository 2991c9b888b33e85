// controller/role_permission_controller.go
package controller

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	permcheck_errors "github.com/dev-mohitbeniwal/permcheck/errors"
	"github.com/dev-mohitbeniwal/permcheck/service"
	"github.com/dev-mohitbeniwal/permcheck/util"
	helper_util "github.com/dev-mohitbeniwal/permcheck/util/helper"
)

type RolePermissionController struct {
	rolePermissionService service.IRolePermissionService
	maxUploadBytes        int64
}

func NewRolePermissionController(rolePermissionService service.IRolePermissionService, maxUploadBytes int64) *RolePermissionController {
	return &RolePermissionController{
		rolePermissionService: rolePermissionService,
		maxUploadBytes:        maxUploadBytes,
	}
}

// RegisterRoutes registers the API routes
func (rc *RolePermissionController) RegisterRoutes(r *gin.RouterGroup) {
	rp := r.Group("/role-permission")
	{
		rp.GET("", rc.Health)
		rp.POST("/check", rc.CheckProject)
		rp.GET("/reports", rc.ListReports)
		rp.GET("/reports/:id", rc.GetReport)
		rp.GET("/audit", rc.QueryAudit)
	}
}

// Health endpoint
func (rc *RolePermissionController) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

// CheckProject endpoint: multipart form with a "policy" XML file and a "project" zip file
func (rc *RolePermissionController) CheckProject(c *gin.Context) {
	policyXML, err := rc.readUpload(c, "policy")
	if err != nil {
		rc.respondUploadError(c, err)
		return
	}
	project, err := rc.readUpload(c, "project")
	if err != nil {
		rc.respondUploadError(c, err)
		return
	}

	userID := util.GetUserIDFromContext(c)
	report, err := rc.rolePermissionService.CheckProjectPermissions(c.Request.Context(), policyXML, project, userID)
	if err != nil {
		switch {
		case errors.Is(err, permcheck_errors.ErrMissingUpload),
			errors.Is(err, permcheck_errors.ErrInvalidPolicyDocument),
			errors.Is(err, permcheck_errors.ErrArchiveCorrupt):
			util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
		case errors.Is(err, permcheck_errors.ErrUploadTooLarge):
			util.RespondWithError(c, http.StatusRequestEntityTooLarge, err.Error(), err)
		case errors.Is(err, permcheck_errors.ErrCheckInProgress):
			util.RespondWithError(c, http.StatusConflict, "Identical check already in progress", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to check project", permcheck_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

func (rc *RolePermissionController) readUpload(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", permcheck_errors.ErrMissingUpload, field)
	}
	if rc.maxUploadBytes > 0 && header.Size > rc.maxUploadBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", permcheck_errors.ErrUploadTooLarge, field, rc.maxUploadBytes)
	}

	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", permcheck_errors.ErrMissingUpload, field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", permcheck_errors.ErrMissingUpload, field, err)
	}
	return data, nil
}

func (rc *RolePermissionController) respondUploadError(c *gin.Context, err error) {
	if errors.Is(err, permcheck_errors.ErrUploadTooLarge) {
		util.RespondWithError(c, http.StatusRequestEntityTooLarge, err.Error(), err)
		return
	}
	util.RespondWithError(c, http.StatusBadRequest, err.Error(), err)
}

// GetReport endpoint
func (rc *RolePermissionController) GetReport(c *gin.Context) {
	checkID := c.Param("id")
	report, err := rc.rolePermissionService.GetReport(c.Request.Context(), checkID)
	if err != nil {
		if errors.Is(err, permcheck_errors.ErrReportNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Report not found", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to get report", permcheck_errors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ListReports endpoint
func (rc *RolePermissionController) ListReports(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", permcheck_errors.ErrInvalidPagination)
		return
	}

	summaries, err := rc.rolePermissionService.ListReports(c.Request.Context(), limit, offset)
	if err != nil {
		if errors.Is(err, permcheck_errors.ErrInvalidPagination) {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
			return
		}
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list reports", permcheck_errors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, summaries)
}

// QueryAudit endpoint: from/to are RFC3339, defaulting to the last 24 hours
func (rc *RolePermissionController) QueryAudit(c *gin.Context) {
	now := time.Now().UTC()
	from, err := helper_util.ParseTimeOr(c.Query("from"), now.Add(-24*time.Hour))
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' time", err)
		return
	}
	to, err := helper_util.ParseTimeOr(c.Query("to"), now)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' time", err)
		return
	}

	logs, err := rc.rolePermissionService.QueryAudit(c.Request.Context(), from, to, c.Query("user"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit log", permcheck_errors.ErrInternalServer)
		return
	}

	c.JSON(http.StatusOK, logs)
}
