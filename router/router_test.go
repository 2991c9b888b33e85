package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/dev-mohitbeniwal/permcheck/controller"
	mock_service "github.com/dev-mohitbeniwal/permcheck/test/service_mock"
)

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	controllers := &controller.Controllers{
		RolePermission: controller.NewRolePermissionController(mock_service.NewMockIRolePermissionService(ctrl), 0),
	}

	t.Run("open", func(t *testing.T) {
		r := SetupRouter(controllers, Options{})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/role-permission", nil))
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("auth enabled", func(t *testing.T) {
		r := SetupRouter(controllers, Options{AuthSecret: []byte("s"), RequiredGroups: []string{"admin"}})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/role-permission", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
