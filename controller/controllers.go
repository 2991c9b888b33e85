// controller/controllers.go
package controller

import "github.com/dev-mohitbeniwal/permcheck/service"

type Controllers struct {
	RolePermission *RolePermissionController
}

func InitializeControllers(services *service.Services, maxUploadBytes int64) *Controllers {
	return &Controllers{
		RolePermission: NewRolePermissionController(services.RolePermission, maxUploadBytes),
	}
}
