// service/services.go
package service

import (
	"time"

	"github.com/dev-mohitbeniwal/permcheck/audit"
	"github.com/dev-mohitbeniwal/permcheck/dao"
	"github.com/dev-mohitbeniwal/permcheck/util"
)

type Services struct {
	RolePermission IRolePermissionService
}

func InitializeServices(
	checker Checker,
	reportStore dao.ReportStore,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	eventBus *util.EventBus,
	lockTTL time.Duration,
) *Services {
	return &Services{
		RolePermission: NewRolePermissionService(checker, reportStore, auditService, validationUtil, cacheService, eventBus, lockTTL),
	}
}
