// model/neo4j/attributes.go
package permcheck_neo4j

// Attribute Keys
const (
	AttrID             = "id"
	AttrFingerprint    = "fingerprint"
	AttrRequestedBy    = "requestedBy"
	AttrCreatedAt      = "createdAt"
	AttrRedundantCount = "redundantCount"
	AttrLackCount      = "lackCount"

	// AttrReport holds the full report as JSON
	AttrReport = "report"

	AttrRole      = "role"
	AttrAction    = "action"
	AttrResource  = "resource"
	AttrCondition = "condition"
	AttrMethod    = "method"
	AttrPath      = "path"
)
