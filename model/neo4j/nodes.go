// model/neo4j/nodes.go
package permcheck_neo4j

// Node Labels
const (
	// LabelCheck represents one reconciliation run
	LabelCheck = "Check"

	// LabelRule represents a declared policy rule the run found unimplemented
	LabelRule = "Rule"

	// LabelPermission represents an implemented permission the run found undeclared
	LabelPermission = "Permission"

	// LabelController represents a controller source file that was analyzed
	LabelController = "Controller"
)
