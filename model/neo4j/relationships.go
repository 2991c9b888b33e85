// model/neo4j/relationships.go
package permcheck_neo4j

// Relationship Types
const (
	// RelReportsRedundant links a check to a permission no rule declares
	RelReportsRedundant = "REPORTS_REDUNDANT"

	// RelReportsLacking links a check to a rule nothing implements
	RelReportsLacking = "REPORTS_LACKING"

	// RelImplementedIn links a permission to the controller it was found in
	RelImplementedIn = "IMPLEMENTED_IN"
)
