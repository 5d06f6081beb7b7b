package auditor

import "github.com/awsdataarchitect/ai-compliance-auditor/id"

// ID is the primary identifier type for all auditor entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
