package mint

import "github.com/xraph/mint/id"

// ID is the primary identifier type for all Mint entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
