package core

import "github.com/google/uuid"

// Identifier uniquely names engine-owned objects (scene objects, engine sessions)
// in logs and lookups.
type Identifier = uuid.UUID

func IdentifierAquireNewID() Identifier {
	return uuid.New()
}
