package cart

import "github.com/google/uuid"

// Items maps a product to the wanted quantity for one user.
type Items map[uuid.UUID]int
