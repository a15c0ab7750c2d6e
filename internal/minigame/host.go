package minigame

import (
	"context"

	"github.com/google/uuid"

	"github.com/playperu/minigames/internal/physical"
)

// Players is the host's view of connected players. Methods return an error
// wrapping physical.ErrPlayerOffline for players that are not connected.
type Players interface {
	Name(ctx context.Context, id uuid.UUID) (string, error)
	Location(ctx context.Context, id uuid.UUID) (physical.Location3D, error)
	Teleport(ctx context.Context, id uuid.UUID, loc physical.Location3D) error
}

// Messenger delivers text to a player.
type Messenger interface {
	Send(ctx context.Context, id uuid.UUID, msg string) error
}

// SignDisplay renders four lines of text at a lobby sign's location.
type SignDisplay interface {
	Display(ctx context.Context, loc physical.Location3D, lines [4]string) error
}
