package collaborator

import (
	"context"
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// ULIDWalletAllocator issues wallet addresses locally. In production
// deployments where addresses come from the payments switch, this is
// replaced by its client; the address shape is the same.
type ULIDWalletAllocator struct{}

// NewULIDWalletAllocator creates a new ULIDWalletAllocator.
func NewULIDWalletAllocator() *ULIDWalletAllocator {
	return &ULIDWalletAllocator{}
}

// AllocateWalletAddress issues a fresh wallet address for the owner.
func (a *ULIDWalletAllocator) AllocateWalletAddress(ctx context.Context, ownerID string) (string, error) {
	return "wa:" + ulid.MustNew(ulid.Now(), rand.Reader).String(), nil
}
