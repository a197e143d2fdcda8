package activities

import "context"

// Store holds activity rosters.
//
// Signup and Unregister must perform the membership check and the mutation
// as one atomic step. Both return the roster size after the mutation.
type Store interface {
	// Activities returns a copy of every activity keyed by name.
	Activities(ctx context.Context) (map[string]Activity, error)
	// Signup adds email to the roster of the named activity.
	Signup(ctx context.Context, name, email string) (int, error)
	// Unregister removes email from the roster of the named activity.
	Unregister(ctx context.Context, name, email string) (int, error)
	// Reset restores every roster to the participants it was seeded with.
	Reset(ctx context.Context) error
}
