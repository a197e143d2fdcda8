// Package activities implements the activity registry: a fixed catalog of
// school activities, each holding a roster of participant emails.
//
// The registry exposes three operations through Service:
//
//   - Activities returns every activity with its current roster.
//   - Signup adds an email to an activity's roster.
//   - Unregister removes an email from an activity's roster.
//
// Rosters live in a Store. MemoryStore keeps them in process memory and is the
// default. RedisStore keeps them in Redis sorted sets so several server
// replicas can share one registry.
//
// # Roster state
//
// Every (activity, email) pair is either registered or not. Signup only
// succeeds from the unregistered state and Unregister only from the
// registered state, so neither operation is idempotent:
//
//	svc := activities.NewService(activities.NewMemoryStore(activities.DefaultCatalog()))
//	msg, err := svc.Signup(ctx, "Math Club", "ada@mergington.edu")  // "Signed up ada@mergington.edu for Math Club"
//	_, err = svc.Signup(ctx, "Math Club", "ada@mergington.edu")     // ErrAlreadyRegistered
//	_, err = svc.Unregister(ctx, "Chess Club", "ada@mergington.edu") // ErrNotRegistered
//	_, err = svc.Signup(ctx, "Nonexistent", "ada@mergington.edu")   // ErrActivityNotFound
package activities
