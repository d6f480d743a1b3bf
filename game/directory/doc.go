// Package directory is the relay's session directory: the single source of
// truth for which connections exist, which room each one belongs to, and
// each room's merged player snapshots.
//
// The directory package implements:
//   - Per-connection ActivePlayer records with activity tracking
//   - Lazy game-category and room creation on join
//   - Leave cascades: empty rooms delete themselves, roomless categories too
//   - Shallow last-write-wins snapshot merging per player
//   - Idle-player and idle-room sweeps for the activity monitor
//
// Room Identifiers:
//
// Rooms use 6-character uppercase base-36 tokens generated with
// cryptographic randomness when the joiner supplies none. Collisions within
// a game are not checked; a colliding token silently joins the existing
// room, indistinguishable from an intentional join of that room.
//
// Concurrency:
//
// A directory-level mutex guards the registry maps and all create/delete
// cascades; each room carries its own mutex for snapshot merges and
// broadcast-group iteration, so traffic in one room never contends with
// another. Broadcast targets are handed to the caller as Senders whose
// Enqueue never blocks, so no network I/O happens under a lock.
package directory
