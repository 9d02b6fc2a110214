// Package memory persists conversation transcripts.
//
// Persistence model:
//   - A transcript is the session ID, the generation settings it was created
//     with and every message (role + text parts), seed pair included.
//   - Files are JSON unless the path ends in .yaml or .yml.
//   - RedisArchive keeps transcripts under "transcript:<session id>" with a TTL.
package memory
