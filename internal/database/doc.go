// Package database provides SQLite storage for the family album.
//
// It handles storage and retrieval of:
//   - Accounts (bcrypt password hashes, two seeded family accounts)
//   - Media items and their tag associations
//   - Tags, memos and comments
//
// Statements go through a small prepared-statement wrapper (Prepare, Run,
// Get, All) that compiles each SQL text once and reports true affected-row
// counts. The database file uses WAL mode with foreign keys enabled, so
// deleting a media item removes its comments and tag associations.
package database
