// Package main provides albumctl, the maintenance command for the family
// album.
//
// It works directly on the SQLite file and the uploads directory, so it can
// run while the server is stopped or alongside it.
//
// # Commands
//
//	albumctl reset <username>   set a new password (prompted twice, not echoed)
//	albumctl status             list accounts and album totals
//	albumctl init-tags          create the default tag set where missing
//	albumctl backup <dest>      write a consistent snapshot of the database
//	albumctl clear-data --yes   delete the database and every upload
//
// The seed accounts always carry SEED_PASSWORD; reset refuses them.
//
// # Configuration
//
// Settings resolve the same way as for the server: a .env file in the
// working directory, then CONFIG_DIR/config.yaml, then the environment.
//
//   - DATABASE_PATH: SQLite file (default ./data/database.sqlite)
//   - UPLOAD_DIR: uploads directory (default ./uploads)
//   - SEED_PASSWORD: password kept on the seed accounts
package main
