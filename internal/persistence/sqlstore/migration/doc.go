// Package migration applies versioned SQL migrations and tracks them in a
// schema_migrations table.
//
// Migration files are named {version}_{description}.sql and are read from any
// fs.FS, usually an embed.FS compiled into the binary. Each file is executed in
// its own transaction. The blake3 checksum of every applied file is recorded,
// and a later run refuses to continue when an applied file has changed.
package migration
