// Package cards implements the visiting-card record lifecycle.
//
// The Service is the only way to create, edit, soft-delete and restore a
// card, and it serves the read-side projections (active search, deleted
// listing, export). Cards move between two states:
//
//	active  --SoftDelete--> deleted
//	deleted --Restore-->    active
//
// Edit is a self-loop on active. Nothing in this package removes a record
// permanently.
//
// The service layer depends on the Repository interface defined in
// repository.go. It never imports net/http or database/sql directly.
package cards
