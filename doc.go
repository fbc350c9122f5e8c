// Package backend is the Agora API server.
//
// The server binary lives in cmd/server and the operator tooling in
// cmd/cli. The engagement ledger in internal/ledger owns every write that
// touches a denormalized counter; handlers, seeding and reconciliation all
// go through it.
package backend
