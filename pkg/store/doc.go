// Package store provides access to the platform account database behind a
// small Store interface, with SQLite and MongoDB backends. Lookups resolve an
// account by exact username or case-insensitive email and distinguish "no
// match" from "more than one match".
package store
