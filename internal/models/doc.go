// Package models contains the core data types shared across packages:
// remote track and playlist metadata, local song records, and the
// persistence interfaces implemented by internal/repositories.
package models
