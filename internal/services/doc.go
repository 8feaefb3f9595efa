// Package services contains the HTTP client for the music service API and
// the credential cache it authenticates with.
package services
