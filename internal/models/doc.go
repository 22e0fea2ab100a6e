// Package models defines the domain types shared by the playlist generation pipeline, its clients, and its callers.
//
// The package contains three categories of types:
//
// 1. Inputs supplied by collaborators outside the pipeline
//   - [Credential] : bearer token and subject ID for the signed-in user
//   - [Request] : usernames and [Mood] chosen for one generation run
//
// 2. Values that flow between pipeline steps
//   - [Descriptor] : "Title by Artist" candidate, optionally tagged with its source username
//   - [Facet] : one slice of a user's listening history (top, loved, recent)
//   - [Playlist] : a playlist as returned by the streaming service
//
// 3. Persistent records
//   - [Run] : summary of a finished run, stored by repositories.RunRepository
//   - [RunTrack] : one resolved track of a run, in playlist order
package models
