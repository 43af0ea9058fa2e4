// Package syncer composes the session authority, the push channel manager,
// and the job status store into the single run loop that keeps local job
// statuses in sync with the backend.
package syncer
