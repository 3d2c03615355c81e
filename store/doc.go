// Package store persists model artifacts and training runs.
//
// Artifacts are named with slash separated paths and kept in a directory on
// local disk or in an S3 compatible bucket. A new version of an artifact
// becomes visible only once its upload is closed, so a failed save leaves the
// previous model in place. Training runs and their per-epoch history are
// kept in a BadgerDB database keyed by time-ordered UUIDs.
package store
