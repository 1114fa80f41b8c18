// Package artifact contains implementations of core.ArtifactStore, the
// persistence layer for generated decal media (images, narration audio).
//
// The interface lives in the core package so flows and services depend on
// the contract rather than a backend. InMemoryStore serves tests and single
// process deployments; the s3 subpackage stores artifacts in an S3
// compatible bucket.
package artifact
