// Package clustering tracks speaker identities across chunks.
//
// Each chunk's segmentation labels its speakers 0..n-1 in an arbitrary
// order. Tracker maps those local labels onto a capped, append-only set of
// global identities by comparing per-chunk embeddings with each identity's
// centroid, so that the same person keeps the same index for the whole
// session.
package clustering
