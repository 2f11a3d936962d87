// Package aggregates implements the transactional write paths for topic
// reviews and per-user learning models on top of the table repos in
// internal/data/repos.
package aggregates
