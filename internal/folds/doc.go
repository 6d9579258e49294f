// Package folds partitions a task's train and val records into k
// cross-validation folds.
//
// Ownership boundary:
// - pool assembly and seeded shuffling
// - contiguous slice assignment
// - fold directory materialization (<out>/fold<i>/<task>/{train,val,test}.jsonl)
//
// The package never parses records. Each non-blank input line is one record.
package folds
