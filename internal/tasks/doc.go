// Package tasks owns the task name to split filename table.
//
// Ownership boundary:
// - built-in SuperGLUE split mapping
// - split filename validation
// - <data_dir>/<task>/<file> resolution
package tasks
