// Package diagnostics runs the checks behind `beequen doctor`: data files,
// credentials and host resources.
package diagnostics
