// Package cmd implements the cobra command tree for the recoverctl CLI:
// the batch run itself, a dry-run validate pass, and version output.
package cmd
