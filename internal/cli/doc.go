// Package cli implements the partflow command tree.
package cli
