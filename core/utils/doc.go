// Package utils provides small value helpers shared by the reconciler and the
// CLI: key formatting and type-preserving integer increments
// used when synthesizing fresh primary keys.
package utils
