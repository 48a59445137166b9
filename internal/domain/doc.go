// Package domain contains the entities of the memorization tracker:
// content families and ranges, recitation analyses, submissions and the
// per-range review state. It has no dependencies on storage or transport.
package domain
