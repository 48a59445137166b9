// Package api adapts HTTP requests to the recitation, review and catalog
// services: it decodes and validates request bodies, reads the learner
// from the request context and maps service errors to status codes and
// sanitized messages.
package api
