// Package page defines the per-URL page context that flows through a
// prerender run, together with URL normalization helpers.
package page
