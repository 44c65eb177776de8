// Package engine materializes concrete task instances from recurring
// templates. One Run per user walks the eligible templates, decides per
// template whether the next occurrence is due (see internal/recur) and
// inserts at most one instance per (template, due date).
//
// Runs are rate-limited by a persisted per-user marker and are safe to
// trigger opportunistically; a separate Cleanup pass converges any
// duplicate instances the best-effort insert path let through.
package engine
