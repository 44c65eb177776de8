// Package recur holds the pure scheduling logic for recurring tasks:
// the rule token codec, the next-due-date calculator, the bucket
// classifier, and the instance decision policy.
//
// Nothing in this package performs I/O or reads the wall clock; all
// functions take explicit reference dates so they stay deterministic
// and trivially testable.
package recur
