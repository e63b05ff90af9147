// Package route classifies application paths into access requirements.
//
// A [Classifier] is built once from a rule table and is immutable afterwards.
// Rules match a path exactly, by segment-aligned prefix, or by a segment
// pattern where "{id}" matches a numeric segment and "{*}" matches any single
// segment. Exact rules win over patterns, patterns over prefixes, and longer
// rules over shorter ones of the same kind. Paths no rule covers require an
// authenticated caller.
package route
