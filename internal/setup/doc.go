// Package setup implements the configuration pages of the setup tool.
//
// A page declares its model (every editable key with its current or default
// value), a validator chain per key and a layout of widgets. Edits arrive
// through OnChange, which validates them and records them as pending. Merge
// turns the pending edits into a transaction:
//
//  1. changes is the set of pending edits; the effective model is the page
//     model overlaid with the effective changes.
//  2. A table of key groups is walked in a fixed order. Every group touched
//     by changes contributes its elements, built from the effective model.
//  3. The transaction runs through the page observer and the pending edits
//     are cleared whatever the outcome.
//
// Validation and store errors stop Merge before anything runs. Step failures
// are reported by the returned transaction.Result.
package setup
