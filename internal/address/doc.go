// Package address resolves a property address from extracted document text.
//
// Resolution is a ranked chain of strategies: the regex strategy runs first
// and the language-model strategy only when it finds nothing. The first
// strategy to produce a plausible address wins and its name becomes the
// result's source tag. Strategy failures are not errors to the caller; an
// exhausted chain yields SourceNone.
package address
