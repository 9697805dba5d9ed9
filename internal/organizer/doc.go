// Package organizer files listing mail into property folders.
//
// A run lists unprocessed candidate messages within a look-back window and
// handles them one at a time: the property key is extracted from the message
// text, the folder named after it is found or created, every attachment not
// already present (same name and size) is uploaded, newly saved floorplans
// are passed to the report pipeline, and finally the processed label is
// applied. A failing message is recorded in the RunSummary and the run moves
// on; only a failure to list candidates fails the run.
//
// Idempotency rests entirely on external state: the processed label and the
// folder names. Two overlapping runs may both create a folder with the same
// name; no lock prevents this.
package organizer
