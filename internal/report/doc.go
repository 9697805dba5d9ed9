// Package report generates a property evaluation document from a sales
// floorplan.
//
// A Pipeline runs its stages in order: text extraction, address resolution,
// geocoding, property data extraction, market and area research, investment
// simulation with its workbook, and finally the document. Each stage yields an
// Outcome that is Ok, Skipped or Failed. Only a failed text extraction, an
// unresolved address or a failed document write prevent a report; every other
// failure degrades the report to partial. Run always returns a terminal
// Status and never propagates errors or panics to the caller.
package report
