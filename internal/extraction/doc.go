// Package extraction reads measurement workbooks.
//
// An Extractor resolves the part number of a workbook (configured cell,
// then the filename, then "Unknown"), and for every registry parameter of
// that part number reads (serial, value) pairs from the configured columns.
// Problems scoped to a parameter or a row are returned as Issues next to
// the extracted drafts; only failures to read the workbook itself are
// returned as errors.
package extraction
