// Package annotation implements transcript codification: applying
// user-defined codes to character ranges of transcript segments, managing
// the code taxonomy, and partitioning a segment into render spans.
//
// Overlapping annotations are accepted. PartitionForRender splits the text at
// every annotation boundary, so each span lists all annotations covering it
// and overlapping ranges render as nested marks.
package annotation
