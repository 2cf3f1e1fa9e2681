// Package entry classifies archive entries and validates their content.
//
// Classification is a pure function of the entry name. Validation is a pure
// function of the payload: images must decode by content, with JPEG and PNG
// also walked end to end for truncation, and label files are checked line by
// line against the five-field detection format. Neither step ever blocks
// republishing.
package entry
