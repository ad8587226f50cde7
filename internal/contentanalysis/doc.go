// Package contentanalysis asks the oracle whether a photograph shows the
// covered item and turns the reply into an adjudication verdict.
//
// The oracle reports a matching percentage. Scores use leading-integer
// semantics ("92", "92%", 92.7 all read as 92); anything missing, unparseable,
// or outside [0,100] is absent, and an absent score never meets the threshold.
package contentanalysis
