// Package docanalysis turns a claim document into structured claim facts.
//
// The document's text is scanned for a role marker ("Claimant Information:",
// "Dealer Information:", "Service Center Information:", first match wins), a
// role-specific prompt is sent to the oracle, and the JSON reply is decoded into
// Facts. The claim identifier and claim date are mandatory: a reply without them
// is treated as malformed because the rest of the run cannot proceed.
package docanalysis
