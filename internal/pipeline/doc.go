// Package pipeline runs one claim submission through document analysis,
// photo validation and analysis, evidence upload, and the transactional commit.
//
// Each run owns a runState value that carries every intermediate result; no
// state is shared between runs. Photos are validated and analyzed
// concurrently and joined before upload. Uploads are joined before commit.
// A committed run schedules the suggestion synthesizer as its own background
// task on the tasks.Runner.
//
// Callers either block on Run or hand the run to the runner with Submit and
// receive a ticket carrying the run id.
package pipeline
