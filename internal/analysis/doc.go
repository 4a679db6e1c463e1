// Package analysis implements the AnalysisBuilder: a strictly sequential
// four-phase pipeline that turns one split's samples into an
// AnalysisReport.
//
//  1. SchemaCompletion runs the operations the task needs, promotes the
//     fields they generate into the schema and extracts every bucket
//     feature's value per sample into a value store.
//  2. Bucketing partitions the sample ids of every bucket feature.
//  3. Evaluation scores the whole split and every (feature, bucket) pair.
//  4. ReportAssembly renders bucket names and collects diagnostics.
//
// No phase starts before the previous one has finished. Within a phase,
// features are independent and may be processed concurrently. Every run
// works on its own schema clone and value store, so a Builder can serve
// many splits concurrently.
package analysis
