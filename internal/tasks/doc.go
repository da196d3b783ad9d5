// Package tasks runs playlist transfers as asynchronous jobs.
//
// # Jobs
//
// [Engine.Submit] registers a pending [models.TransferJob] in the [Registry] and queues it.
// A fixed pool of job workers picks jobs off the queue and runs the transfer:
//
//  1. Authenticate with the source platform and fetch the playlist and its tracks
//  2. Authenticate with the destination platform
//  3. Match every track on the destination with a per-job pool of search workers
//     sharing one rate limiter
//  4. Create the destination playlist from the matched tracks, in source order
//
// A job whose tracks all matched ends succeeded; any unmatched or failed track makes it
// partially_succeeded. Failures before step 4 completes end the job failed with an error
// kind that separates rejected credentials from missing playlists and unavailable platforms.
//
// # Cancellation
//
// [Engine.Cancel] ends pending jobs at once and stops running ones after in-flight searches
// return. Outcomes recorded before cancellation are kept; the rest are closed as errors.
// No playlist is created for a cancelled job.
//
// # Registry
//
// The [Registry] is the only state shared between jobs. Reads return deep copies and every
// write goes through [Registry.Update], which validates status transitions and rejects
// writes to finished jobs. An optional [Archiver] receives each job once it finishes, and
// [Registry.Run] evicts finished jobs past their TTL.
//
// # Progress Reporting
//
// When [EngineOpts.Progress] is set, the engine sends [ProgressUpdate] values on it.
// Updates use select with default so a slow reader never stalls a transfer.
//
// # Track Caching
//
// The optional [TrackCacher] receives every source track and every matched destination
// track. Cache errors are logged and ignored.
package tasks
