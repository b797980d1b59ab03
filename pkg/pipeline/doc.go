// Package pipeline turns a media locator into a seekable, restartable,
// loudness-normalized raw audio stream by supervising two external
// programs: a resolver (yt-dlp) and a transcoder (ffmpeg).
//
// # Core Components
//
//   - Gate: process-wide token bucket that every creation request passes
//     through. It only delays, it never rejects.
//   - Spawner: starts the resolver, reads its metadata record, and starts the
//     transcoder fed by the resolver's media output. It also runs the
//     one-shot metadata and flat playlist invocations.
//   - Pipeline: the running process pair. Read yields f32le PCM, 2 channels,
//     48 kHz. Close terminates both process groups and closes every pipe.
//   - Source: the restartable handle with explicit states (uninitialized,
//     metadata only, live, failed). Seeking is always a full restart with a
//     start offset passed to the transcoder.
//   - Loader: gate + spawner, used by the command layer.
//
// # Usage Example
//
//	cfg := pipeline.DefaultConfig()
//	cfg.LoadFromEnvironment()
//	logger := pipeline.NewLogger(cfg.Logging)
//
//	gate := pipeline.NewGateFromConfig(cfg.Gate, logger)
//	loader := pipeline.NewLoader(gate, pipeline.NewSpawner(cfg, logger), logger)
//
//	src, err := loader.Open(ctx, "https://example.com/watch?v=abc", true)
//	if err != nil {
//		return err
//	}
//	defer src.Close()
//
//	// Lazy sources hold metadata only until restarted.
//	if err := src.Restart(ctx, nil); err != nil {
//		return err
//	}
//	io.Copy(sink, src)
//
// # Error Handling
//
// Failures are *Error values classified by ErrorKind: process spawn,
// metadata parse (with the raw diagnostic text), pipe unavailable and
// upstream resolution. None of them is retried here.
//
// # Concurrency
//
// Gate is safe for concurrent use. A Source is not: the caller serializes
// Init, Restart, Seek, Read and Close for a given source. Interrupt is the
// exception; it may be called from any goroutine to unblock a pending Read.
// Different sources are independent.
//
// There is no built-in timeout on the external programs. Callers bound
// spawns with a context deadline and Close the source when it expires.
package pipeline
