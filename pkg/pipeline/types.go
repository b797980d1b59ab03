package pipeline

// State represents the lifecycle state of a Source
type State int

const (
	// StateUninitialized means no process has been spawned and no metadata is known.
	StateUninitialized State = iota
	// StateMetadataOnly means metadata was fetched by a throwaway resolver run
	// and the audio pipeline has not been spawned yet.
	StateMetadataOnly
	// StateLive means a pipeline is spawned and streaming.
	StateLive
	// StateFailed is terminal for the current attempt. Restart may still be called.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateMetadataOnly:
		return "metadata_only"
	case StateLive:
		return "live"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrorKind classifies pipeline failures
type ErrorKind int

const (
	// KindProcessSpawn covers a missing executable or an OS-level spawn error.
	KindProcessSpawn ErrorKind = iota
	// KindMetadataParse covers a malformed or missing structured record.
	KindMetadataParse
	// KindPipeUnavailable means an expected stream handle was absent after spawn.
	KindPipeUnavailable
	// KindUpstreamResolution means the resolver reported it cannot resolve the locator.
	KindUpstreamResolution
)

func (k ErrorKind) String() string {
	switch k {
	case KindProcessSpawn:
		return "process_spawn"
	case KindMetadataParse:
		return "metadata_parse"
	case KindPipeUnavailable:
		return "pipe_unavailable"
	case KindUpstreamResolution:
		return "upstream_resolution"
	default:
		return "unknown"
	}
}
