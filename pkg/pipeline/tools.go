package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ToolVersions holds the first line each external program printed for its
// version flag.
type ToolVersions struct {
	Resolver   string
	Transcoder string
}

// CheckTools runs the resolver and transcoder version commands so a missing
// or broken install shows up at startup rather than on the first play.
func (s *Spawner) CheckTools(ctx context.Context) (ToolVersions, error) {
	var versions ToolVersions

	resolver, err := toolVersion(ctx, s.config.Resolver.BinaryPath, "--version")
	if err != nil {
		return versions, newError(KindProcessSpawn, "check resolver", "", nil, err)
	}
	versions.Resolver = resolver

	transcoder, err := toolVersion(ctx, s.config.Transcoder.BinaryPath, "-version")
	if err != nil {
		return versions, newError(KindProcessSpawn, "check transcoder", "", nil, err)
	}
	versions.Transcoder = transcoder

	s.logger.Info().
		Str("resolver", versions.Resolver).
		Str("transcoder", versions.Transcoder).
		Msg("External tools available")
	return versions, nil
}

func toolVersion(ctx context.Context, binary, flag string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, flag).Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", binary, flag, err)
	}
	line, _, _ := bytes.Cut(out, []byte("\n"))
	return strings.TrimSpace(string(line)), nil
}
