package segchat

import (
	"fmt"
	"strconv"
	"strings"
)

// ArtifactRef is an opaque reference to a rendered result image,
// addressed by session id and per-session sequence number.
type ArtifactRef struct {
	SessionID string
	Seq       int
}

// Name returns the reference's canonical name.
func (r ArtifactRef) Name() string {
	return fmt.Sprintf("%s_result_%d.jpg", r.SessionID, r.Seq)
}

// ParseArtifactRef inverts [ArtifactRef.Name]. Session ids may contain
// underscores, so the split anchors on the last "_result_" marker.
func ParseArtifactRef(name string) (ArtifactRef, error) {
	base, ok := strings.CutSuffix(name, ".jpg")
	if !ok {
		return ArtifactRef{}, fmt.Errorf("%w: malformed artifact name %q", ErrValidation, name)
	}
	i := strings.LastIndex(base, "_result_")
	if i < 0 {
		return ArtifactRef{}, fmt.Errorf("%w: malformed artifact name %q", ErrValidation, name)
	}
	seq, err := strconv.Atoi(base[i+len("_result_"):])
	if err != nil || seq < 1 || base[:i] == "" {
		return ArtifactRef{}, fmt.Errorf("%w: malformed artifact name %q", ErrValidation, name)
	}
	return ArtifactRef{SessionID: base[:i], Seq: seq}, nil
}

// ArtifactStore persists rendered output images for the process lifetime.
// There is no eviction.
type ArtifactStore interface {
	Save(data []byte, sessionID string, seq int) (ArtifactRef, error)
	Load(ref ArtifactRef) ([]byte, error)
}
