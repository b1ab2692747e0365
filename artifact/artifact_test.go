package artifact_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/segchat"
	"github.com/fwojciec/segchat/artifact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoad(t *testing.T) {
	t.Parallel()

	s, err := artifact.New(t.TempDir())
	require.NoError(t, err)

	ref, err := s.Save([]byte("jpeg bytes"), "sess", 1)
	require.NoError(t, err)
	assert.Equal(t, "sess_result_1.jpg", ref.Name())

	data, err := s.Load(ref)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), data)
}

func TestStore_LoadUnknown(t *testing.T) {
	t.Parallel()

	s, err := artifact.New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Load(segchat.ArtifactRef{SessionID: "sess", Seq: 99})
	assert.ErrorIs(t, err, segchat.ErrArtifactNotFound)
}

func TestStore_SequencesDoNotCollide(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s, err := artifact.New(dir)
	require.NoError(t, err)

	for seq := 1; seq <= 3; seq++ {
		_, err := s.Save([]byte{byte(seq)}, "sess", seq)
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestNew_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "results")
	_, err := artifact.New(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
