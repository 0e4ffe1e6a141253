package image

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"

	"github.com/chazu/loxvm/compiler"
	"github.com/chazu/loxvm/pkg/bytecode"
)

func compileImage(t *testing.T, source string) *Image {
	t.Helper()
	chunk, err := compiler.Compile(source)
	require.NoError(t, err)
	img, err := New("test", source, chunk)
	require.NoError(t, err)
	return img
}

func TestRoundTrip(t *testing.T) {
	img := compileImage(t, "(-1 + 2) * 3 - -4")

	data, err := Marshal(img)
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, img.Name, got.Name)
	require.Equal(t, img.Source, got.Source)
	require.Equal(t, img.Hash, got.Hash)
	require.Equal(t, img.Chunk.Code, got.Chunk.Code)
	require.Equal(t, img.Chunk.Lines, got.Chunk.Lines)
	require.Equal(t, img.Chunk.Constants, got.Chunk.Constants)

	v, err := bytecode.NewVM().Run(got.Chunk)
	require.NoError(t, err)
	require.Equal(t, bytecode.Value(7), v)
}

func TestMarshalIsDeterministic(t *testing.T) {
	a, err := Marshal(compileImage(t, "1.5 / 3"))
	require.NoError(t, err)
	b, err := Marshal(compileImage(t, "1.5 / 3"))
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestHashDependsOnCode(t *testing.T) {
	a := compileImage(t, "1 + 2")
	b := compileImage(t, "1 - 2")
	require.NotEqual(t, a.Hash, b.Hash)
}

func TestTamperedChunkRejected(t *testing.T) {
	img := compileImage(t, "1 + 2")
	img.Chunk.Constants[0] = 100

	data, err := Marshal(img)
	require.NoError(t, err)

	_, err = Unmarshal(data)
	require.True(t, errors.Is(err, ErrHashMismatch), "got %v", err)
}

func TestBadMagicRejected(t *testing.T) {
	img := compileImage(t, "1")
	img.Magic = "NOPE"

	data, err := Marshal(img)
	require.NoError(t, err)

	_, err = Unmarshal(data)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestVersionRejected(t *testing.T) {
	img := compileImage(t, "1")
	img.Version = Version + 1

	data, err := Marshal(img)
	require.NoError(t, err)

	_, err = Unmarshal(data)
	require.ErrorIs(t, err, ErrVersion)
}

func TestInvalidChunkRejected(t *testing.T) {
	c := bytecode.NewChunk()
	c.WriteConstant(1, 1)
	img, err := New("no-return", "", c)
	require.NoError(t, err)

	data, err := Marshal(img)
	require.NoError(t, err)

	_, err = Unmarshal(data)
	require.ErrorIs(t, err, bytecode.ErrInvalidChunk)
}

func TestGarbageRejected(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0x00, 0x13})
	require.Error(t, err)

	data, err := cbor.Marshal("just a string")
	require.NoError(t, err)
	_, err = Unmarshal(data)
	require.Error(t, err)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expr"+Extension)
	img := compileImage(t, "(3.4 + 1.4) / 2.0")

	require.NoError(t, WriteFile(path, img))
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NotZero(t, info.Size())

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, img.Hash, got.Hash)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.loxc"))
	require.Error(t, err)
}
