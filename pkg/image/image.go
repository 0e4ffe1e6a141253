// Package image stores compiled chunks on disk so they can be run without
// recompiling. An image is a CBOR envelope around the chunk carrying a
// content hash of the chunk's canonical encoding.
package image

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/loxvm/pkg/bytecode"
)

// Magic identifies loxvm images.
const Magic = "LXBC"

// Version is the current image format version.
// Increment when making incompatible changes to the format.
const Version uint16 = 1

// Extension is the conventional file extension for images.
const Extension = ".loxc"

var (
	ErrBadMagic     = errors.New("image: not a loxvm image")
	ErrVersion      = errors.New("image: unsupported version")
	ErrHashMismatch = errors.New("image: content hash mismatch")
)

// Image is a compiled chunk plus the metadata needed to trust it.
type Image struct {
	Magic   string          `cbor:"1,keyasint"`
	Version uint16          `cbor:"2,keyasint"`
	Name    string          `cbor:"3,keyasint,omitempty"`
	Source  string          `cbor:"4,keyasint,omitempty"` // source text, if kept
	Hash    [32]byte        `cbor:"5,keyasint"`
	Chunk   *bytecode.Chunk `cbor:"6,keyasint"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// HashChunk returns the SHA-256 of the chunk's canonical CBOR encoding.
func HashChunk(c *bytecode.Chunk) ([32]byte, error) {
	data, err := encMode.Marshal(c)
	if err != nil {
		return [32]byte{}, fmt.Errorf("image: encode chunk: %w", err)
	}
	return sha256.Sum256(data), nil
}

// New wraps a chunk in an image. source may be empty.
func New(name, source string, c *bytecode.Chunk) (*Image, error) {
	hash, err := HashChunk(c)
	if err != nil {
		return nil, err
	}
	return &Image{
		Magic:   Magic,
		Version: Version,
		Name:    name,
		Source:  source,
		Hash:    hash,
		Chunk:   c,
	}, nil
}

// Verify checks the envelope and that the chunk matches its hash and is
// structurally valid.
func (img *Image) Verify() error {
	if img.Magic != Magic {
		return ErrBadMagic
	}
	if img.Version != Version {
		return fmt.Errorf("%w: %d (want %d)", ErrVersion, img.Version, Version)
	}
	if img.Chunk == nil {
		return fmt.Errorf("image: missing chunk")
	}
	hash, err := HashChunk(img.Chunk)
	if err != nil {
		return err
	}
	if hash != img.Hash {
		return fmt.Errorf("%w: have %x, want %x", ErrHashMismatch, hash[:8], img.Hash[:8])
	}
	if err := img.Chunk.Validate(); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	return nil
}

// Marshal encodes an image as canonical CBOR.
func Marshal(img *Image) ([]byte, error) {
	return encMode.Marshal(img)
}

// Unmarshal decodes and verifies an image.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if err := img.Verify(); err != nil {
		return nil, err
	}
	return &img, nil
}

// WriteFile encodes img and writes it to path.
func WriteFile(path string, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return fmt.Errorf("image: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing image %s: %w", path, err)
	}
	return nil
}

// ReadFile reads and verifies the image at path.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image %s: %w", path, err)
	}
	return Unmarshal(data)
}
