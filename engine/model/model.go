// package model defines the normalized descriptor produced by model file
// loaders and the extension-keyed loader registry the renderer consumes
// models through. Format parsing lives behind the Loader interface; the
// renderer only ever sees Imported data.
package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cairn3d/cairn/common"
)

var (
	// ErrUnknownExtension indicates no loader is registered for the file's extension.
	ErrUnknownExtension = errors.New("model: no loader registered for extension")

	// ErrNoMeshes indicates a loaded model contained no non-empty submeshes.
	ErrNoMeshes = errors.New("model: no meshes")
)

// TextureRef references a texture used by a material. Either Path points to
// an external image file, or Data carries embedded image bytes with MimeType
// describing the format. A zero TextureRef means no texture.
type TextureRef struct {
	// Path is the image file path for external textures (empty for embedded).
	Path string

	// Data contains raw image bytes for embedded textures.
	Data []byte

	// MimeType indicates the embedded image format (e.g. "image/png").
	MimeType string
}

// IsZero reports whether the reference points at no texture.
//
// Returns:
//   - bool: true if neither a path nor embedded data is set
func (r TextureRef) IsZero() bool {
	return r.Path == "" && len(r.Data) == 0
}

// Material holds the subset of material properties the renderer consumes.
type Material struct {
	// Name is the material identifier from the source file.
	Name string

	// BaseColor references the base color (albedo) texture, if any.
	BaseColor TextureRef
}

// Submesh is a single drawable unit of an imported model.
type Submesh struct {
	// Vertices are the submesh's textured vertices.
	Vertices []common.TexturedVertex

	// Indices are triangle-list indices into Vertices.
	Indices []uint32

	// MaterialIndex indexes into the model's Materials, or -1 for no material.
	MaterialIndex int

	// Bounds is the submesh's axis-aligned bounding box in model-local space.
	Bounds common.Bounds
}

// Imported is the normalized output of a model file loader.
type Imported struct {
	// Submeshes are the model's drawable units.
	Submeshes []Submesh

	// Materials are the materials referenced by the submeshes.
	Materials []Material

	// LegacyTexturePath is an optional whole-model texture path used by
	// formats that carry a single texture reference outside the material list.
	LegacyTexturePath string
}

// Loader parses one model file format into the normalized descriptor.
type Loader interface {
	// Load parses the model file at path.
	//
	// Parameters:
	//   - path: the model file path
	//
	// Returns:
	//   - *Imported: the normalized model data
	//   - error: a parse or I/O error
	Load(path string) (*Imported, error)
}

// LoaderFunc adapts a plain function to the Loader interface.
type LoaderFunc func(path string) (*Imported, error)

// Load calls f(path).
//
// Parameters:
//   - path: the model file path
//
// Returns:
//   - *Imported: the normalized model data
//   - error: a parse or I/O error
func (f LoaderFunc) Load(path string) (*Imported, error) {
	return f(path)
}

// registry is the implementation of the Registry interface.
type registry struct {
	loaders map[string]Loader
}

// Registry dispatches model loads to the Loader registered for the file's extension.
type Registry interface {
	// Register associates a loader with a file extension. The extension is
	// matched case-insensitively and may be given with or without the leading dot.
	// Registering an extension twice replaces the previous loader.
	//
	// Parameters:
	//   - ext: the file extension (e.g. ".gltf" or "obj")
	//   - loader: the Loader handling that format
	Register(ext string, loader Loader)

	// Load dispatches to the loader registered for path's extension.
	//
	// Parameters:
	//   - path: the model file path
	//
	// Returns:
	//   - *Imported: the normalized model data
	//   - error: ErrUnknownExtension if no loader matches, or the loader's error
	Load(path string) (*Imported, error)

	// Extensions returns the registered extensions (with leading dots, lowercase).
	//
	// Returns:
	//   - []string: the registered extensions in unspecified order
	Extensions() []string
}

var _ Registry = &registry{}

// NewRegistry creates an empty loader Registry.
//
// Returns:
//   - Registry: a new Registry instance with no loaders registered
func NewRegistry() Registry {
	return &registry{
		loaders: make(map[string]Loader),
	}
}

func (r *registry) Register(ext string, loader Loader) {
	r.loaders[normalizeExt(ext)] = loader
}

func (r *registry) Load(path string) (*Imported, error) {
	ext := normalizeExt(filepath.Ext(path))
	loader, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExtension, ext)
	}
	return loader.Load(path)
}

func (r *registry) Extensions() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
