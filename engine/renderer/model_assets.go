package renderer

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cairn3d/cairn/common"
	"github.com/cairn3d/cairn/engine/model"
	"github.com/cairn3d/cairn/engine/texture"
	"github.com/cogentcore/webgpu/wgpu"
)

// textureProbeExtensions are the image extensions tried when resolving a
// texture next to a model file, in preference order.
var textureProbeExtensions = []string{".tga", ".TGA", ".png", ".PNG", ".jpg", ".JPG", ".jpeg"}

func defaultTextureStaging() common.TextureStagingData {
	return texture.DefaultStagingData()
}

func (r *renderer) LoadTexture(path string) (TextureHandle, error) {
	if h, exists := r.texturePaths[path]; exists {
		return h, nil
	}

	staging, err := texture.Decode(path, false)
	if err != nil {
		return InvalidTextureHandle, fmt.Errorf("load texture %s: %w", path, err)
	}

	h, err := r.createTexture(path, staging)
	if err != nil {
		return InvalidTextureHandle, fmt.Errorf("load texture %s: %w", path, err)
	}
	r.texturePaths[path] = h
	return h, nil
}

// createTexture uploads staging data with a full mip chain and the current
// sampler settings, registering it as a new texture table entry.
func (r *renderer) createTexture(label string, staging common.TextureStagingData) (TextureHandle, error) {
	mips := texture.BuildMipChain(staging)
	tex, err := r.backend.CreateTexture(label, staging, mips, r.samplerStaging())
	if err != nil {
		return InvalidTextureHandle, err
	}

	h := r.nextTexture
	r.nextTexture++
	r.textureTable[h] = tex
	return h, nil
}

// samplerStaging derives the sampler configuration from the current filter
// and anisotropy settings. Anisotropy requires all-linear filtering, so it
// only applies with FilterTrilinear.
func (r *renderer) samplerStaging() common.SamplerStagingData {
	s := common.SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	switch r.textureFilter {
	case common.FilterNearest:
		s.MagFilter = wgpu.FilterModeNearest
		s.MinFilter = wgpu.FilterModeNearest
		s.MipmapFilter = wgpu.MipmapFilterModeNearest
	case common.FilterLinear:
		s.MagFilter = wgpu.FilterModeLinear
		s.MinFilter = wgpu.FilterModeLinear
		s.MipmapFilter = wgpu.MipmapFilterModeNearest
	case common.FilterTrilinear:
		fallthrough
	default:
		s.MagFilter = wgpu.FilterModeLinear
		s.MinFilter = wgpu.FilterModeLinear
		s.MipmapFilter = wgpu.MipmapFilterModeLinear
		s.MaxAnisotropy = r.maxAnisotropy
	}
	return s
}

func (r *renderer) LoadModel(path string, tint common.Vec4) (ModelHandle, error) {
	if tint == (common.Vec4{}) {
		tint = common.White
	}

	imported, err := r.models.Load(path)
	if err != nil {
		return InvalidModelHandle, fmt.Errorf("load model %s: %w", path, err)
	}

	var usable []model.Submesh
	for _, sub := range imported.Submeshes {
		if len(sub.Vertices) > 0 && len(sub.Indices) > 0 {
			usable = append(usable, sub)
		}
	}
	if len(usable) == 0 {
		return InvalidModelHandle, fmt.Errorf("load model %s: %w", path, model.ErrNoMeshes)
	}

	entry := &modelEntry{path: path, tint: tint}
	loader := &modelTextureLoader{r: r, dir: filepath.Dir(path), cache: make(map[string]TextureHandle)}

	// Nothing registers until every submesh uploads, so a failure part way
	// through must unwind everything created so far.
	fail := func(cause error) (ModelHandle, error) {
		for _, sub := range entry.submeshes {
			r.backend.ReleaseMeshBuffers(sub.triangles)
			r.backend.ReleaseMeshBuffers(sub.edges)
		}
		for _, th := range loader.owned {
			r.releaseTexture(th)
		}
		return InvalidModelHandle, fmt.Errorf("load model %s: %w", path, cause)
	}

	var primary TextureHandle
	if imported.LegacyTexturePath != "" {
		primary = loader.load(model.TextureRef{Path: imported.LegacyTexturePath})
	}

	anyMaterialTexture := false
	for i, sub := range usable {
		vertexData := common.SliceToBytes(sub.Vertices)
		indexData := common.SliceToBytes(sub.Indices)

		triangles, err := r.backend.CreateMeshBuffers(
			fmt.Sprintf("%s#%d", filepath.Base(path), i),
			vertexData, indexData,
			wgpu.IndexFormatUint32,
			uint32(len(sub.Indices)), uint32(len(sub.Vertices)),
		)
		if err != nil {
			return fail(err)
		}

		edgeIndices := buildEdgeIndices(sub.Indices)
		edges, err := r.backend.CreateMeshBuffers(
			fmt.Sprintf("%s#%d-edges", filepath.Base(path), i),
			vertexData, common.SliceToBytes(edgeIndices),
			wgpu.IndexFormatUint32,
			uint32(len(edgeIndices)), uint32(len(sub.Vertices)),
		)
		if err != nil {
			r.backend.ReleaseMeshBuffers(triangles)
			return fail(err)
		}

		var tex TextureHandle
		if sub.MaterialIndex >= 0 && sub.MaterialIndex < len(imported.Materials) {
			ref := imported.Materials[sub.MaterialIndex].BaseColor
			if !ref.IsZero() {
				tex = loader.load(ref)
				if tex != InvalidTextureHandle {
					anyMaterialTexture = true
				}
			}
		}

		entry.submeshes = append(entry.submeshes, modelSubmesh{triangles: triangles, edges: edges, texture: tex})
		entry.bounds = growBounds(entry.bounds, sub.Vertices, i == 0)
	}

	// A model with no texture of its own falls back to an image file sitting
	// next to it on disk.
	if !anyMaterialTexture && primary == InvalidTextureHandle {
		if probed := findTextureForModel(path); probed != "" {
			primary = loader.load(model.TextureRef{Path: probed})
		}
	}
	if primary != InvalidTextureHandle {
		for i := range entry.submeshes {
			if entry.submeshes[i].texture == InvalidTextureHandle {
				entry.submeshes[i].texture = primary
			}
		}
	}

	entry.ownedTextures = loader.owned

	h := r.nextModel
	r.nextModel++
	r.modelTable[h] = entry
	return h, nil
}

// modelTextureLoader resolves texture references during one model load.
// Loads are deduplicated per model and failures fall back to the default
// texture rather than failing the whole model.
type modelTextureLoader struct {
	r     *renderer
	dir   string
	cache map[string]TextureHandle
	owned []TextureHandle
}

// load resolves one texture reference to a handle, returning
// InvalidTextureHandle when the reference cannot be decoded or uploaded.
func (l *modelTextureLoader) load(ref model.TextureRef) TextureHandle {
	var (
		staging common.TextureStagingData
		err     error
		key     string
	)

	switch {
	case ref.Path != "":
		full := ref.Path
		if !filepath.IsAbs(full) {
			full = filepath.Join(l.dir, full)
		}
		if h, exists := l.cache[full]; exists {
			return h
		}
		key = full
		staging, err = texture.Decode(full, false)
	case len(ref.Data) > 0:
		staging, err = texture.DecodeMemory(ref.Data, false)
	default:
		return InvalidTextureHandle
	}

	if err != nil {
		log.Printf("[Renderer] model texture %s unusable, using default: %v", ref.Path, err)
		return InvalidTextureHandle
	}

	h, err := l.r.createTexture(key, staging)
	if err != nil {
		log.Printf("[Renderer] model texture %s upload failed, using default: %v", ref.Path, err)
		return InvalidTextureHandle
	}

	if key != "" {
		l.cache[key] = h
	}
	l.owned = append(l.owned, h)
	return h
}

// findTextureForModel probes the model's directory for a companion image:
// first the model's own stem with each known extension, then the first
// image file in directory order.
func findTextureForModel(modelPath string) string {
	dir := filepath.Dir(modelPath)
	base := filepath.Base(modelPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	for _, ext := range textureProbeExtensions {
		candidate := filepath.Join(dir, stem+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		for _, probe := range textureProbeExtensions {
			if strings.EqualFold(ext, probe) {
				return filepath.Join(dir, entry.Name())
			}
		}
	}
	return ""
}

// buildEdgeIndices converts a triangle index list into a line-list index
// buffer over the mesh's unique undirected edges.
func buildEdgeIndices(indices []uint32) []uint32 {
	seen := make(map[[2]uint32]struct{}, len(indices))
	edges := make([]uint32, 0, len(indices)*2)

	addEdge := func(a, b uint32) {
		if a > b {
			a, b = b, a
		}
		key := [2]uint32{a, b}
		if _, exists := seen[key]; exists {
			return
		}
		seen[key] = struct{}{}
		edges = append(edges, a, b)
	}

	for i := 0; i+2 < len(indices); i += 3 {
		addEdge(indices[i], indices[i+1])
		addEdge(indices[i+1], indices[i+2])
		addEdge(indices[i+2], indices[i])
	}
	return edges
}

// growBounds extends a bounding box to cover a submesh's vertices. The first
// submesh initializes the box instead of merging with the zero value.
func growBounds(b common.Bounds, vertices []common.TexturedVertex, first bool) common.Bounds {
	for i, v := range vertices {
		if first && i == 0 {
			b.Min = v.Position
			b.Max = v.Position
			continue
		}
		for axis := 0; axis < 3; axis++ {
			if v.Position[axis] < b.Min[axis] {
				b.Min[axis] = v.Position[axis]
			}
			if v.Position[axis] > b.Max[axis] {
				b.Max[axis] = v.Position[axis]
			}
		}
	}
	return b
}
