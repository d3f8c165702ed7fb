package main

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/g3n/engine/loader/obj"
	vkngmath "github.com/vkngwrapper/math"

	"github.com/vkngwrapper/vulkray/vulkan"
)

// Mesh is CPU-side indexed geometry ready for vulkan.UploadGeometry.
type Mesh struct {
	Vertices []vulkan.Vertex
	Indices  []uint32
}

// Cube is the unit test cube centered on the origin, one color per corner.
// Faces wind counter-clockwise seen from outside.
func Cube() Mesh {
	return Mesh{
		Vertices: []vulkan.Vertex{
			{Position: vkngmath.Vec3[float32]{X: -0.5, Y: -0.5, Z: 0.5}, Color: vkngmath.Vec3[float32]{X: 1, Y: 0, Z: 0}},
			{Position: vkngmath.Vec3[float32]{X: 0.5, Y: -0.5, Z: 0.5}, Color: vkngmath.Vec3[float32]{X: 0, Y: 1, Z: 0}},
			{Position: vkngmath.Vec3[float32]{X: 0.5, Y: 0.5, Z: 0.5}, Color: vkngmath.Vec3[float32]{X: 0, Y: 0, Z: 1}},
			{Position: vkngmath.Vec3[float32]{X: -0.5, Y: 0.5, Z: 0.5}, Color: vkngmath.Vec3[float32]{X: 1, Y: 0, Z: 1}},
			{Position: vkngmath.Vec3[float32]{X: -0.5, Y: -0.5, Z: -0.5}, Color: vkngmath.Vec3[float32]{X: 1, Y: 1, Z: 0}},
			{Position: vkngmath.Vec3[float32]{X: 0.5, Y: -0.5, Z: -0.5}, Color: vkngmath.Vec3[float32]{X: 0, Y: 1, Z: 1}},
			{Position: vkngmath.Vec3[float32]{X: 0.5, Y: 0.5, Z: -0.5}, Color: vkngmath.Vec3[float32]{X: 1, Y: 1, Z: 1}},
			{Position: vkngmath.Vec3[float32]{X: -0.5, Y: 0.5, Z: -0.5}, Color: vkngmath.Vec3[float32]{X: 1, Y: 0, Z: 0}},
		},
		Indices: []uint32{
			0, 1, 2, 2, 3, 0, // +z
			4, 7, 6, 6, 5, 4, // -z
			0, 4, 5, 5, 1, 0, // -y
			1, 5, 6, 6, 2, 1, // +x
			4, 0, 3, 3, 7, 4, // -x
			3, 2, 6, 6, 7, 3, // +y
		},
	}
}

type meshKey struct {
	vertex   int
	material string
}

type meshBuilder struct {
	decoder *obj.Decoder
	unique  map[meshKey]uint32
	mesh    Mesh
}

func (b *meshBuilder) color(material string) vkngmath.Vec3[float32] {
	m, ok := b.decoder.Materials[material]
	if !ok || m == nil {
		return vkngmath.Vec3[float32]{X: 1, Y: 1, Z: 1}
	}
	return vkngmath.Vec3[float32]{X: m.Diffuse.R, Y: m.Diffuse.G, Z: m.Diffuse.B}
}

func (b *meshBuilder) addVertex(face obj.Face, faceIndex int) {
	key := meshKey{vertex: face.Vertices[faceIndex], material: face.Material}
	index, exists := b.unique[key]

	if !exists {
		vertInd := key.vertex
		vert := vulkan.Vertex{
			Position: vkngmath.Vec3[float32]{
				X: b.decoder.Vertices[vertInd*3],
				Y: b.decoder.Vertices[vertInd*3+1],
				Z: b.decoder.Vertices[vertInd*3+2],
			},
			Color: b.color(face.Material),
		}

		index = uint32(len(b.mesh.Vertices))
		b.mesh.Vertices = append(b.mesh.Vertices, vert)
		b.unique[key] = index
	}

	b.mesh.Indices = append(b.mesh.Indices, index)
}

// DecodeMesh reads a Wavefront OBJ mesh and fans its faces into triangles.
// Vertex colors come from the diffuse color of each face's material, white
// when there is none. mtl may be nil.
func DecodeMesh(mesh io.Reader, mtl io.Reader) (Mesh, error) {
	if mtl == nil {
		mtl = strings.NewReader("")
	}

	decoder, err := obj.DecodeReader(mesh, mtl)
	if err != nil {
		return Mesh{}, errors.Wrap(err, "decode obj")
	}

	b := &meshBuilder{decoder: decoder, unique: make(map[meshKey]uint32)}
	for _, decodedObj := range decoder.Objects {
		for _, face := range decodedObj.Faces {
			for i := 2; i < len(face.Vertices); i++ {
				b.addVertex(face, 0)
				b.addVertex(face, i-1)
				b.addVertex(face, i)
			}
		}
	}

	if len(b.mesh.Indices) == 0 {
		return Mesh{}, errors.New("decode obj: mesh has no faces")
	}
	return b.mesh, nil
}
