package model

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devblok/windmill/util/collada"
	glm "github.com/go-gl/mathgl/mgl32"
)

const geometryID = "windmill-mesh"

// ExportCollada writes the triangles of a mesh as a Collada document,
// so a frame can be inspected in a modelling tool.
func ExportCollada(mesh Mesh) ([]byte, error) {
	if len(mesh.Vertices)%3 != 0 {
		return nil, fmt.Errorf("mesh has %d vertices, not a triangle list", len(mesh.Vertices))
	}

	positions := make([]float32, 0, len(mesh.Vertices)*3)
	normals := make([]float32, 0, len(mesh.Vertices)*3)
	texCoords := make([]float32, 0, len(mesh.Vertices)*2)
	index := make([]int, 0, len(mesh.Vertices)*3)
	for idx, v := range mesh.Vertices {
		positions = append(positions, v.Position[:]...)
		normals = append(normals, v.Normal[:]...)
		texCoords = append(texCoords, v.TexCoord[:]...)
		index = append(index, idx, idx, idx)
	}

	doc := collada.Collada{
		Xmlns:   collada.Namespace,
		Version: collada.Version,
		Asset: &collada.Asset{
			Contributor: "windmill",
			Created:     time.Now().UTC().Format(time.RFC3339),
			UpAxis:      "Y_UP",
		},
		Geometries: []collada.Geometry{{
			ID:   geometryID,
			Name: "windmill",
			Mesh: collada.Mesh{
				Source: []collada.Source{
					floatSource("positions", positions, 3, "X", "Y", "Z"),
					floatSource("normals", normals, 3, "X", "Y", "Z"),
					floatSource("map-0", texCoords, 2, "S", "T"),
				},
				Vertices: collada.Vertices{
					ID: geometryID + "-vertices",
					Inputs: []collada.Input{{
						Semantic: "POSITION",
						Source:   "#" + geometryID + "-positions",
					}},
				},
				Triangles: collada.Triangles{
					Count: len(mesh.Vertices) / 3,
					Inputs: []collada.Input{
						{Semantic: "VERTEX", Source: "#" + geometryID + "-vertices", Offset: 0},
						{Semantic: "NORMAL", Source: "#" + geometryID + "-normals", Offset: 1},
						{Semantic: "TEXCOORD", Source: "#" + geometryID + "-map-0", Offset: 2},
					},
					Index: index,
				},
			},
		}},
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), data...), nil
}

func floatSource(kind string, data []float32, stride int, params ...string) collada.Source {
	id := geometryID + "-" + kind
	accessor := collada.Accessor{
		Source: "#" + id + "-array",
		Count:  len(data) / stride,
		Stride: stride,
	}
	for _, p := range params {
		accessor.Params = append(accessor.Params, collada.Param{Name: p, Type: "float"})
	}
	return collada.Source{
		ID:        id,
		Floats:    collada.Floats{ID: id + "-array", Data: data},
		Technique: &collada.TechniqueCommon{Accessor: accessor},
	}
}

// ImportCollada reads the first geometry of a Collada document
// as a triangle list. Border indices are not part of the format.
func ImportCollada(fileContents []byte) (Mesh, error) {
	var doc collada.Collada
	if err := xml.Unmarshal(fileContents, &doc); err != nil {
		return Mesh{}, err
	}
	if len(doc.Geometries) == 0 {
		return Mesh{}, errors.New("collada document has no geometry")
	}

	mesh := doc.Geometries[0].Mesh
	stride := mesh.Triangles.Stride()
	if stride == 0 || len(mesh.Triangles.Index)%stride != 0 {
		return Mesh{}, errors.New("collada triangles have a malformed index list")
	}

	var positions, normals, texCoords *collada.Source
	for _, in := range mesh.Triangles.Inputs {
		var (
			src *collada.Source
			err error
		)
		switch in.Semantic {
		case "VERTEX":
			src, err = findSource(mesh.Source, "positions")
			positions = src
		case "NORMAL":
			src, err = findSource(mesh.Source, "normals")
			normals = src
		case "TEXCOORD":
			src, err = findSource(mesh.Source, "map-0")
			texCoords = src
		}
		if err != nil {
			return Mesh{}, err
		}
	}
	if positions == nil {
		return Mesh{}, errors.New("collada triangles have no VERTEX input")
	}

	offsets := make(map[string]int)
	for _, in := range mesh.Triangles.Inputs {
		offsets[in.Semantic] = int(in.Offset)
	}

	var result Mesh
	for idx := 0; idx < len(mesh.Triangles.Index)/stride; idx++ {
		indices := mesh.Triangles.Index[stride*idx : stride*idx+stride]

		var (
			vert Vertex
			err  error
		)
		if vert.Position, err = vec3At(positions, indices[offsets["VERTEX"]]); err != nil {
			return Mesh{}, err
		}
		if normals != nil {
			if vert.Normal, err = vec3At(normals, indices[offsets["NORMAL"]]); err != nil {
				return Mesh{}, err
			}
		}
		if texCoords != nil {
			at := indices[offsets["TEXCOORD"]] * 2
			if at+2 > len(texCoords.Floats.Data) {
				return Mesh{}, fmt.Errorf("texcoord index %d out of range", at/2)
			}
			vert.TexCoord = glm.Vec2{texCoords.Floats.Data[at], texCoords.Floats.Data[at+1]}
		}
		result.Vertices = append(result.Vertices, vert)
	}
	return result, nil
}

func vec3At(src *collada.Source, element int) (glm.Vec3, error) {
	at := element * 3
	if at+3 > len(src.Floats.Data) {
		return glm.Vec3{}, fmt.Errorf("index %d out of range of %s", element, src.ID)
	}
	return glm.Vec3{src.Floats.Data[at], src.Floats.Data[at+1], src.Floats.Data[at+2]}, nil
}

func findSource(sources []collada.Source, dataType string) (*collada.Source, error) {
	for idx := range sources {
		if strings.HasSuffix(sources[idx].ID, fmt.Sprintf("-%s", dataType)) {
			return &sources[idx], nil
		}
	}
	return nil, errors.New("source type not found")
}
