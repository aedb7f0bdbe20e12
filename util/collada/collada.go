package collada

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// Namespace and schema version written on export
const (
	Namespace = "http://www.collada.org/2005/11/COLLADASchema"
	Version   = "1.4.1"
)

// Collada is the top-level Collada object
type Collada struct {
	XMLName    xml.Name   `xml:"COLLADA"`
	Xmlns      string     `xml:"xmlns,attr,omitempty"`
	Version    string     `xml:"version,attr,omitempty"`
	Asset      *Asset     `xml:"asset,omitempty"`
	Geometries []Geometry `xml:"library_geometries>geometry"`
}

// Asset carries document metadata
type Asset struct {
	Contributor string `xml:"contributor>authoring_tool,omitempty"`
	Created     string `xml:"created,omitempty"`
	UpAxis      string `xml:"up_axis,omitempty"`
}

// Geometry represents Collada's geometry
type Geometry struct {
	Mesh Mesh   `xml:"mesh"`
	ID   string `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// Mesh contains all the primitive data
type Mesh struct {
	Source    []Source  `xml:"source"`
	Vertices  Vertices  `xml:"vertices"`
	Triangles Triangles `xml:"triangles"`
}

// Source links to other sources where data is present
type Source struct {
	ID        string           `xml:"id,attr"`
	Floats    Floats           `xml:"float_array"`
	Technique *TechniqueCommon `xml:"technique_common,omitempty"`
}

// TechniqueCommon describes how a source's float array is read
type TechniqueCommon struct {
	Accessor Accessor `xml:"accessor"`
}

// Accessor groups a float array into elements of Stride floats
type Accessor struct {
	Source string  `xml:"source,attr"`
	Count  int     `xml:"count,attr"`
	Stride int     `xml:"stride,attr"`
	Params []Param `xml:"param"`
}

// Param names one component of an accessor element
type Param struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
}

// Floats is the array of floats
type Floats struct {
	ID   string
	Data []float32
}

// UnmarshalXML unmarshals the array of floats
func (f *Floats) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "id":
			f.ID = attr.Value
		}
	}
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	for _, r := range strings.Fields(raw) {
		num, err := strconv.ParseFloat(r, 32)
		if err != nil {
			return err
		}
		f.Data = append(f.Data, float32(num))
	}
	return nil
}

// MarshalXML writes the floats as a space separated list
func (f Floats) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = []xml.Attr{
		{Name: xml.Name{Local: "id"}, Value: f.ID},
		{Name: xml.Name{Local: "count"}, Value: strconv.Itoa(len(f.Data))},
	}
	values := make([]string, len(f.Data))
	for idx, v := range f.Data {
		values[idx] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return e.EncodeElement(strings.Join(values, " "), start)
}

// Vertices contains the list of vertices
type Vertices struct {
	ID     string  `xml:"id,attr"`
	Inputs []Input `xml:"input"`
}

// Triangles contain the list of triangles
type Triangles struct {
	Count    int     `xml:"count,attr"`
	Material string  `xml:"material,attr"`
	Inputs   []Input `xml:"input"`
	Index    []int
}

// Stride is the number of indices that make up one vertex
func (t *Triangles) Stride() int {
	var stride uint
	for _, in := range t.Inputs {
		if in.Offset+1 > stride {
			stride = in.Offset + 1
		}
	}
	return int(stride)
}

// UnmarshalXML parses the index list
func (t *Triangles) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "count":
			num, err := strconv.Atoi(attr.Value)
			if err != nil {
				return err
			}
			t.Count = num
		case "material":
			t.Material = attr.Value
		}
	}

	for {
		token, err := d.Token()
		if err != nil {
			return err
		}

		switch el := token.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "input":
				var input Input
				err := d.DecodeElement(&input, &el)
				if err != nil {
					return err
				}
				t.Inputs = append(t.Inputs, input)
			case "p":
				var (
					ints []int
					raw  string
				)
				if err := d.DecodeElement(&raw, &el); err != nil {
					return err
				}
				for _, r := range strings.Fields(raw) {
					num, err := strconv.Atoi(r)
					if err != nil {
						return err
					}
					ints = append(ints, num)
				}
				t.Index = ints
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if el == start.End() {
				return nil
			}
		}
	}
}

// MarshalXML writes the triangles with their inputs and the index list
func (t Triangles) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = []xml.Attr{
		{Name: xml.Name{Local: "count"}, Value: strconv.Itoa(t.Count)},
	}
	if t.Material != "" {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: "material"}, Value: t.Material})
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, in := range t.Inputs {
		if err := e.EncodeElement(in, xml.StartElement{Name: xml.Name{Local: "input"}}); err != nil {
			return err
		}
	}
	values := make([]string, len(t.Index))
	for idx, v := range t.Index {
		values[idx] = strconv.Itoa(v)
	}
	if err := e.EncodeElement(strings.Join(values, " "), xml.StartElement{Name: xml.Name{Local: "p"}}); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// Input is Collada'a input type
type Input struct {
	Semantic string `xml:"semantic,attr"`
	Source   string `xml:"source,attr"`
	Offset   uint   `xml:"offset,attr"`
	Set      *uint  `xml:"set,attr,omitempty"`
}
