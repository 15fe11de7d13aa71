// STL (stereolithography) triangle mesh reader and writer.
package formats

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/spinegen/pkg/mesh"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrInvalidSTLData   = errors.New("invalid STL data")
	ErrUnknownSTLFormat = errors.New("unknown STL format")
)

const (
	stlHeaderSize = 80
	stlRecordSize = 50 // normal + 3 vertices as float32, uint16 attribute
)

// STLFormat selects the STL encoding.
type STLFormat int

const (
	STLBinary STLFormat = iota
	STLASCII
)

// String returns the format name used in configuration.
func (f STLFormat) String() string {
	switch f {
	case STLBinary:
		return "binary"
	case STLASCII:
		return "ascii"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// ParseSTLFormat converts "binary" or "ascii" to an STLFormat.
func ParseSTLFormat(s string) (STLFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binary", "bin", "":
		return STLBinary, nil
	case "ascii", "text":
		return STLASCII, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSTLFormat, s)
	}
}

// STL represents a parsed STL file.
type STL struct {
	Format    STLFormat
	Header    string          // binary header or ASCII solid name
	Normals   []r3.Vec        // stored facet normals, one per triangle
	Triangles []mesh.Triangle // corners in stored order
}

// Mesh returns the file's triangles as a mesh.
func (s *STL) Mesh() *mesh.Mesh {
	return &mesh.Mesh{Triangles: s.Triangles}
}

type stlRecord struct {
	Normal [3]float32
	V1     [3]float32
	V2     [3]float32
	V3     [3]float32
	Attr   uint16
}

func toFloat32(v r3.Vec) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func fromFloat32(v [3]float32) r3.Vec {
	return r3.Vec{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])}
}

// WriteSTL encodes m to w. The facet normal of each triangle is derived from
// its stored winding.
func WriteSTL(w io.Writer, name string, m *mesh.Mesh, format STLFormat) error {
	switch format {
	case STLBinary:
		return writeBinarySTL(w, name, m)
	case STLASCII:
		return writeASCIISTL(w, name, m)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSTLFormat, format)
	}
}

func writeBinarySTL(w io.Writer, name string, m *mesh.Mesh) error {
	var header [stlHeaderSize]byte
	copy(header[:], name)
	// A binary header must not start with "solid" or readers take it for ASCII.
	if bytes.HasPrefix(header[:], []byte("solid")) {
		copy(header[:], "SOLID")
	}
	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(m.Len())); err != nil {
		return fmt.Errorf("writing triangle count: %w", err)
	}

	for i, t := range m.Triangles {
		rec := stlRecord{
			Normal: toFloat32(t.Normal()),
			V1:     toFloat32(t.V1),
			V2:     toFloat32(t.V2),
			V3:     toFloat32(t.V3),
		}
		if err := binary.Write(w, binary.LittleEndian, &rec); err != nil {
			return fmt.Errorf("writing triangle %d: %w", i, err)
		}
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'e', -1, 64)
}

func writeASCIISTL(w io.Writer, name string, m *mesh.Mesh) error {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\n", " ")
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "solid %s\n", name)
	for _, t := range m.Triangles {
		n := t.Normal()
		fmt.Fprintf(bw, "  facet normal %s %s %s\n", formatFloat(n.X), formatFloat(n.Y), formatFloat(n.Z))
		bw.WriteString("    outer loop\n")
		for _, v := range [3]r3.Vec{t.V1, t.V2, t.V3} {
			fmt.Fprintf(bw, "      vertex %s %s %s\n", formatFloat(v.X), formatFloat(v.Y), formatFloat(v.Z))
		}
		bw.WriteString("    endloop\n")
		bw.WriteString("  endfacet\n")
	}
	fmt.Fprintf(bw, "endsolid %s\n", name)

	return bw.Flush()
}

// SaveSTL writes m to path, creating parent directories as needed.
func SaveSTL(path, name string, m *mesh.Mesh, format STLFormat) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	bw := bufio.NewWriter(f)
	if err := WriteSTL(bw, name, m, format); err != nil {
		return err
	}
	return bw.Flush()
}

// ParseSTL decodes binary or ASCII STL data. Binary is recognised by a
// triangle count consistent with the data length.
func ParseSTL(data []byte) (*STL, error) {
	if len(data) >= stlHeaderSize+4 {
		count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
		if uint64(len(data)) == uint64(stlHeaderSize+4)+uint64(count)*stlRecordSize {
			return parseBinarySTL(data, int(count))
		}
	}

	if bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid")) {
		return parseASCIISTL(data)
	}

	if len(data) < stlHeaderSize+4 {
		return nil, ErrTruncatedSTLData
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	if uint64(len(data)) < uint64(stlHeaderSize+4)+uint64(count)*stlRecordSize {
		return nil, fmt.Errorf("%w: %d triangles declared, %d bytes present", ErrTruncatedSTLData, count, len(data))
	}
	return nil, fmt.Errorf("%w: trailing data after %d triangles", ErrInvalidSTLData, count)
}

// LoadSTL reads and parses an STL file.
func LoadSTL(path string) (*STL, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSTL(data)
}

func parseBinarySTL(data []byte, count int) (*STL, error) {
	s := &STL{
		Format:    STLBinary,
		Header:    strings.TrimRight(string(data[:stlHeaderSize]), " \x00"),
		Normals:   make([]r3.Vec, count),
		Triangles: make([]mesh.Triangle, count),
	}

	r := bytes.NewReader(data[stlHeaderSize+4:])
	for i := 0; i < count; i++ {
		var rec stlRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return nil, fmt.Errorf("%w: triangle %d: %v", ErrTruncatedSTLData, i, err)
		}
		s.Normals[i] = fromFloat32(rec.Normal)
		s.Triangles[i] = mesh.Triangle{
			V1: fromFloat32(rec.V1),
			V2: fromFloat32(rec.V2),
			V3: fromFloat32(rec.V3),
		}
	}
	return s, nil
}

func parseVec(fields []string) (r3.Vec, error) {
	if len(fields) != 3 {
		return r3.Vec{}, fmt.Errorf("expected 3 coordinates, got %d", len(fields))
	}
	var c [3]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return r3.Vec{}, err
		}
		c[i] = v
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

func parseASCIISTL(data []byte) (*STL, error) {
	s := &STL{Format: STLASCII}

	var (
		normal  r3.Vec
		corners []r3.Vec
		inFacet bool
		closed  bool
		line    int
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "solid":
			s.Header = strings.Join(fields[1:], " ")
		case "facet":
			if inFacet || len(fields) != 5 || fields[1] != "normal" {
				return nil, fmt.Errorf("%w: line %d: malformed facet", ErrInvalidSTLData, line)
			}
			n, err := parseVec(fields[2:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLData, line, err)
			}
			normal, corners, inFacet = n, corners[:0], true
		case "vertex":
			if !inFacet || len(corners) == 3 {
				return nil, fmt.Errorf("%w: line %d: unexpected vertex", ErrInvalidSTLData, line)
			}
			v, err := parseVec(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidSTLData, line, err)
			}
			corners = append(corners, v)
		case "endfacet":
			if !inFacet || len(corners) != 3 {
				return nil, fmt.Errorf("%w: line %d: facet with %d vertices", ErrInvalidSTLData, line, len(corners))
			}
			s.Normals = append(s.Normals, normal)
			s.Triangles = append(s.Triangles, mesh.Triangle{V1: corners[0], V2: corners[1], V3: corners[2]})
			inFacet = false
		case "outer", "endloop":
		case "endsolid":
			closed = true
		default:
			return nil, fmt.Errorf("%w: line %d: unexpected keyword %q", ErrInvalidSTLData, line, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inFacet || !closed {
		return nil, ErrTruncatedSTLData
	}
	return s, nil
}
