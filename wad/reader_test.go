package wad

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lumpBuilder accumulates lump payloads and their directory entries so
// tests can assemble a minimal, valid WAD file byte-for-byte instead of
// depending on a fixture file on disk.
type lumpBuilder struct {
	buf  bytes.Buffer
	dirs []dirEntry
}

type dirEntry struct {
	name string
	pos  uint32
	size uint32
}

func name8(s string) [8]byte {
	var out [8]byte
	copy(out[:], s)
	return out
}

func (b *lumpBuilder) add(name string, payload []byte) {
	pos := uint32(12 + b.buf.Len())
	b.buf.Write(payload)
	b.dirs = append(b.dirs, dirEntry{name: name, pos: pos, size: uint32(len(payload))})
}

func (b *lumpBuilder) marker(name string) {
	b.dirs = append(b.dirs, dirEntry{name: name, pos: uint32(12 + b.buf.Len()), size: 0})
}

func (b *lumpBuilder) write(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.wad")

	var out bytes.Buffer
	out.WriteString("PWAD")
	binary.Write(&out, binary.LittleEndian, uint32(len(b.dirs)))
	dirOffset := uint32(12 + b.buf.Len())
	binary.Write(&out, binary.LittleEndian, dirOffset)
	out.Write(b.buf.Bytes())

	for _, d := range b.dirs {
		binary.Write(&out, binary.LittleEndian, d.pos)
		binary.Write(&out, binary.LittleEndian, d.size)
		n := name8(d.name)
		out.Write(n[:])
	}

	require.NoError(t, os.WriteFile(path, out.Bytes(), 0o644))
	return path
}

func le16(v int16) []byte {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, uint16(v))
	return buf
}

func padName(s string) []byte {
	buf := make([]byte, 8)
	copy(buf, s)
	return buf
}

func buildSquareMap(b *lumpBuilder) {
	var vertexes bytes.Buffer
	coords := [][2]int16{{0, 0}, {64, 0}, {64, 64}, {0, 64}}
	for _, c := range coords {
		vertexes.Write(le16(c[0]))
		vertexes.Write(le16(c[1]))
	}
	b.add("VERTEXES", vertexes.Bytes())

	var sidedefs bytes.Buffer
	sidedefs.Write(le16(0))              // x offset
	sidedefs.Write(le16(0))              // y offset
	sidedefs.Write(padName(""))          // upper
	sidedefs.Write(padName(""))          // lower
	sidedefs.Write(padName("WALL1"))     // middle
	sidedefs.Write(le16(0))              // sector
	b.add("SIDEDEFS", sidedefs.Bytes())

	var linedefs bytes.Buffer
	writeLineDef := func(v0, v1 int16, front, back int16) {
		linedefs.Write(le16(v0))
		linedefs.Write(le16(v1))
		linedefs.Write(le16(0)) // flags
		linedefs.Write(le16(0)) // special
		linedefs.Write(le16(0)) // tag
		linedefs.Write(le16(front))
		linedefs.Write(le16(back))
	}
	writeLineDef(0, 1, 0, -1)
	writeLineDef(1, 2, 0, -1)
	writeLineDef(2, 3, 0, -1)
	writeLineDef(3, 0, 0, -1)
	b.add("LINEDEFS", linedefs.Bytes())

	var segs bytes.Buffer
	writeSeg := func(v0, v1 int16) {
		segs.Write(le16(v0))
		segs.Write(le16(v1))
		segs.Write(le16(0)) // angle
		segs.Write(le16(0)) // linedef
		segs.Write(le16(0)) // direction
		segs.Write(le16(0)) // offset
	}
	writeSeg(0, 1)
	writeSeg(1, 2)
	writeSeg(2, 3)
	writeSeg(3, 0)
	b.add("SEGS", segs.Bytes())

	var ssectors bytes.Buffer
	ssectors.Write(le16(4)) // nsegs
	ssectors.Write(le16(0)) // start seg
	b.add("SSECTORS", ssectors.Bytes())

	var nodes bytes.Buffer
	for i := 0; i < 12; i++ {
		nodes.Write(le16(0))
	}
	binary.Write(&nodes, binary.LittleEndian, uint16(0x8000|0)) // right child: leaf 0
	binary.Write(&nodes, binary.LittleEndian, uint16(0x8000|0)) // left child: leaf 0
	b.add("NODES", nodes.Bytes())

	var sectors bytes.Buffer
	sectors.Write(le16(0))   // floor
	sectors.Write(le16(128)) // ceiling
	sectors.Write(padName("FLOOR1"))
	sectors.Write(padName("CEIL1"))
	sectors.Write(le16(160)) // light
	sectors.Write(le16(0))   // special
	sectors.Write(le16(0))   // tag
	b.add("SECTORS", sectors.Bytes())
}

func TestReadInfoTableGroupsMapLumps(t *testing.T) {
	var b lumpBuilder
	b.marker("E1M1")
	buildSquareMap(&b)
	path := b.write(t)

	info, err := ReadInfoTable(path)
	require.NoError(t, err)
	require.Contains(t, info.Maps, "E1M1")
	assert.Contains(t, info.Maps["E1M1"], "VERTEXES")
	assert.Contains(t, info.Maps["E1M1"], "SECTORS")
}

func TestLoadMapBuildsValidatedMap(t *testing.T) {
	var b lumpBuilder
	b.marker("E1M1")
	buildSquareMap(&b)
	path := b.write(t)

	info, err := ReadInfoTable(path)
	require.NoError(t, err)

	m, err := LoadMap(path, info, "E1M1")
	require.NoError(t, err)
	assert.Len(t, m.Vertexes, 4)
	assert.Len(t, m.LineDefs, 4)
	assert.Len(t, m.Sectors, 1)
	assert.Equal(t, []int{0, 1, 2, 3}, m.Sectors[0].Lines)
	assert.Equal(t, float32(64), m.Vertexes[1].X)
}

func TestLoadMapUnknownMapNameErrors(t *testing.T) {
	var b lumpBuilder
	b.marker("E1M1")
	buildSquareMap(&b)
	path := b.write(t)

	info, err := ReadInfoTable(path)
	require.NoError(t, err)
	_, err = LoadMap(path, info, "E1M9")
	require.Error(t, err)
}

func TestReadPlayPalDecodesMultiplePalettes(t *testing.T) {
	var b lumpBuilder
	pal := make([]byte, 768*2)
	pal[0], pal[1], pal[2] = 10, 20, 30       // palette 0, color 0
	pal[768+3], pal[768+4], pal[768+5] = 1, 2, 3 // palette 1, color 1
	b.add("PLAYPAL", pal)
	path := b.write(t)

	info, err := ReadInfoTable(path)
	require.NoError(t, err)
	ref := info.Named["PLAYPAL"]

	pals, err := ReadPlayPal(path, ref)
	require.NoError(t, err)
	require.Len(t, pals, 2)
	assert.Equal(t, uint8(10), pals[0][0].R)
	assert.Equal(t, uint8(20), pals[0][0].G)
	assert.Equal(t, uint8(30), pals[0][0].B)
	assert.Equal(t, uint8(1), pals[1][1].R)
}

func TestReadPatchDecodesSinglePostColumn(t *testing.T) {
	var b lumpBuilder
	var patch bytes.Buffer
	binary.Write(&patch, binary.LittleEndian, uint16(1)) // width
	binary.Write(&patch, binary.LittleEndian, uint16(4)) // height
	patch.Write(le16(0)) // left offset
	patch.Write(le16(0)) // top offset

	colOffsetPos := patch.Len()
	binary.Write(&patch, binary.LittleEndian, uint32(0)) // placeholder, patched below

	colStart := uint32(patch.Len())
	patch.WriteByte(1)          // top delta
	patch.WriteByte(2)          // length
	patch.WriteByte(0)          // padding
	patch.Write([]byte{5, 6})   // indices
	patch.WriteByte(0)          // padding
	patch.WriteByte(0xff)       // column terminator

	raw := patch.Bytes()
	binary.LittleEndian.PutUint32(raw[colOffsetPos:], colStart)

	b.add("PATCH1", raw)
	path := b.write(t)

	info, err := ReadInfoTable(path)
	require.NoError(t, err)
	ref := info.Named["PATCH1"]

	p, err := ReadPatch(path, ref)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Width)
	assert.Equal(t, 4, p.Height)
	require.Len(t, p.Posts, 2)
	assert.Equal(t, 1, p.Posts[0].TopDelta)
	assert.Equal(t, []byte{5, 6}, p.Posts[0].Indices)
	assert.Equal(t, 0xff, p.Posts[1].TopDelta)
}

func TestReadPatchNamesUppercasesAndTrims(t *testing.T) {
	var b lumpBuilder
	var pnames bytes.Buffer
	binary.Write(&pnames, binary.LittleEndian, uint32(2))
	pnames.Write(padName("wall1"))
	pnames.Write(padName("DOOR2"))
	b.add("PNAMES", pnames.Bytes())
	path := b.write(t)

	info, err := ReadInfoTable(path)
	require.NoError(t, err)
	names, err := ReadPatchNames(path, info.Named["PNAMES"])
	require.NoError(t, err)
	assert.Equal(t, []string{"WALL1", "DOOR2"}, names)
}

func TestReadTexturesComposesPlacementsFromPnames(t *testing.T) {
	var b lumpBuilder

	var pnames bytes.Buffer
	binary.Write(&pnames, binary.LittleEndian, uint32(1))
	pnames.Write(padName("PATCH1"))
	b.add("PNAMES", pnames.Bytes())

	var tex bytes.Buffer
	binary.Write(&tex, binary.LittleEndian, uint32(1)) // 1 texture
	offsetPos := tex.Len()
	binary.Write(&tex, binary.LittleEndian, uint32(0)) // placeholder offset

	texStart := uint32(tex.Len())
	tex.Write(padName("WALL1"))
	binary.Write(&tex, binary.LittleEndian, uint32(0)) // masked
	tex.Write(le16(64))                                // width
	tex.Write(le16(128))                                // height
	binary.Write(&tex, binary.LittleEndian, uint32(0)) // column directory
	tex.Write(le16(1))                                 // patch count
	tex.Write(le16(0))                                 // origin x
	tex.Write(le16(0))                                 // origin y
	tex.Write(le16(0))                                 // patch number (index into pnames)
	tex.Write(le16(1))                                 // stepdir
	tex.Write(le16(0))                                 // colormap

	raw := tex.Bytes()
	binary.LittleEndian.PutUint32(raw[offsetPos:], texStart)
	b.add("TEXTURE1", raw)
	path := b.write(t)

	info, err := ReadInfoTable(path)
	require.NoError(t, err)
	pnamesOut, err := ReadPatchNames(path, info.Named["PNAMES"])
	require.NoError(t, err)

	defs, err := ReadTextures(path, info.Named["TEXTURE1"], pnamesOut)
	require.NoError(t, err)
	require.Contains(t, defs, "WALL1")
	def := defs["WALL1"]
	assert.Equal(t, 64, def.Width)
	assert.Equal(t, 128, def.Height)
	require.Len(t, def.Placements, 1)
	assert.Equal(t, "PATCH1", def.Placements[0].PatchName)
}

func TestReadTexturesRejectsOutOfRangePatchNumber(t *testing.T) {
	var b lumpBuilder
	var tex bytes.Buffer
	binary.Write(&tex, binary.LittleEndian, uint32(1))
	offsetPos := tex.Len()
	binary.Write(&tex, binary.LittleEndian, uint32(0))

	texStart := uint32(tex.Len())
	tex.Write(padName("WALL1"))
	binary.Write(&tex, binary.LittleEndian, uint32(0))
	tex.Write(le16(1))
	tex.Write(le16(1))
	binary.Write(&tex, binary.LittleEndian, uint32(0))
	tex.Write(le16(1))
	tex.Write(le16(0))
	tex.Write(le16(0))
	tex.Write(le16(99)) // out of range patch number
	tex.Write(le16(1))
	tex.Write(le16(0))

	raw := tex.Bytes()
	binary.LittleEndian.PutUint32(raw[offsetPos:], texStart)
	b.add("TEXTURE1", raw)
	path := b.write(t)

	info, err := ReadInfoTable(path)
	require.NoError(t, err)
	_, err = ReadTextures(path, info.Named["TEXTURE1"], []string{"ONLYONE"})
	require.Error(t, err)
}
