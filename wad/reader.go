// Package wad reads the binary lumps of a DOOM-format WAD file into the
// mapdata and texture packages' in-memory representations (§6: this
// package supplies the real implementation behind that external
// collaborator contract).
package wad

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strings"

	"github.com/waddoom/gorender/mapdata"
	"github.com/waddoom/gorender/texture"
)

// LumpRef is a (file offset, byte size) pair as recorded in a WAD's
// directory.
type LumpRef struct {
	Pos, Size int64
}

// InfoTable is the decoded WAD directory: top-level lump names map to a
// LumpRef, map names (e.g. "E1M1") map to their component lumps by name,
// and the "FLAT"/"SPRITE"/"PATCH" marker ranges map patch/flat names to
// their LumpRef the same way.
type InfoTable struct {
	Maps  map[string]map[string]LumpRef
	Named map[string]LumpRef
	Group map[string]map[string]LumpRef
}

var mapNameRe = regexp.MustCompile(`^E\dM\d$`)

var mapComponentNames = map[string]bool{
	"THINGS": true, "LINEDEFS": true, "SIDEDEFS": true, "VERTEXES": true,
	"SEGS": true, "SSECTORS": true, "NODES": true, "SECTORS": true,
	"REJECT": true, "BLOCKMAP": true, "BEHAVIOUR": true,
}

// ReadInfoTable parses the WAD header and directory into an InfoTable,
// mirroring the reference's read_wad_info_table grouping logic (map lumps
// nested under their map name; F_START/S_START/P_START..*_END ranges
// nested under "FLAT"/"SPRITE"/"PATCH").
func ReadInfoTable(wadPath string) (*InfoTable, error) {
	f, err := os.Open(wadPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	id, err := readString(f, 4)
	if err != nil {
		return nil, err
	}
	if id != "IWAD" && id != "PWAD" {
		return nil, &ErrWadMalformed{Reason: fmt.Sprintf("unrecognized WAD id %q", id)}
	}
	nLumps, err := readUint32(f)
	if err != nil {
		return nil, err
	}
	tablePtr, err := readUint32(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(int64(tablePtr), io.SeekStart); err != nil {
		return nil, err
	}

	info := &InfoTable{
		Maps:  map[string]map[string]LumpRef{},
		Named: map[string]LumpRef{},
		Group: map[string]map[string]LumpRef{},
	}
	currentMap := ""
	groupType := ""

	for i := uint32(0); i < nLumps; i++ {
		pos, err := readUint32(f)
		if err != nil {
			return nil, err
		}
		size, err := readUint32(f)
		if err != nil {
			return nil, err
		}
		name, err := readString(f, 8)
		if err != nil {
			return nil, err
		}

		switch name {
		case "F_END", "S_END", "P_END":
			groupType = ""
			continue
		}

		ref := LumpRef{Pos: int64(pos), Size: int64(size)}
		switch {
		case groupType != "":
			info.Group[groupType][name] = ref
		case mapNameRe.MatchString(name):
			currentMap = name
			info.Maps[name] = map[string]LumpRef{}
		case mapComponentNames[name]:
			if currentMap == "" {
				return nil, &ErrWadMalformed{Reason: fmt.Sprintf("map component %q before any map marker", name)}
			}
			info.Maps[currentMap][name] = ref
		case name == "F_START":
			groupType = "FLAT"
			info.Group[groupType] = map[string]LumpRef{}
		case name == "S_START":
			groupType = "SPRITE"
			info.Group[groupType] = map[string]LumpRef{}
		case name == "P_START":
			groupType = "PATCH"
			info.Group[groupType] = map[string]LumpRef{}
		default:
			info.Named[name] = ref
		}
	}
	return info, nil
}

// ErrWadMalformed is returned for structurally invalid WAD input: a bad
// magic id, a map component lump before any map marker, a missing map or
// map lump, a texture patch number outside PNAMES, or a lump whose
// declared size doesn't divide evenly into its record size (§7).
type ErrWadMalformed struct {
	Reason string
}

func (e *ErrWadMalformed) Error() string {
	return fmt.Sprintf("wad malformed: %s", e.Reason)
}

func readString(r io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readInt16(r io.Reader) (int16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(buf[:])), nil
}

func readUint16(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func seekedReader(wadPath string, ref LumpRef) (*bufio.Reader, *os.File, error) {
	f, err := os.Open(wadPath)
	if err != nil {
		return nil, nil, err
	}
	if _, err := f.Seek(ref.Pos, io.SeekStart); err != nil {
		f.Close()
		return nil, nil, err
	}
	return bufio.NewReader(f), f, nil
}

// ReadVertexes decodes the VERTEXES lump, record size 4 bytes.
func ReadVertexes(wadPath string, ref LumpRef) ([]mapdata.Vertex, error) {
	const recSize = 4
	if ref.Size%recSize != 0 {
		return nil, &ErrWadMalformed{Reason: "VERTEXES lump size not a multiple of 4"}
	}
	r, f, err := seekedReader(wadPath, ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]mapdata.Vertex, 0, ref.Size/recSize)
	for n := ref.Size / recSize; n > 0; n-- {
		x, err := readInt16(r)
		if err != nil {
			return nil, err
		}
		y, err := readInt16(r)
		if err != nil {
			return nil, err
		}
		out = append(out, mapdata.Vertex{X: float32(x), Y: float32(y)})
	}
	return out, nil
}

// ReadLineDefs decodes the LINEDEFS lump, record size 14 bytes.
func ReadLineDefs(wadPath string, ref LumpRef) ([]mapdata.LineDef, error) {
	const recSize = 14
	if ref.Size%recSize != 0 {
		return nil, &ErrWadMalformed{Reason: "LINEDEFS lump size not a multiple of 14"}
	}
	r, f, err := seekedReader(wadPath, ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]mapdata.LineDef, 0, ref.Size/recSize)
	for n := ref.Size / recSize; n > 0; n-- {
		startVert, _ := readInt16(r)
		endVert, _ := readInt16(r)
		_, _ = readInt16(r) // flags, not modeled (§3 Non-goals)
		_, _ = readInt16(r) // special type
		_, _ = readInt16(r) // sector tag
		front, _ := readInt16(r)
		back, err := readInt16(r)
		if err != nil {
			return nil, err
		}
		out = append(out, mapdata.LineDef{
			StartVert: int(startVert), EndVert: int(endVert),
			FrontSide: int(front), BackSide: int(back),
		})
	}
	return out, nil
}

// ReadSideDefs decodes the SIDEDEFS lump, record size 30 bytes.
func ReadSideDefs(wadPath string, ref LumpRef) ([]mapdata.SideDef, error) {
	const recSize = 30
	if ref.Size%recSize != 0 {
		return nil, &ErrWadMalformed{Reason: "SIDEDEFS lump size not a multiple of 30"}
	}
	r, f, err := seekedReader(wadPath, ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]mapdata.SideDef, 0, ref.Size/recSize)
	for n := ref.Size / recSize; n > 0; n-- {
		xOff, _ := readInt16(r)
		yOff, _ := readInt16(r)
		upper, _ := readString(r, 8)
		lower, _ := readString(r, 8)
		middle, _ := readString(r, 8)
		sector, err := readInt16(r)
		if err != nil {
			return nil, err
		}
		out = append(out, mapdata.SideDef{
			XOffset: float32(xOff), YOffset: float32(yOff),
			Upper: normalizeTexName(upper), Lower: normalizeTexName(lower), Middle: normalizeTexName(middle),
			Sector: int(sector),
		})
	}
	return out, nil
}

func normalizeTexName(s string) string {
	if s == "" {
		return mapdata.NoTexture
	}
	return s
}

// ReadSegs decodes the SEGS lump, record size 12 bytes. The on-disk angle
// is a bram (binary radian) fraction of a full turn; intToAngle below
// ports the reference's exact conversion.
func ReadSegs(wadPath string, ref LumpRef) ([]mapdata.Seg, error) {
	const recSize = 12
	if ref.Size%recSize != 0 {
		return nil, &ErrWadMalformed{Reason: "SEGS lump size not a multiple of 12"}
	}
	r, f, err := seekedReader(wadPath, ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]mapdata.Seg, 0, ref.Size/recSize)
	for n := ref.Size / recSize; n > 0; n-- {
		startVert, _ := readInt16(r)
		endVert, _ := readInt16(r)
		angleRaw, _ := readInt16(r)
		linedef, _ := readInt16(r)
		direction, _ := readInt16(r)
		offset, err := readInt16(r)
		if err != nil {
			return nil, err
		}
		out = append(out, mapdata.Seg{
			StartVert: int(startVert), EndVert: int(endVert),
			Angle:     intToAngle(angleRaw),
			LineDef:   int(linedef),
			Direction: int(direction),
			Offset:    float32(offset),
		})
	}
	return out, nil
}

func intToAngle(raw int16) float32 {
	return (float32(raw) / 65535) * 2 * math.Pi
}

// ReadSubSectors decodes the SSECTORS lump, record size 4 bytes.
func ReadSubSectors(wadPath string, ref LumpRef) ([]mapdata.SubSector, error) {
	const recSize = 4
	if ref.Size%recSize != 0 {
		return nil, &ErrWadMalformed{Reason: "SSECTORS lump size not a multiple of 4"}
	}
	r, f, err := seekedReader(wadPath, ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]mapdata.SubSector, 0, ref.Size/recSize)
	for n := ref.Size / recSize; n > 0; n-- {
		nSegs, _ := readUint16(r)
		startSeg, err := readUint16(r)
		if err != nil {
			return nil, err
		}
		out = append(out, mapdata.SubSector{StartSeg: int(startSeg), NSegs: int(nSegs)})
	}
	return out, nil
}

// ReadNodes decodes the NODES lump, record size 28 bytes.
func ReadNodes(wadPath string, ref LumpRef) ([]mapdata.Node, error) {
	const recSize = 28
	if ref.Size%recSize != 0 {
		return nil, &ErrWadMalformed{Reason: "NODES lump size not a multiple of 28"}
	}
	r, f, err := seekedReader(wadPath, ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]mapdata.Node, 0, ref.Size/recSize)
	for n := ref.Size / recSize; n > 0; n-- {
		partX, _ := readInt16(r)
		partY, _ := readInt16(r)
		dX, _ := readInt16(r)
		dY, _ := readInt16(r)

		rTop, _ := readInt16(r)
		rBottom, _ := readInt16(r)
		rLeft, _ := readInt16(r)
		rRight, _ := readInt16(r)

		lTop, _ := readInt16(r)
		lBottom, _ := readInt16(r)
		lLeft, _ := readInt16(r)
		lRight, _ := readInt16(r)

		rightChild, _ := readUint16(r)
		leftChild, err := readUint16(r)
		if err != nil {
			return nil, err
		}

		out = append(out, mapdata.Node{
			PartStart: [2]float32{float32(partX), float32(partY)},
			PartDir:   [2]float32{float32(dX), float32(dY)},
			RightBBox: mapdata.BBox{Left: float32(rLeft), Bottom: float32(rBottom), Right: float32(rRight), Top: float32(rTop)},
			LeftBBox:  mapdata.BBox{Left: float32(lLeft), Bottom: float32(lBottom), Right: float32(lRight), Top: float32(lTop)},
			RightChild: rightChild,
			LeftChild:  leftChild,
		})
	}
	return out, nil
}

// ReadSectors decodes the SECTORS lump, record size 26 bytes.
func ReadSectors(wadPath string, ref LumpRef) ([]mapdata.Sector, error) {
	const recSize = 26
	if ref.Size%recSize != 0 {
		return nil, &ErrWadMalformed{Reason: "SECTORS lump size not a multiple of 26"}
	}
	r, f, err := seekedReader(wadPath, ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]mapdata.Sector, 0, ref.Size/recSize)
	for n := ref.Size / recSize; n > 0; n-- {
		floor, _ := readInt16(r)
		ceiling, _ := readInt16(r)
		floorTex, _ := readString(r, 8)
		ceilingTex, _ := readString(r, 8)
		light, _ := readInt16(r)
		special, _ := readInt16(r)
		tag, err := readInt16(r)
		if err != nil {
			return nil, err
		}
		out = append(out, mapdata.Sector{
			FloorHeight: float32(floor), CeilingHeight: float32(ceiling),
			FloorTex: floorTex, CeilingTex: ceilingTex,
			Light: int(light), SpecialType: int(special), Tag: int(tag),
		})
	}
	return out, nil
}

// LoadMap reads every map-component lump for mapName out of info and
// assembles a validated mapdata.Map.
func LoadMap(wadPath string, info *InfoTable, mapName string) (*mapdata.Map, error) {
	refs, ok := info.Maps[mapName]
	if !ok {
		return nil, &ErrWadMalformed{Reason: fmt.Sprintf("map %q not found", mapName)}
	}
	need := func(name string) (LumpRef, error) {
		r, ok := refs[name]
		if !ok {
			return LumpRef{}, &ErrWadMalformed{Reason: fmt.Sprintf("map %q missing %s lump", mapName, name)}
		}
		return r, nil
	}

	vertRef, err := need("VERTEXES")
	if err != nil {
		return nil, err
	}
	vertexes, err := ReadVertexes(wadPath, vertRef)
	if err != nil {
		return nil, err
	}
	ldRef, err := need("LINEDEFS")
	if err != nil {
		return nil, err
	}
	linedefs, err := ReadLineDefs(wadPath, ldRef)
	if err != nil {
		return nil, err
	}
	sdRef, err := need("SIDEDEFS")
	if err != nil {
		return nil, err
	}
	sidedefs, err := ReadSideDefs(wadPath, sdRef)
	if err != nil {
		return nil, err
	}
	segRef, err := need("SEGS")
	if err != nil {
		return nil, err
	}
	segs, err := ReadSegs(wadPath, segRef)
	if err != nil {
		return nil, err
	}
	ssRef, err := need("SSECTORS")
	if err != nil {
		return nil, err
	}
	ssectors, err := ReadSubSectors(wadPath, ssRef)
	if err != nil {
		return nil, err
	}
	nodeRef, err := need("NODES")
	if err != nil {
		return nil, err
	}
	nodes, err := ReadNodes(wadPath, nodeRef)
	if err != nil {
		return nil, err
	}
	secRef, err := need("SECTORS")
	if err != nil {
		return nil, err
	}
	sectors, err := ReadSectors(wadPath, secRef)
	if err != nil {
		return nil, err
	}

	m := &mapdata.Map{
		Vertexes: vertexes, LineDefs: linedefs, SideDefs: sidedefs,
		Segs: segs, SubSectors: ssectors, Nodes: nodes, Sectors: sectors,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.AddLineDefsToSectors()
	return m, nil
}

// ReadPlayPal decodes the PLAYPAL lump into its (usually 14) 256-color
// palettes.
func ReadPlayPal(wadPath string, ref LumpRef) ([]texture.Palette, error) {
	const palBytes = 256 * 3
	if ref.Size%palBytes != 0 {
		return nil, &ErrWadMalformed{Reason: "PLAYPAL lump size not a multiple of 768"}
	}
	r, f, err := seekedReader(wadPath, ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := make([]texture.Palette, 0, ref.Size/palBytes)
	buf := make([]byte, palBytes)
	for n := ref.Size / palBytes; n > 0; n-- {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		var pal texture.Palette
		for i := range pal {
			pal[i].R = buf[i*3]
			pal[i].G = buf[i*3+1]
			pal[i].B = buf[i*3+2]
			pal[i].A = 255
		}
		out = append(out, pal)
	}
	return out, nil
}

// ReadPatch decodes a single patch graphic lump into a texture.Patch,
// including its column-post run-length data, per the format read_patch
// ports byte-for-byte.
func ReadPatch(wadPath string, ref LumpRef) (*texture.Patch, error) {
	f, err := os.Open(wadPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if _, err := f.Seek(ref.Pos, io.SeekStart); err != nil {
		return nil, err
	}

	width, err := readUint16(f)
	if err != nil {
		return nil, err
	}
	height, err := readUint16(f)
	if err != nil {
		return nil, err
	}
	left, err := readInt16(f)
	if err != nil {
		return nil, err
	}
	top, err := readInt16(f)
	if err != nil {
		return nil, err
	}

	colOffsets := make([]uint32, width)
	for i := range colOffsets {
		colOffsets[i], err = readUint32(f)
		if err != nil {
			return nil, err
		}
	}

	patch := &texture.Patch{
		Width: int(width), Height: int(height),
		LeftOffset: int(left), TopOffset: int(top),
	}
	var one [1]byte
	for _, off := range colOffsets {
		if _, err := f.Seek(ref.Pos+int64(off), io.SeekStart); err != nil {
			return nil, err
		}
		for {
			if _, err := io.ReadFull(f, one[:]); err != nil {
				return nil, err
			}
			topDelta := int(one[0])
			if topDelta == 0xff {
				patch.Posts = append(patch.Posts, texture.Post{TopDelta: 0xff})
				break
			}
			if _, err := io.ReadFull(f, one[:]); err != nil {
				return nil, err
			}
			length := int(one[0])
			if _, err := f.Seek(1, io.SeekCurrent); err != nil { // padding byte
				return nil, err
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(f, data); err != nil {
				return nil, err
			}
			if _, err := f.Seek(1, io.SeekCurrent); err != nil { // padding byte
				return nil, err
			}
			patch.Posts = append(patch.Posts, texture.Post{TopDelta: topDelta, Indices: data})
		}
	}
	return patch, nil
}

// ReadPatchNames decodes the PNAMES lump: a count followed by that many
// 8-byte patch names, indexed by the patch numbers that ReadTextures
// resolves into texture.PatchPlacement names.
func ReadPatchNames(wadPath string, ref LumpRef) ([]string, error) {
	r, f, err := seekedReader(wadPath, ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	out := make([]string, count)
	for i := range out {
		name, err := readString(r, 8)
		if err != nil {
			return nil, err
		}
		out[i] = strings.ToUpper(name)
	}
	return out, nil
}

// ReadTextures decodes a TEXTURE1/TEXTURE2-format lump into named
// composition Definitions, resolving each patch layout's patch number
// against pnames.
func ReadTextures(wadPath string, ref LumpRef, pnames []string) (map[string]texture.Definition, error) {
	r, f, err := seekedReader(wadPath, ref)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	count, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	offsets := make([]uint32, count)
	for i := range offsets {
		offsets[i], err = readUint32(r)
		if err != nil {
			return nil, err
		}
	}

	out := make(map[string]texture.Definition, count)
	for _, off := range offsets {
		f2, err := os.Open(wadPath)
		if err != nil {
			return nil, err
		}
		if _, err := f2.Seek(ref.Pos+int64(off), io.SeekStart); err != nil {
			f2.Close()
			return nil, err
		}

		name, err := readString(f2, 8)
		if err != nil {
			f2.Close()
			return nil, err
		}
		if _, err := readUint32(f2); err != nil { // masked flag, unused
			f2.Close()
			return nil, err
		}
		width, err := readInt16(f2)
		if err != nil {
			f2.Close()
			return nil, err
		}
		height, err := readInt16(f2)
		if err != nil {
			f2.Close()
			return nil, err
		}
		if _, err := readUint32(f2); err != nil { // column directory, unused
			f2.Close()
			return nil, err
		}
		patchCount, err := readInt16(f2)
		if err != nil {
			f2.Close()
			return nil, err
		}

		def := texture.Definition{Name: name, Width: int(width), Height: int(height)}
		for i := int16(0); i < patchCount; i++ {
			originX, _ := readInt16(f2)
			originY, _ := readInt16(f2)
			patchNum, _ := readInt16(f2)
			if _, err := readInt16(f2); err != nil { // stepdir, unused
				f2.Close()
				return nil, err
			}
			if _, err := readInt16(f2); err != nil { // colormap, unused
				f2.Close()
				return nil, err
			}
			if int(patchNum) < 0 || int(patchNum) >= len(pnames) {
				f2.Close()
				return nil, &ErrWadMalformed{Reason: fmt.Sprintf("texture %q: patch number %d out of range", name, patchNum)}
			}
			def.Placements = append(def.Placements, texture.PatchPlacement{
				OriginX: int(originX), OriginY: int(originY), PatchName: pnames[patchNum],
			})
		}
		f2.Close()
		out[name] = def
	}
	return out, nil
}
