package tiler

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PMTiles v3 constants.
// Layout: https://github.com/protomaps/PMTiles/blob/main/spec/v3/spec.md
const (
	headerLen       = 127
	compressionGzip = 2
	tileTypeMVT     = 1
)

// header is the fixed PMTiles v3 header.
type header struct {
	rootOffset, rootLength         uint64
	metadataOffset, metadataLength uint64
	dataOffset, dataLength         uint64
	tiles                          uint64
	minZoom, maxZoom               uint8
	bound                          orb.Bound
	center                         orb.Point
	centerZoom                     uint8
}

func (h header) marshal() []byte {
	b := make([]byte, headerLen)
	copy(b[0:7], "PMTiles")
	b[7] = 3
	le := binary.LittleEndian
	le.PutUint64(b[8:], h.rootOffset)
	le.PutUint64(b[16:], h.rootLength)
	le.PutUint64(b[24:], h.metadataOffset)
	le.PutUint64(b[32:], h.metadataLength)
	// no leaf directories at 40..56
	le.PutUint64(b[56:], h.dataOffset)
	le.PutUint64(b[64:], h.dataLength)
	le.PutUint64(b[72:], h.tiles)
	le.PutUint64(b[80:], h.tiles)
	le.PutUint64(b[88:], h.tiles)
	b[96] = 1 // clustered
	b[97] = compressionGzip
	b[98] = compressionGzip
	b[99] = tileTypeMVT
	b[100] = h.minZoom
	b[101] = h.maxZoom
	le.PutUint32(b[102:], uint32(e7(h.bound.Min[0])))
	le.PutUint32(b[106:], uint32(e7(h.bound.Min[1])))
	le.PutUint32(b[110:], uint32(e7(h.bound.Max[0])))
	le.PutUint32(b[114:], uint32(e7(h.bound.Max[1])))
	b[118] = h.centerZoom
	le.PutUint32(b[119:], uint32(e7(h.center[0])))
	le.PutUint32(b[123:], uint32(e7(h.center[1])))
	return b
}

func e7(deg float64) int32 { return int32(math.Round(deg * 1e7)) }

// entry is one tile in the root directory.
type entry struct {
	id     uint64
	offset uint64
	length uint32
}

// tileID maps z/x/y onto the Hilbert curve ordering used by PMTiles.
func tileID(z uint8, x, y uint32) uint64 {
	acc := (uint64(1)<<(z*2) - 1) / 3
	for s := uint32(1) << z >> 1; s > 0; s >>= 1 {
		rx := s & x
		ry := s & y
		acc += uint64(s) * uint64(s) * uint64((3*boolBit(rx))^boolBit(ry))
		if ry == 0 {
			if rx != 0 {
				x = s - 1 - x
				y = s - 1 - y
			}
			x, y = y, x
		}
	}
	return acc
}

func boolBit(v uint32) uint32 {
	if v != 0 {
		return 1
	}
	return 0
}

// directory encodes entries as a gzipped PMTiles directory.
func directory(entries []entry) ([]byte, error) {
	var raw bytes.Buffer
	tmp := make([]byte, binary.MaxVarintLen64)
	put := func(v uint64) {
		n := binary.PutUvarint(tmp, v)
		raw.Write(tmp[:n])
	}

	put(uint64(len(entries)))
	var last uint64
	for _, e := range entries {
		put(e.id - last)
		last = e.id
	}
	for range entries {
		put(1) // run length
	}
	for _, e := range entries {
		put(uint64(e.length))
	}
	for i, e := range entries {
		if i > 0 && e.offset == entries[i-1].offset+uint64(entries[i-1].length) {
			put(0)
			continue
		}
		put(e.offset + 1)
	}
	return gzipBytes(raw.Bytes())
}

func gzipBytes(p []byte) ([]byte, error) {
	var b bytes.Buffer
	w, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(p); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

// ArchiveStats describes a written archive.
type ArchiveStats struct {
	Tiles int
	Bytes int64
}

// WriteArchive renders every non-empty grid tile from minZoom to maxZoom and
// writes them to w as a single PMTiles v3 archive.
func (t *Tiler) WriteArchive(ctx context.Context, w io.Writer, minZoom, maxZoom uint8) (ArchiveStats, error) {
	if maxZoom > MaxZoom || minZoom > maxZoom {
		return ArchiveStats{}, eris.Wrapf(ErrOutOfRange, "zoom %d..%d", minZoom, maxZoom)
	}
	g, err := t.src.Grid(ctx)
	if err != nil {
		return ArchiveStats{}, eris.Wrap(err, "tiler: load grid")
	}
	if g == nil || len(g.Cells) == 0 {
		return ArchiveStats{}, eris.New("tiler: grid has no cells")
	}

	var bound orb.Bound
	for i, c := range g.Cells {
		if i == 0 {
			bound = c.Geometry.Bound()
			continue
		}
		bound = bound.Union(c.Geometry.Bound())
	}

	type rendered struct {
		id   uint64
		data []byte
	}
	var tiles []rendered
	for z := minZoom; z <= maxZoom; z++ {
		for _, tile := range tilesIn(bound, maptile.Zoom(z)) {
			if err := ctx.Err(); err != nil {
				return ArchiveStats{}, err
			}
			data, err := Render(g, tile)
			if err != nil {
				return ArchiveStats{}, err
			}
			if len(data) == 0 {
				continue
			}
			tiles = append(tiles, rendered{id: tileID(z, tile.X, tile.Y), data: data})
		}
	}
	if len(tiles) == 0 {
		return ArchiveStats{}, eris.New("tiler: no tiles to write")
	}
	sort.Slice(tiles, func(i, j int) bool { return tiles[i].id < tiles[j].id })

	entries := make([]entry, len(tiles))
	var offset uint64
	for i, tl := range tiles {
		entries[i] = entry{id: tl.id, offset: offset, length: uint32(len(tl.data))}
		offset += uint64(len(tl.data))
	}

	root, err := directory(entries)
	if err != nil {
		return ArchiveStats{}, eris.Wrap(err, "tiler: encode directory")
	}
	meta, err := json.Marshal(map[string]any{
		"name":    LayerName,
		"format":  "pbf",
		"minzoom": minZoom,
		"maxzoom": maxZoom,
		"vector_layers": []map[string]any{{
			"id":     LayerName,
			"fields": map[string]string{g.Key: "String"},
		}},
	})
	if err != nil {
		return ArchiveStats{}, eris.Wrap(err, "tiler: encode metadata")
	}
	meta, err = gzipBytes(meta)
	if err != nil {
		return ArchiveStats{}, eris.Wrap(err, "tiler: compress metadata")
	}

	h := header{
		rootOffset:     headerLen,
		rootLength:     uint64(len(root)),
		metadataOffset: headerLen + uint64(len(root)),
		metadataLength: uint64(len(meta)),
		dataLength:     offset,
		tiles:          uint64(len(tiles)),
		minZoom:        minZoom,
		maxZoom:        maxZoom,
		bound:          bound,
		center:         bound.Center(),
		centerZoom:     minZoom,
	}
	h.dataOffset = h.metadataOffset + h.metadataLength

	cw := &countingWriter{w: w}
	for _, part := range [][]byte{h.marshal(), root, meta} {
		if _, err := cw.Write(part); err != nil {
			return ArchiveStats{}, eris.Wrap(err, "tiler: write archive")
		}
	}
	for _, tl := range tiles {
		if _, err := cw.Write(tl.data); err != nil {
			return ArchiveStats{}, eris.Wrap(err, "tiler: write archive")
		}
	}
	t.log.Info("archive written", zap.Int("tiles", len(tiles)), zap.Int64("bytes", cw.n))
	return ArchiveStats{Tiles: len(tiles), Bytes: cw.n}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
