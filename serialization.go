package surf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/bits-and-blooms/bitset"
	"gopkg.in/yaml.v3"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SERIALIZATION: Saving and Loading the Index
// ═══════════════════════════════════════════════════════════════════════════════
// An index is a directory of artifacts, one file per component:
//
//	<dir>/<key>.surf
//
// Keys and encodings:
//
//	text       token text                    uint32 array
//	sa         suffix array                  uint32 array
//	docborder  document boundary map         roaring native format
//	H          reduction bit vector          bitset native format
//	dup        DUP array                     uint32 array
//	P          up-pointers                   uint32 array
//	weights    W array                       uint64 array
//	W_and_P    weighted grid                 width, height, node records
//	RMQC       recency RMQ                   values, then sparse table rows
//	dict       vocabulary, id order          string array
//	docnames   document names                string array
//	meta       build options and counts      YAML
//
// ARRAY FORMAT:
// -------------
// Little endian throughout: [count: uint32][value]...[value]
// Strings are [length: uint32][bytes].
//
// Components load in dependency order. A missing file fails Open with an
// ArtifactError naming the key; nothing is rebuilt implicitly.
// ═══════════════════════════════════════════════════════════════════════════════

const (
	KeyText      = "text"
	KeySA        = "sa"
	KeyDocBorder = "docborder"
	KeyH         = "H"
	KeyDUP       = "dup"
	KeyP         = "P"
	KeyWeights   = "weights"
	KeyGrid      = "W_and_P"
	KeyRMQC      = "RMQC"
	KeyDict      = "dict"
	KeyDocNames  = "docnames"
	KeyMeta      = "meta"

	artifactExt = ".surf"
)

// ArtifactKeys lists every artifact an index directory holds, in load order
var ArtifactKeys = []string{
	KeyMeta, KeyText, KeySA, KeyDocBorder, KeyH, KeyDUP,
	KeyP, KeyWeights, KeyGrid, KeyRMQC, KeyDict, KeyDocNames,
}

// ArtifactPath returns the file backing key in dir
func ArtifactPath(dir, key string) string {
	return filepath.Join(dir, key+artifactExt)
}

// indexMeta is the YAML header of an index directory
type indexMeta struct {
	Version   int            `yaml:"version"`
	Documents int            `yaml:"documents"`
	Size      int            `yaml:"size"`
	Weighting Weighting      `yaml:"weighting"`
	BM25      BM25Parameters `yaml:"bm25"`
	Analyzer  AnalyzerConfig `yaml:"analyzer"`
}

const metaVersion = 1

// Save writes every artifact of idx into dir, creating it if needed
func (idx *Index) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating index directory %s: %w", dir, err)
	}
	start := time.Now()

	meta, err := yaml.Marshal(indexMeta{
		Version:   metaVersion,
		Documents: idx.DocCount(),
		Size:      idx.text.Size(),
		Weighting: idx.options.Weighting,
		BM25:      idx.options.BM25,
		Analyzer:  idx.options.Analyzer,
	})
	if err != nil {
		return fmt.Errorf("encoding meta: %w", err)
	}

	var borders bytes.Buffer
	if _, err := idx.borders.bitmap.WriteTo(&borders); err != nil {
		return fmt.Errorf("encoding document borders: %w", err)
	}
	var h bytes.Buffer
	if _, err := idx.reduction.bits().WriteTo(&h); err != nil {
		return fmt.Errorf("encoding reduction map: %w", err)
	}

	artifacts := map[string][]byte{
		KeyMeta:      meta,
		KeyText:      encodeUint32s(idx.text.text),
		KeySA:        encodeUint32s(idx.text.sa),
		KeyDocBorder: borders.Bytes(),
		KeyH:         h.Bytes(),
		KeyDUP:       encodeUint32s(idx.dup),
		KeyP:         encodeUint32s(idx.upPointer),
		KeyWeights:   encodeUint64s(idx.weights),
		KeyGrid:      encodeGrid(idx.grid),
		KeyRMQC:      encodeRangeMin(idx.recency),
		KeyDict:      encodeStrings(idx.vocabulary.terms),
		KeyDocNames:  encodeStrings(idx.names),
	}
	for _, key := range ArtifactKeys {
		path := ArtifactPath(dir, key)
		if err := os.WriteFile(path, artifacts[key], 0o644); err != nil {
			return &ArtifactError{Key: key, Path: path, Err: err}
		}
	}

	slog.Info("index saved",
		slog.String("dir", dir),
		slog.Int("artifacts", len(artifacts)),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Open loads an index saved with Save
func Open(dir string) (*Index, error) {
	start := time.Now()
	loader := &artifactLoader{dir: dir}

	var meta indexMeta
	if data := loader.load(KeyMeta); data != nil {
		if err := yaml.Unmarshal(data, &meta); err != nil {
			loader.fail(KeyMeta, err)
		}
	}
	if loader.err == nil && meta.Version != metaVersion {
		loader.fail(KeyMeta, fmt.Errorf("version %d, want %d", meta.Version, metaVersion))
	}

	idx := &Index{
		options: Options{
			Analyzer:  meta.Analyzer,
			Weighting: meta.Weighting,
			BM25:      meta.BM25,
		},
	}

	text := loader.uint32s(KeyText)
	sa := loader.uint32s(KeySA)
	if loader.err == nil && len(text) != len(sa) {
		loader.fail(KeySA, fmt.Errorf("%d entries for text of %d", len(sa), len(text)))
	}
	idx.text = &TextIndex{text: text, sa: sa}

	if data := loader.load(KeyDocBorder); data != nil {
		bm := roaring.New()
		if _, err := bm.ReadFrom(bytes.NewReader(data)); err != nil {
			loader.fail(KeyDocBorder, err)
		}
		idx.borders = &DocumentBorders{bitmap: bm}
	}
	if data := loader.load(KeyH); data != nil {
		marks := new(bitset.BitSet)
		if _, err := marks.ReadFrom(bytes.NewReader(data)); err != nil {
			loader.fail(KeyH, err)
		}
		idx.reduction = newReductionMap(marks, marks.Len())
	}

	idx.dup = loader.uint32s(KeyDUP)
	idx.upPointer = loader.uint32s(KeyP)
	idx.weights = loader.uint64s(KeyWeights)
	if data := loader.load(KeyGrid); data != nil {
		grid, err := decodeGrid(data)
		if err != nil {
			loader.fail(KeyGrid, err)
		}
		idx.grid = grid
	}
	if data := loader.load(KeyRMQC); data != nil {
		rmq, err := decodeRangeMin(data)
		if err != nil {
			loader.fail(KeyRMQC, err)
		}
		idx.recency = rmq
	}

	idx.vocabulary = NewVocabulary()
	for _, term := range loader.strings(KeyDict) {
		idx.vocabulary.Add(term)
	}
	idx.names = loader.strings(KeyDocNames)

	if loader.err != nil {
		return nil, loader.err
	}
	if int(idx.borders.DocCount()) != meta.Documents || len(idx.names) != meta.Documents {
		return nil, &ArtifactError{
			Key:  KeyDocBorder,
			Path: ArtifactPath(dir, KeyDocBorder),
			Err:  fmt.Errorf("%d documents, meta says %d: %w", idx.borders.DocCount(), meta.Documents, ErrCorruptArtifact),
		}
	}

	slog.Info("index opened",
		slog.String("dir", dir),
		slog.Int("documents", meta.Documents),
		slog.Duration("elapsed", time.Since(start)))
	return idx, nil
}

// artifactLoader reads artifacts and keeps the first error. After an error
// every load returns nil.
type artifactLoader struct {
	dir string
	err error
}

func (l *artifactLoader) load(key string) []byte {
	if l.err != nil {
		return nil
	}
	path := ArtifactPath(l.dir, key)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.err = &ArtifactError{Key: key, Path: path, Err: ErrMissingArtifact}
		return nil
	}
	if err != nil {
		l.err = &ArtifactError{Key: key, Path: path, Err: err}
		return nil
	}
	return data
}

func (l *artifactLoader) fail(key string, err error) {
	if l.err == nil {
		l.err = &ArtifactError{
			Key:  key,
			Path: ArtifactPath(l.dir, key),
			Err:  fmt.Errorf("%w: %v", ErrCorruptArtifact, err),
		}
	}
}

func (l *artifactLoader) uint32s(key string) []uint32 {
	data := l.load(key)
	if data == nil {
		return nil
	}
	d := newIndexDecoder(data)
	values := d.readUint32s()
	d.expectEnd()
	if d.err != nil {
		l.fail(key, d.err)
	}
	return values
}

func (l *artifactLoader) uint64s(key string) []uint64 {
	data := l.load(key)
	if data == nil {
		return nil
	}
	d := newIndexDecoder(data)
	values := d.readUint64s()
	d.expectEnd()
	if d.err != nil {
		l.fail(key, d.err)
	}
	return values
}

func (l *artifactLoader) strings(key string) []string {
	data := l.load(key)
	if data == nil {
		return nil
	}
	d := newIndexDecoder(data)
	values := d.readStrings()
	d.expectEnd()
	if d.err != nil {
		l.fail(key, d.err)
	}
	return values
}

// ═══════════════════════════════════════════════════════════════════════════════
// ENCODING
// ═══════════════════════════════════════════════════════════════════════════════

// indexEncoder accumulates little-endian values
type indexEncoder struct {
	buffer *bytes.Buffer
}

func newIndexEncoder() *indexEncoder {
	return &indexEncoder{buffer: new(bytes.Buffer)}
}

func (e *indexEncoder) writeUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buffer.Write(b[:])
}

func (e *indexEncoder) writeUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buffer.Write(b[:])
}

func (e *indexEncoder) writeUint32s(values []uint32) {
	e.writeUint32(uint32(len(values)))
	for _, v := range values {
		e.writeUint32(v)
	}
}

func (e *indexEncoder) writeUint64s(values []uint64) {
	e.writeUint32(uint32(len(values)))
	for _, v := range values {
		e.writeUint64(v)
	}
}

func (e *indexEncoder) writeString(s string) {
	e.writeUint32(uint32(len(s)))
	e.buffer.WriteString(s)
}

func encodeUint32s(values []uint32) []byte {
	e := newIndexEncoder()
	e.writeUint32s(values)
	return e.buffer.Bytes()
}

func encodeUint64s(values []uint64) []byte {
	e := newIndexEncoder()
	e.writeUint64s(values)
	return e.buffer.Bytes()
}

func encodeStrings(values []string) []byte {
	e := newIndexEncoder()
	e.writeUint32(uint32(len(values)))
	for _, s := range values {
		e.writeString(s)
	}
	return e.buffer.Bytes()
}

// encodeGrid writes [width][height][count] then per node
// [x][y][w][child0..child3], children as int32 (-1 for none)
func encodeGrid(g *WeightedGrid) []byte {
	e := newIndexEncoder()
	e.writeUint32(g.width)
	e.writeUint32(g.height)
	e.writeUint32(uint32(len(g.nodes)))
	for _, n := range g.nodes {
		e.writeUint32(n.x)
		e.writeUint32(n.y)
		e.writeUint64(n.w)
		for _, c := range n.children {
			e.writeUint32(uint32(c))
		}
	}
	return e.buffer.Bytes()
}

// encodeRangeMin writes the values, then [levels] and one array per level
func encodeRangeMin(r *rangeMin[uint64]) []byte {
	e := newIndexEncoder()
	e.writeUint64s(r.values)
	e.writeUint32(uint32(len(r.table)))
	for _, row := range r.table {
		e.writeUint32s(row)
	}
	return e.buffer.Bytes()
}

// ═══════════════════════════════════════════════════════════════════════════════
// DECODING
// ═══════════════════════════════════════════════════════════════════════════════

// indexDecoder reads what indexEncoder wrote. The first short read sets err;
// later reads return zero values.
type indexDecoder struct {
	data   []byte
	offset int
	err    error
}

func newIndexDecoder(data []byte) *indexDecoder {
	return &indexDecoder{data: data}
}

func (d *indexDecoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.offset+n > len(d.data) {
		d.err = fmt.Errorf("truncated at offset %d: need %d of %d bytes", d.offset, n, len(d.data)-d.offset)
		return nil
	}
	b := d.data[d.offset : d.offset+n]
	d.offset += n
	return b
}

func (d *indexDecoder) readUint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *indexDecoder) readUint64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// readCount reads an array length and checks that size bytes per element remain
func (d *indexDecoder) readCount(size int) int {
	n := int(d.readUint32())
	if d.err == nil && n*size > len(d.data)-d.offset {
		d.err = fmt.Errorf("count %d exceeds remaining %d bytes", n, len(d.data)-d.offset)
	}
	if d.err != nil {
		return 0
	}
	return n
}

func (d *indexDecoder) readUint32s() []uint32 {
	n := d.readCount(4)
	values := make([]uint32, n)
	for i := range values {
		values[i] = d.readUint32()
	}
	return values
}

func (d *indexDecoder) readUint64s() []uint64 {
	n := d.readCount(8)
	values := make([]uint64, n)
	for i := range values {
		values[i] = d.readUint64()
	}
	return values
}

func (d *indexDecoder) readString() string {
	n := int(d.readUint32())
	return string(d.take(n))
}

func (d *indexDecoder) readStrings() []string {
	n := d.readCount(4)
	values := make([]string, n)
	for i := range values {
		values[i] = d.readString()
	}
	return values
}

func (d *indexDecoder) expectEnd() {
	if d.err == nil && d.offset != len(d.data) {
		d.err = fmt.Errorf("%d trailing bytes", len(d.data)-d.offset)
	}
}

func decodeGrid(data []byte) (*WeightedGrid, error) {
	d := newIndexDecoder(data)
	g := &WeightedGrid{
		width:  d.readUint32(),
		height: d.readUint32(),
	}
	n := d.readCount(32)
	g.nodes = make([]gridNode, n)
	for i := range g.nodes {
		node := &g.nodes[i]
		node.x = d.readUint32()
		node.y = d.readUint32()
		node.w = d.readUint64()
		for q := range node.children {
			node.children[q] = int32(d.readUint32())
			if c := node.children[q]; d.err == nil && (c < noNode || int(c) >= n) {
				d.err = fmt.Errorf("node %d: child %d out of range", i, c)
			}
		}
	}
	d.expectEnd()
	if d.err != nil {
		return nil, d.err
	}
	return g, nil
}

func decodeRangeMin(data []byte) (*rangeMin[uint64], error) {
	d := newIndexDecoder(data)
	r := &rangeMin[uint64]{values: d.readUint64s()}
	levels := d.readCount(4)
	r.table = make([][]uint32, levels)
	for k := range r.table {
		r.table[k] = d.readUint32s()
		for _, v := range r.table[k] {
			if d.err == nil && int(v) >= len(r.values) {
				d.err = fmt.Errorf("level %d: index %d out of range", k, v)
			}
		}
	}
	d.expectEnd()
	if d.err != nil {
		return nil, d.err
	}
	return r, nil
}
