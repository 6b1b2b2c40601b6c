package dataset

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
)

// ComponentDef describes a component for Writer.
type ComponentDef struct {
	Name string
	// Headers lists the dataset headers that identify the component.
	Headers []string
	// DefaultProfile is the ID of the profile used when no header matches.
	// Zero means none.
	DefaultProfile int32
	Properties     []PropertyDef
}

// PropertyDef describes a property for Writer.
type PropertyDef struct {
	Name    string
	Type    ValueType
	List    bool
	Default string
}

// ProfileDef describes a profile for Writer. Profile IDs are unique across
// the dataset and must be non-zero.
type ProfileDef struct {
	Component string
	ID        int32
	// Values maps property names to the values the profile holds.
	Values map[string][]string
}

// NodeDef is a fragment of a signature anchored at a character position.
type NodeDef struct {
	Position int
	Pattern  string
}

// SignatureDef describes a signature for Writer. Signatures are written in
// the order given, so earlier signatures get lower offsets.
type SignatureDef struct {
	Rank     int32
	Profiles []int32
	Nodes    []NodeDef
}

// Fragments anchors consecutive parts of a header value, starting at
// position zero.
func Fragments(parts ...string) []NodeDef {
	out := make([]NodeDef, 0, len(parts))
	pos := 0
	for _, p := range parts {
		out = append(out, NodeDef{Position: pos, Pattern: p})
		pos += len(p)
	}
	return out
}

// Writer produces dataset blobs in the binary format read by Open. It builds
// the node tree from the signature fragments.
type Writer struct {
	// Version defaults to CurrentVersion.
	Version    Version
	Headers    []string
	Components []ComponentDef
	Profiles   []ProfileDef
	Signatures []SignatureDef
}

// WriteTo writes the blob to dst.
func (w *Writer) WriteTo(dst io.Writer) (int64, error) {
	data, err := w.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := dst.Write(data)
	return int64(n), err
}

// WriteFile writes the blob to path.
func (w *Writer) WriteFile(path string) error {
	data, err := w.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writerErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrWriter}, args...)...)
}

type stringTable struct {
	buf     []byte
	offsets map[string]int32
}

func (t *stringTable) add(s string) (int32, error) {
	if off, ok := t.offsets[s]; ok {
		return off, nil
	}
	if len(s) > math.MaxUint16 {
		return 0, writerErr("string of %d bytes is too long", len(s))
	}
	off := int32(len(t.buf))
	t.buf = binary.LittleEndian.AppendUint16(t.buf, uint16(len(s)))
	t.buf = append(t.buf, s...)
	t.offsets[s] = off
	return off, nil
}

type builtProperty struct {
	def       PropertyDef
	component int
	name      int32
	values    []string
	first     int32
}

type builtNode struct {
	NodeDef
	parent     int
	children   []int
	signatures []int32
	offset     int32
}

// Bytes builds the blob.
func (w *Writer) Bytes() ([]byte, error) {
	version := w.Version
	if version == (Version{}) {
		version = CurrentVersion
	}
	if !version.Supported() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
	if len(w.Headers) > 32 {
		return nil, writerErr("%d headers, at most 32 are supported", len(w.Headers))
	}
	if len(w.Components) > math.MaxUint8+1 {
		return nil, writerErr("%d components, at most 256 are supported", len(w.Components))
	}

	st := &stringTable{offsets: make(map[string]int32)}
	if _, err := st.add(""); err != nil {
		return nil, err
	}

	headerOffsets := make([]int32, len(w.Headers))
	headerIndex := make(map[string]int, len(w.Headers))
	for i, h := range w.Headers {
		if h == "" {
			return nil, writerErr("empty header name")
		}
		if _, dup := headerIndex[h]; dup {
			return nil, writerErr("duplicate header %q", h)
		}
		headerIndex[h] = i
		off, err := st.add(h)
		if err != nil {
			return nil, err
		}
		headerOffsets[i] = off
	}

	// Components and properties.
	componentIndex := make(map[string]int, len(w.Components))
	var props []*builtProperty
	propIndex := make(map[string]*builtProperty)
	for ci, c := range w.Components {
		if c.Name == "" {
			return nil, writerErr("component %d has no name", ci)
		}
		if _, dup := componentIndex[c.Name]; dup {
			return nil, writerErr("duplicate component %q", c.Name)
		}
		componentIndex[c.Name] = ci
		for _, h := range c.Headers {
			if _, ok := headerIndex[h]; !ok {
				return nil, writerErr("component %q uses unknown header %q", c.Name, h)
			}
		}
		for _, p := range c.Properties {
			key := strings.ToLower(p.Name)
			if p.Name == "" || propIndex[key] != nil {
				return nil, writerErr("invalid or duplicate property %q", p.Name)
			}
			if p.Type > ValueTypeFloat {
				return nil, writerErr("property %q has unknown type %d", p.Name, p.Type)
			}
			bp := &builtProperty{def: p, component: ci}
			if p.Default != "" {
				bp.values = append(bp.values, p.Default)
			}
			props = append(props, bp)
			propIndex[key] = bp
		}
	}

	// Profiles, validated and ordered by component then ID.
	profiles := slices.Clone(w.Profiles)
	profileIDs := make(map[int32]bool, len(profiles))
	for _, p := range profiles {
		ci, ok := componentIndex[p.Component]
		if !ok {
			return nil, writerErr("profile %d uses unknown component %q", p.ID, p.Component)
		}
		if p.ID == 0 || profileIDs[p.ID] {
			return nil, writerErr("invalid or duplicate profile id %d", p.ID)
		}
		profileIDs[p.ID] = true
		for name, values := range p.Values {
			bp := propIndex[strings.ToLower(name)]
			if bp == nil || bp.component != ci {
				return nil, writerErr("profile %d sets property %q outside component %q", p.ID, name, p.Component)
			}
			bp.values = append(bp.values, values...)
		}
	}
	slices.SortStableFunc(profiles, func(a, b ProfileDef) int {
		if c := cmp.Compare(componentIndex[a.Component], componentIndex[b.Component]); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if len(props) > math.MaxInt16 {
		return nil, writerErr("%d properties, at most %d are supported", len(props), math.MaxInt16)
	}

	// Values, contiguous per property and sorted by name.
	var values []byte
	valueIndex := make(map[*builtProperty]map[string]int32, len(props))
	var valueCount int32
	for pi, bp := range props {
		slices.Sort(bp.values)
		bp.values = slices.Compact(bp.values)
		bp.first = valueCount
		valueIndex[bp] = make(map[string]int32, len(bp.values))
		for _, v := range bp.values {
			off, err := st.add(v)
			if err != nil {
				return nil, err
			}
			values = binary.LittleEndian.AppendUint16(values, uint16(pi))
			values = binary.LittleEndian.AppendUint32(values, uint32(off))
			valueIndex[bp][v] = valueCount
			valueCount++
		}
		name, err := st.add(bp.def.Name)
		if err != nil {
			return nil, err
		}
		bp.name = name
	}

	var profileSec []byte
	profileOffsets := make(map[int32]int32, len(profiles))
	profileComponent := make(map[int32]int, len(profiles))
	for _, p := range profiles {
		ci := componentIndex[p.Component]
		var indices []int32
		for name, vs := range p.Values {
			bp := propIndex[strings.ToLower(name)]
			for _, v := range vs {
				indices = append(indices, valueIndex[bp][v])
			}
		}
		slices.Sort(indices)
		indices = slices.Compact(indices)

		profileOffsets[p.ID] = int32(len(profileSec))
		profileComponent[p.ID] = ci
		profileSec = append(profileSec, byte(ci))
		profileSec = binary.LittleEndian.AppendUint32(profileSec, uint32(p.ID))
		profileSec = binary.LittleEndian.AppendUint32(profileSec, uint32(len(indices)))
		for _, i := range indices {
			profileSec = binary.LittleEndian.AppendUint32(profileSec, uint32(i))
		}
	}

	var componentSec []byte
	for ci, c := range w.Components {
		name, err := st.add(c.Name)
		if err != nil {
			return nil, err
		}
		def := int32(-1)
		if c.DefaultProfile != 0 {
			off, ok := profileOffsets[c.DefaultProfile]
			if !ok || profileComponent[c.DefaultProfile] != ci {
				return nil, writerErr("component %q default profile %d not found", c.Name, c.DefaultProfile)
			}
			def = off
		}
		var mask uint32
		for _, h := range c.Headers {
			mask |= 1 << uint(headerIndex[h])
		}
		componentSec = append(componentSec, byte(ci))
		componentSec = binary.LittleEndian.AppendUint32(componentSec, uint32(name))
		componentSec = binary.LittleEndian.AppendUint32(componentSec, uint32(def))
		componentSec = binary.LittleEndian.AppendUint32(componentSec, mask)
	}

	var propertySec []byte
	for _, bp := range props {
		def := int32(-1)
		if bp.def.Default != "" {
			def = valueIndex[bp][bp.def.Default]
		}
		list := byte(0)
		if bp.def.List {
			list = 1
		}
		propertySec = append(propertySec, byte(bp.component))
		propertySec = binary.LittleEndian.AppendUint32(propertySec, uint32(bp.name))
		propertySec = append(propertySec, byte(bp.def.Type), list)
		propertySec = binary.LittleEndian.AppendUint32(propertySec, uint32(bp.first))
		propertySec = binary.LittleEndian.AppendUint32(propertySec, uint32(bp.first+int32(len(bp.values))-1))
		propertySec = binary.LittleEndian.AppendUint32(propertySec, uint32(def))
	}

	nodes, sigNodes, err := w.buildNodes()
	if err != nil {
		return nil, err
	}

	// Signature layout depends only on counts, so offsets are known before
	// the node section is written.
	sigOffsets := make([]int32, len(w.Signatures))
	var sigSize int32
	for i, s := range w.Signatures {
		if len(s.Profiles) > math.MaxUint8 || len(sigNodes[i]) > math.MaxUint8 {
			return nil, writerErr("signature %d has too many profiles or nodes", i)
		}
		if len(sigNodes[i]) == 0 {
			return nil, writerErr("signature %d has no nodes", i)
		}
		sigOffsets[i] = sigSize
		sigSize += signatureHeaderSize + 4*int32(len(s.Profiles)+len(sigNodes[i]))
		for _, n := range sigNodes[i] {
			nodes[n].signatures = append(nodes[n].signatures, sigOffsets[i])
		}
	}

	var nodeSize int32
	for _, n := range nodes {
		if len(n.children) > math.MaxUint16 {
			return nil, writerErr("node %d:%q has too many children", n.Position, n.Pattern)
		}
		n.offset = nodeSize
		nodeSize += nodeHeaderSize + 4*int32(len(n.children)+len(n.signatures))
	}

	var signatureSec []byte
	for i, s := range w.Signatures {
		ordered := slices.Clone(s.Profiles)
		for _, id := range ordered {
			if _, ok := profileOffsets[id]; !ok {
				return nil, writerErr("signature %d references unknown profile %d", i, id)
			}
		}
		slices.SortFunc(ordered, func(a, b int32) int {
			return cmp.Compare(profileComponent[a], profileComponent[b])
		})
		signatureSec = binary.LittleEndian.AppendUint32(signatureSec, uint32(s.Rank))
		signatureSec = append(signatureSec, byte(len(ordered)), byte(len(sigNodes[i])))
		for _, id := range ordered {
			signatureSec = binary.LittleEndian.AppendUint32(signatureSec, uint32(profileOffsets[id]))
		}
		for _, n := range sigNodes[i] {
			signatureSec = binary.LittleEndian.AppendUint32(signatureSec, uint32(nodes[n].offset))
		}
	}

	var nodeSec []byte
	maxPos := -1
	for _, n := range nodes {
		pattern, err := st.add(n.Pattern)
		if err != nil {
			return nil, err
		}
		parent := int32(-1)
		if n.parent >= 0 {
			parent = nodes[n.parent].offset
		}
		nodeSec = binary.LittleEndian.AppendUint16(nodeSec, uint16(n.Position))
		nodeSec = binary.LittleEndian.AppendUint32(nodeSec, uint32(parent))
		nodeSec = binary.LittleEndian.AppendUint32(nodeSec, uint32(pattern))
		nodeSec = binary.LittleEndian.AppendUint16(nodeSec, uint16(len(n.children)))
		nodeSec = binary.LittleEndian.AppendUint32(nodeSec, uint32(len(n.signatures)))
		for _, c := range n.children {
			nodeSec = binary.LittleEndian.AppendUint32(nodeSec, uint32(nodes[c].offset))
		}
		for _, s := range n.signatures {
			nodeSec = binary.LittleEndian.AppendUint32(nodeSec, uint32(s))
		}
		maxPos = max(maxPos, n.Position)
	}

	roots := make([]int32, maxPos+1)
	for i := range roots {
		roots[i] = -1
	}
	for _, n := range nodes {
		if n.parent < 0 {
			roots[n.Position] = n.offset
		}
	}
	var rootSec []byte
	for _, r := range roots {
		rootSec = binary.LittleEndian.AppendUint32(rootSec, uint32(r))
	}

	bodies := [sectionCount][]byte{
		secStrings:    st.buf,
		secComponents: componentSec,
		secProperties: propertySec,
		secValues:     values,
		secProfiles:   profileSec,
		secSignatures: signatureSec,
		secNodes:      nodeSec,
		secRootNodes:  rootSec,
	}
	counts := [sectionCount]int{
		secStrings:    len(st.offsets),
		secComponents: len(w.Components),
		secProperties: len(props),
		secValues:     int(valueCount),
		secProfiles:   len(profiles),
		secSignatures: len(w.Signatures),
		secNodes:      len(nodes),
		secRootNodes:  len(roots),
	}

	var out bytes.Buffer
	out.WriteString(Magic)
	_ = binary.Write(&out, binary.LittleEndian, version.Major)
	_ = binary.Write(&out, binary.LittleEndian, version.Minor)
	out.WriteByte(byte(len(headerOffsets)))
	_ = binary.Write(&out, binary.LittleEndian, headerOffsets)

	start := headerSize(len(headerOffsets))
	for i, body := range bodies {
		_ = binary.Write(&out, binary.LittleEndian, section{
			Start:  int32(start),
			Length: int32(len(body)),
			Count:  int32(counts[i]),
		})
		start += int64(len(body))
	}
	if start > math.MaxInt32 {
		return nil, writerErr("dataset of %d bytes is too large", start)
	}
	for _, body := range bodies {
		out.Write(body)
	}
	return out.Bytes(), nil
}

// buildNodes creates the node tree from the signature fragments. Nodes are
// ordered by position then pattern, so each root precedes its position's
// fragments. The second result holds each signature's node indices in the
// same order.
func (w *Writer) buildNodes() ([]*builtNode, [][]int, error) {
	type key struct {
		pos     int
		pattern string
	}
	seen := make(map[key]bool)
	for i, s := range w.Signatures {
		for _, n := range s.Nodes {
			if n.Pattern == "" || n.Position < 0 || n.Position > math.MaxInt16 {
				return nil, nil, writerErr("signature %d has invalid node %d:%q", i, n.Position, n.Pattern)
			}
			seen[key{n.Position, n.Pattern}] = true
			seen[key{n.Position, ""}] = true
		}
	}

	keys := make([]key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b key) int {
		if c := cmp.Compare(a.pos, b.pos); c != 0 {
			return c
		}
		return strings.Compare(a.pattern, b.pattern)
	})

	index := make(map[key]int, len(keys))
	nodes := make([]*builtNode, len(keys))
	for i, k := range keys {
		index[k] = i
		nodes[i] = &builtNode{NodeDef: NodeDef{Position: k.pos, Pattern: k.pattern}, parent: -1}
	}
	// Nodes are sorted, so children are appended in pattern order.
	for i, n := range nodes {
		if n.Pattern == "" {
			continue
		}
		parent := index[key{n.Position, ""}]
		for l := len(n.Pattern) - 1; l > 0; l-- {
			if p, ok := index[key{n.Position, n.Pattern[:l]}]; ok {
				parent = p
				break
			}
		}
		n.parent = parent
		nodes[parent].children = append(nodes[parent].children, i)
	}

	sigNodes := make([][]int, len(w.Signatures))
	for i, s := range w.Signatures {
		for _, n := range s.Nodes {
			sigNodes[i] = append(sigNodes[i], index[key{n.Position, n.Pattern}])
		}
		slices.Sort(sigNodes[i])
		sigNodes[i] = slices.Compact(sigNodes[i])
	}
	return nodes, sigNodes, nil
}
