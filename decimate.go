package scanmesh

import (
	"container/heap"
	"math"

	"github.com/flywave/go3d/vec2"
	"github.com/flywave/go3d/vec3"
)

// Decimate reduces the face count toward round(FaceCount*ratio) by
// iterative edge collapse ranked with quadric error metrics. Collapses
// that would flip a surviving face or pinch the surface into a duplicate
// edge are rejected and the next candidate is tried, so the result is
// never less manifold than the input. Normals, texcoords and colors are
// inherited from a collapsed endpoint or averaged when the merged vertex
// lands between them. ratio 1 is a no-op.
func Decimate(m *Mesh, ratio float64) (*Mesh, error) {
	if m.IsEmpty() {
		return nil, ErrEmptyMesh
	}
	if ratio <= 0 || ratio > 1 {
		ratio = DEFAULT_DECIMATION_RATIO
	}
	if ratio == 1 {
		return m.Clone(), nil
	}
	target := int(math.Round(float64(len(m.Faces)) * ratio))
	if target < 1 {
		target = 1
	}
	if target >= len(m.Faces) {
		return m.Clone(), nil
	}

	d := newDecimator(m)
	d.run(target)
	return d.compact(m), nil
}

// quadric is a symmetric 4x4 error matrix stored as its upper triangle:
// a2 ab ac ad b2 bc bd c2 cd d2.
type quadric [10]float64

func (q *quadric) addPlane(a, b, c, d, w float64) {
	q[0] += w * a * a
	q[1] += w * a * b
	q[2] += w * a * c
	q[3] += w * a * d
	q[4] += w * b * b
	q[5] += w * b * c
	q[6] += w * b * d
	q[7] += w * c * c
	q[8] += w * c * d
	q[9] += w * d * d
}

func (q *quadric) add(o *quadric) {
	for i := range q {
		q[i] += o[i]
	}
}

func (q *quadric) evaluate(p [3]float64) float64 {
	x, y, z := p[0], p[1], p[2]
	return q[0]*x*x + 2*q[1]*x*y + 2*q[2]*x*z + 2*q[3]*x +
		q[4]*y*y + 2*q[5]*y*z + 2*q[6]*y +
		q[7]*z*z + 2*q[8]*z +
		q[9]
}

// optimalPosition solves grad(vQv)=0 by Cramer's rule. Near-singular
// quadrics (flat or linear neighborhoods) report ok=false and the caller
// falls back to the endpoints or midpoint.
func (q *quadric) optimalPosition() (p [3]float64, ok bool) {
	a11, a12, a13 := q[0], q[1], q[2]
	a22, a23 := q[4], q[5]
	a33 := q[7]
	b1, b2, b3 := -q[3], -q[6], -q[8]

	det := a11*(a22*a33-a23*a23) - a12*(a12*a33-a23*a13) + a13*(a12*a23-a22*a13)
	if math.Abs(det) < 1e-12 {
		return p, false
	}
	p[0] = (b1*(a22*a33-a23*a23) - a12*(b2*a33-a23*b3) + a13*(b2*a23-a22*b3)) / det
	p[1] = (a11*(b2*a33-a23*b3) - b1*(a12*a33-a23*a13) + a13*(a12*b3-b2*a13)) / det
	p[2] = (a11*(a22*b3-b2*a23) - a12*(a12*b3-b2*a13) + b1*(a12*a23-a22*a13)) / det
	return p, true
}

type collapseItem struct {
	cost   float64
	a, b   uint32
	target [3]float64
	genA   uint32
	genB   uint32
}

type collapseHeap []collapseItem

func (h collapseHeap) Len() int            { return len(h) }
func (h collapseHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h collapseHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *collapseHeap) Push(x interface{}) { *h = append(*h, x.(collapseItem)) }
func (h *collapseHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	*h = old[:n-1]
	return it
}

const boundaryPenalty = 1000.0

type decimator struct {
	pos       [][3]float64
	normals   []vec3.T
	uvs       []vec2.T
	colors    [][3]byte
	hasN      bool
	hasUV     bool
	hasC      bool
	q         []quadric
	faces     [][3]uint32
	faceAlive []bool
	vertAlive []bool
	vfaces    [][]int
	version   []uint32
	heap      collapseHeap
	alive     int
}

func newDecimator(m *Mesh) *decimator {
	d := &decimator{
		pos:       make([][3]float64, len(m.Vertices)),
		q:         make([]quadric, len(m.Vertices)),
		faces:     make([][3]uint32, len(m.Faces)),
		faceAlive: make([]bool, len(m.Faces)),
		vertAlive: make([]bool, len(m.Vertices)),
		version:   make([]uint32, len(m.Vertices)),
		alive:     len(m.Faces),
	}
	for i, v := range m.Vertices {
		d.pos[i] = [3]float64{float64(v[0]), float64(v[1]), float64(v[2])}
		d.vertAlive[i] = true
	}
	copy(d.faces, m.Faces)
	for i := range d.faceAlive {
		d.faceAlive[i] = true
	}
	if d.hasN = m.HasNormals(); d.hasN {
		d.normals = make([]vec3.T, len(m.Normals))
		copy(d.normals, m.Normals)
	}
	if d.hasUV = m.HasTexCoords(); d.hasUV {
		d.uvs = make([]vec2.T, len(m.TexCoords))
		copy(d.uvs, m.TexCoords)
	}
	if d.hasC = m.HasColors(); d.hasC {
		d.colors = make([][3]byte, len(m.Colors))
		copy(d.colors, m.Colors)
	}

	d.vfaces = make([][]int, len(m.Vertices))
	for i, f := range d.faces {
		d.vfaces[f[0]] = append(d.vfaces[f[0]], i)
		d.vfaces[f[1]] = append(d.vfaces[f[1]], i)
		d.vfaces[f[2]] = append(d.vfaces[f[2]], i)
	}

	for i := range d.faces {
		n, area := d.faceNormalArea(i)
		if area == 0 {
			continue
		}
		p := d.pos[d.faces[i][0]]
		dd := -(n[0]*p[0] + n[1]*p[1] + n[2]*p[2])
		for _, v := range d.faces[i] {
			d.q[v].addPlane(n[0], n[1], n[2], dd, area)
		}
	}

	// Boundary edges get a heavily weighted constraint plane through the
	// edge and perpendicular to the face, so open rims keep their shape.
	ef := edgeFaces(m)
	for key, fs := range ef {
		if len(fs) != 1 {
			continue
		}
		fi := fs[0]
		n, area := d.faceNormalArea(fi)
		if area == 0 {
			continue
		}
		p0 := d.pos[key.A]
		p1 := d.pos[key.B]
		e := [3]float64{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
		c := [3]float64{
			e[1]*n[2] - e[2]*n[1],
			e[2]*n[0] - e[0]*n[2],
			e[0]*n[1] - e[1]*n[0],
		}
		cl := math.Sqrt(c[0]*c[0] + c[1]*c[1] + c[2]*c[2])
		if cl == 0 {
			continue
		}
		el2 := e[0]*e[0] + e[1]*e[1] + e[2]*e[2]
		c[0] /= cl
		c[1] /= cl
		c[2] /= cl
		dd := -(c[0]*p0[0] + c[1]*p0[1] + c[2]*p0[2])
		w := boundaryPenalty * el2
		d.q[key.A].addPlane(c[0], c[1], c[2], dd, w)
		d.q[key.B].addPlane(c[0], c[1], c[2], dd, w)
	}

	for key := range ef {
		d.heap = append(d.heap, d.makeItem(key.A, key.B))
	}
	heap.Init(&d.heap)
	return d
}

func (d *decimator) faceNormalArea(i int) ([3]float64, float64) {
	f := d.faces[i]
	p0, p1, p2 := d.pos[f[0]], d.pos[f[1]], d.pos[f[2]]
	u := [3]float64{p1[0] - p0[0], p1[1] - p0[1], p1[2] - p0[2]}
	v := [3]float64{p2[0] - p0[0], p2[1] - p0[1], p2[2] - p0[2]}
	n := [3]float64{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
	l := math.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return n, 0
	}
	n[0] /= l
	n[1] /= l
	n[2] /= l
	return n, l / 2
}

func (d *decimator) makeItem(a, b uint32) collapseItem {
	q := d.q[a]
	q.add(&d.q[b])
	target, ok := q.optimalPosition()
	if !ok {
		pa := d.pos[a]
		pb := d.pos[b]
		mid := [3]float64{(pa[0] + pb[0]) / 2, (pa[1] + pb[1]) / 2, (pa[2] + pb[2]) / 2}
		target = pa
		best := q.evaluate(pa)
		if c := q.evaluate(pb); c < best {
			best = c
			target = pb
		}
		if c := q.evaluate(mid); c < best {
			target = mid
		}
	}
	return collapseItem{
		cost:   q.evaluate(target),
		a:      a,
		b:      b,
		target: target,
		genA:   d.version[a],
		genB:   d.version[b],
	}
}

// neighbors collects the vertices sharing an alive face with v, pruning
// dead entries from the incidence list as a side effect.
func (d *decimator) neighbors(v uint32) []uint32 {
	live := d.vfaces[v][:0]
	seen := make(map[uint32]struct{}, 8)
	for _, fi := range d.vfaces[v] {
		if !d.faceAlive[fi] {
			continue
		}
		live = append(live, fi)
		for _, o := range d.faces[fi] {
			if o != v {
				seen[o] = struct{}{}
			}
		}
	}
	d.vfaces[v] = live
	out := make([]uint32, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	return out
}

func (d *decimator) edgeFacesOf(a, b uint32) []int {
	var out []int
	for _, fi := range d.vfaces[a] {
		if !d.faceAlive[fi] {
			continue
		}
		f := d.faces[fi]
		if f[0] == b || f[1] == b || f[2] == b {
			out = append(out, fi)
		}
	}
	return out
}

func (d *decimator) run(target int) {
	for d.alive > target && d.heap.Len() > 0 {
		it := heap.Pop(&d.heap).(collapseItem)
		if !d.vertAlive[it.a] || !d.vertAlive[it.b] {
			continue
		}
		if it.genA != d.version[it.a] || it.genB != d.version[it.b] {
			// Quadrics moved under this entry; requeue with fresh cost.
			if len(d.edgeFacesOf(it.a, it.b)) > 0 {
				heap.Push(&d.heap, d.makeItem(it.a, it.b))
			}
			continue
		}
		shared := d.edgeFacesOf(it.a, it.b)
		if len(shared) == 0 {
			continue
		}
		if !d.linkConditionOK(it.a, it.b, shared) {
			continue
		}
		if d.wouldFlip(it.a, it.b, it.target) || d.wouldFlip(it.b, it.a, it.target) {
			continue
		}
		d.collapse(it.a, it.b, it.target, shared)
	}
}

// linkConditionOK verifies that the only vertices adjacent to both
// endpoints are the opposite corners of the edge's own faces. Any extra
// shared neighbor means the collapse would pinch the surface into a
// duplicate edge.
func (d *decimator) linkConditionOK(a, b uint32, shared []int) bool {
	opposite := make(map[uint32]struct{}, len(shared))
	for _, fi := range shared {
		for _, v := range d.faces[fi] {
			if v != a && v != b {
				opposite[v] = struct{}{}
			}
		}
	}
	nb := make(map[uint32]struct{})
	for _, n := range d.neighbors(a) {
		nb[n] = struct{}{}
	}
	for _, n := range d.neighbors(b) {
		if n == a {
			continue
		}
		if _, both := nb[n]; !both {
			continue
		}
		if _, ok := opposite[n]; !ok {
			return false
		}
	}
	return true
}

// flipAreaEps bounds how far a face's squared area may shrink, relative
// to its current squared area, before the collapse counts as degenerate.
const flipAreaEps = 1e-12

// wouldFlip tests every surviving face of moved against the collapse
// target. A face whose normal reverses, or whose area vanishes relative
// to its current area, rejects the collapse. Both tests are independent
// of the model's absolute scale.
func (d *decimator) wouldFlip(moved, gone uint32, target [3]float64) bool {
	for _, fi := range d.vfaces[moved] {
		if !d.faceAlive[fi] {
			continue
		}
		f := d.faces[fi]
		if f[0] == gone || f[1] == gone || f[2] == gone {
			continue
		}
		var p [3][3]float64
		var q [3][3]float64
		for k, v := range f {
			p[k] = d.pos[v]
			if v == moved {
				q[k] = target
			} else {
				q[k] = d.pos[v]
			}
		}
		n0 := triNormal(p)
		n1 := triNormal(q)
		dot := n0[0]*n1[0] + n0[1]*n1[1] + n0[2]*n1[2]
		if dot <= 0 {
			return true
		}
		if lenSq(n1) <= flipAreaEps*lenSq(n0) {
			return true
		}
	}
	return false
}

func triNormal(p [3][3]float64) [3]float64 {
	u := [3]float64{p[1][0] - p[0][0], p[1][1] - p[0][1], p[1][2] - p[0][2]}
	v := [3]float64{p[2][0] - p[0][0], p[2][1] - p[0][1], p[2][2] - p[0][2]}
	return [3]float64{
		u[1]*v[2] - u[2]*v[1],
		u[2]*v[0] - u[0]*v[2],
		u[0]*v[1] - u[1]*v[0],
	}
}

func lenSq(v [3]float64) float64 {
	return v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
}

func (d *decimator) collapse(a, b uint32, target [3]float64, shared []int) {
	d.mergeAttributes(a, b, target)
	d.pos[a] = target
	qb := d.q[b]
	d.q[a].add(&qb)

	for _, fi := range shared {
		d.faceAlive[fi] = false
		d.alive--
	}
	for _, fi := range d.vfaces[b] {
		if !d.faceAlive[fi] {
			continue
		}
		f := &d.faces[fi]
		for k := range f {
			if f[k] == b {
				f[k] = a
			}
		}
		if f[0] == f[1] || f[1] == f[2] || f[2] == f[0] {
			d.faceAlive[fi] = false
			d.alive--
			continue
		}
		d.vfaces[a] = append(d.vfaces[a], fi)
	}
	d.vfaces[b] = nil
	d.vertAlive[b] = false
	d.version[a]++
	d.version[b]++

	d.dropDuplicateFaces(a)

	for _, n := range d.neighbors(a) {
		heap.Push(&d.heap, d.makeItem(a, n))
	}
}

// dropDuplicateFaces removes faces around v that cover the same vertex
// set as another alive face, which the link condition cannot always
// prevent on non-manifold scan input.
func (d *decimator) dropDuplicateFaces(v uint32) {
	seen := make(map[[3]uint32]int, 8)
	for _, fi := range d.vfaces[v] {
		if !d.faceAlive[fi] {
			continue
		}
		f := d.faces[fi]
		key := sortedTriple(f)
		if _, dup := seen[key]; dup {
			d.faceAlive[fi] = false
			d.alive--
			continue
		}
		seen[key] = fi
	}
}

func sortedTriple(f [3]uint32) [3]uint32 {
	if f[0] > f[1] {
		f[0], f[1] = f[1], f[0]
	}
	if f[1] > f[2] {
		f[1], f[2] = f[2], f[1]
	}
	if f[0] > f[1] {
		f[0], f[1] = f[1], f[0]
	}
	return f
}

const inheritEps = 1e-20

func (d *decimator) mergeAttributes(a, b uint32, target [3]float64) {
	da := distSq(d.pos[a], target)
	db := distSq(d.pos[b], target)
	switch {
	case da <= inheritEps:
		// Target sits on a; a's attributes already apply.
	case db <= inheritEps:
		if d.hasN {
			d.normals[a] = d.normals[b]
		}
		if d.hasUV {
			d.uvs[a] = d.uvs[b]
		}
		if d.hasC {
			d.colors[a] = d.colors[b]
		}
	default:
		if d.hasN {
			n := d.normals[a]
			n.Add(&d.normals[b])
			n.Normalize()
			d.normals[a] = n
		}
		if d.hasUV {
			d.uvs[a] = vec2.T{
				(d.uvs[a][0] + d.uvs[b][0]) / 2,
				(d.uvs[a][1] + d.uvs[b][1]) / 2,
			}
		}
		if d.hasC {
			d.colors[a] = [3]byte{
				byte((int(d.colors[a][0]) + int(d.colors[b][0])) / 2),
				byte((int(d.colors[a][1]) + int(d.colors[b][1])) / 2),
				byte((int(d.colors[a][2]) + int(d.colors[b][2])) / 2),
			}
		}
	}
}

func distSq(p, q [3]float64) float64 {
	dx := p[0] - q[0]
	dy := p[1] - q[1]
	dz := p[2] - q[2]
	return dx*dx + dy*dy + dz*dz
}

// compact rebuilds a mesh from the surviving faces, dropping orphaned
// vertices and remapping indices in face order.
func (d *decimator) compact(src *Mesh) *Mesh {
	out := NewMesh()
	remap := make(map[uint32]uint32, len(d.pos))
	for fi, f := range d.faces {
		if !d.faceAlive[fi] {
			continue
		}
		var nf [3]uint32
		for k, v := range f {
			nv, ok := remap[v]
			if !ok {
				nv = uint32(len(out.Vertices))
				remap[v] = nv
				p := d.pos[v]
				out.Vertices = append(out.Vertices, vec3.T{float32(p[0]), float32(p[1]), float32(p[2])})
				if d.hasN {
					out.Normals = append(out.Normals, d.normals[v])
				}
				if d.hasUV {
					out.TexCoords = append(out.TexCoords, d.uvs[v])
				}
				if d.hasC {
					out.Colors = append(out.Colors, d.colors[v])
				}
			}
			nf[k] = nv
		}
		out.Faces = append(out.Faces, nf)
	}
	if src.Texture != nil {
		out.Texture = src.Texture.Clone()
	}
	return out
}
