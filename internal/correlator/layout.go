package correlator

import (
	"math"
	"math/rand/v2"
)

// LayoutOptions configure the force-directed layout.
type LayoutOptions struct {
	// K is the optimal distance between nodes.
	K float64
	// Iterations is the number of simulation steps.
	Iterations int
	// Seed makes initial positions reproducible.
	Seed uint64
}

// DefaultLayoutOptions returns the layout settings used by visualizations.
func DefaultLayoutOptions() LayoutOptions {
	return LayoutOptions{K: 2, Iterations: 50, Seed: 42}
}

// Point is a 2D position.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const minDistance = 0.01

// Layout places the graph's nodes with the Fruchterman-Reingold algorithm and
// returns one position per node, indexed like Graph.Nodes. Positions are
// centered on the origin and scaled so the largest coordinate is 1. Edge
// direction and multiplicity are ignored. The result only depends on the graph
// and the options.
func Layout(g *Graph, opts LayoutOptions) []Point {
	n := g.NodeCount()
	switch n {
	case 0:
		return nil
	case 1:
		return []Point{{}}
	}
	if opts.K <= 0 {
		opts.K = 1 / math.Sqrt(float64(n))
	}
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultLayoutOptions().Iterations
	}

	adj := make([][]bool, n)
	for i := range adj {
		adj[i] = make([]bool, n)
	}
	for _, e := range g.Edges() {
		if e.From != e.To {
			adj[e.From][e.To] = true
			adj[e.To][e.From] = true
		}
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed)) //nolint: gosec
	pos := make([]Point, n)
	for i := range pos {
		pos[i] = Point{X: rng.Float64(), Y: rng.Float64()}
	}

	temp := 0.1 * spread(pos)
	cooling := temp / float64(opts.Iterations+1)
	k2 := opts.K * opts.K
	disp := make([]Point, n)

	for it := 0; it < opts.Iterations; it++ {
		for i := range disp {
			disp[i] = Point{}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				dx, dy := pos[i].X-pos[j].X, pos[i].Y-pos[j].Y
				dist := math.Max(math.Hypot(dx, dy), minDistance)
				force := k2 / (dist * dist)
				if adj[i][j] {
					force -= dist / opts.K
				}
				disp[i].X += dx * force
				disp[i].Y += dy * force
			}
		}
		for i := range pos {
			length := math.Max(math.Hypot(disp[i].X, disp[i].Y), minDistance)
			pos[i].X += disp[i].X * temp / length
			pos[i].Y += disp[i].Y * temp / length
		}
		temp -= cooling
	}

	return rescale(pos)
}

// spread returns the largest extent of the positions along either axis.
func spread(pos []Point) float64 {
	minX, maxX := pos[0].X, pos[0].X
	minY, maxY := pos[0].Y, pos[0].Y
	for _, p := range pos[1:] {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	return math.Max(maxX-minX, maxY-minY)
}

// rescale centers the positions on the origin and scales them into [-1, 1].
func rescale(pos []Point) []Point {
	var cx, cy float64
	for _, p := range pos {
		cx += p.X
		cy += p.Y
	}
	cx /= float64(len(pos))
	cy /= float64(len(pos))

	limit := 0.0
	for i := range pos {
		pos[i].X -= cx
		pos[i].Y -= cy
		limit = math.Max(limit, math.Max(math.Abs(pos[i].X), math.Abs(pos[i].Y)))
	}
	if limit == 0 {
		return pos
	}
	for i := range pos {
		pos[i].X /= limit
		pos[i].Y /= limit
	}

	return pos
}
