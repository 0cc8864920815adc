package features

import "image"

// grid is a float view over a grayscale image.
type grid struct {
	w, h int
	pix  []float64
}

func newGrid(img *image.Gray) *grid {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	g := &grid{w: w, h: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w]
		for x, p := range row {
			g.pix[y*w+x] = float64(p)
		}
	}
	return g
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// reflect101 mirrors an out-of-range index without repeating the edge (dcb|abcd|cba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}

func (g *grid) replicate(x, y int) float64 {
	return g.pix[clamp(y, 0, g.h-1)*g.w+clamp(x, 0, g.w-1)]
}

func (g *grid) reflect(x, y int) float64 {
	return g.pix[reflect101(y, g.h)*g.w+reflect101(x, g.w)]
}

// laplacian applies the 4-neighbour aperture with reflect-101 borders.
func laplacian(g *grid) []float64 {
	out := make([]float64, len(g.pix))
	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			out[y*g.w+x] = g.reflect(x-1, y) + g.reflect(x+1, y) +
				g.reflect(x, y-1) + g.reflect(x, y+1) - 4*g.pix[y*g.w+x]
		}
	}
	return out
}

// otsu returns the threshold maximising between-class variance.
func otsu(pix []uint8) int {
	var hist [256]float64
	for _, p := range pix {
		hist[p]++
	}
	total := float64(len(pix))

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i) * c
	}

	var (
		sumB, wB float64
		best     float64 = -1
		thresh   int
	)
	for t := 0; t < 256; t++ {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t) * hist[t]
		mB := sumB / wB
		mF := (sumAll - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			thresh = t
		}
	}
	return thresh
}

const (
	tan22_5 = 0.41421356237
	tan67_5 = 2.41421356237
)

// canny runs Sobel gradients (L1 magnitude), non-maximum suppression and
// hysteresis between low and high. It returns the edge mask.
func canny(g *grid, low, high float64) []bool {
	n := g.w * g.h
	dx := make([]float64, n)
	dy := make([]float64, n)
	mag := make([]float64, n)

	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			gx := g.replicate(x+1, y-1) + 2*g.replicate(x+1, y) + g.replicate(x+1, y+1) -
				g.replicate(x-1, y-1) - 2*g.replicate(x-1, y) - g.replicate(x-1, y+1)
			gy := g.replicate(x-1, y+1) + 2*g.replicate(x, y+1) + g.replicate(x+1, y+1) -
				g.replicate(x-1, y-1) - 2*g.replicate(x, y-1) - g.replicate(x+1, y-1)
			i := y*g.w + x
			dx[i], dy[i] = gx, gy
			mag[i] = abs(gx) + abs(gy)
		}
	}

	at := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= g.w || y >= g.h {
			return 0
		}
		return mag[y*g.w+x]
	}

	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, n)
	stack := make([]int, 0, n/8)

	for y := 0; y < g.h; y++ {
		for x := 0; x < g.w; x++ {
			i := y*g.w + x
			m := mag[i]
			if m <= low {
				continue
			}
			ax, ay := abs(dx[i]), abs(dy[i])
			var isMax bool
			switch {
			case ay <= ax*tan22_5:
				isMax = m > at(x-1, y) && m >= at(x+1, y)
			case ay > ax*tan67_5:
				isMax = m > at(x, y-1) && m >= at(x, y+1)
			default:
				s := -1
				if (dx[i] < 0) == (dy[i] < 0) {
					s = 1
				}
				isMax = m > at(x-s, y-1) && m > at(x+s, y+1)
			}
			if !isMax {
				continue
			}
			if m > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	edges := make([]bool, n)
	for _, i := range stack {
		edges[i] = true
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%g.w, i/g.w
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				nx, ny := x+ox, y+oy
				if nx < 0 || ny < 0 || nx >= g.w || ny >= g.h {
					continue
				}
				j := ny*g.w + nx
				if state[j] == weak && !edges[j] {
					edges[j] = true
					stack = append(stack, j)
				}
			}
		}
	}
	return edges
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
