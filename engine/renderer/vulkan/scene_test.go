package vulkan

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestCubeVertexCount(t *testing.T) {
	vertices := CubeVertices()
	if len(vertices) != 36 {
		t.Fatalf("got %d vertices, want 36", len(vertices))
	}
}

func TestCubeFaceColors(t *testing.T) {
	vertices := CubeVertices()
	wantColors := []mgl32.Vec3{
		{1.0, 0.2, 0.2},
		{0.2, 1.0, 0.2},
		{0.2, 0.2, 1.0},
		{1.0, 1.0, 0.2},
		{1.0, 0.2, 1.0},
		{0.2, 1.0, 1.0},
	}
	for face := 0; face < 6; face++ {
		for i := 0; i < 6; i++ {
			v := vertices[face*6+i]
			if v.Color != wantColors[face] {
				t.Fatalf("face %d vertex %d has color %v, want %v", face, i, v.Color, wantColors[face])
			}
		}
	}
}

func TestCubeFacesLieOnTheirPlane(t *testing.T) {
	vertices := CubeVertices()
	type plane struct {
		axis  int
		value float32
	}
	// Face order is +X, -X, +Y, -Y, +Z, -Z.
	planes := []plane{
		{0, +0.5}, {0, -0.5},
		{1, +0.5}, {1, -0.5},
		{2, +0.5}, {2, -0.5},
	}
	for face, p := range planes {
		for i := 0; i < 6; i++ {
			v := vertices[face*6+i]
			if v.Position[p.axis] != p.value {
				t.Fatalf("face %d vertex %d at %v, want axis %d pinned to %v", face, i, v.Position, p.axis, p.value)
			}
		}
	}
}

func TestCubeTrianglesWindCounterClockwise(t *testing.T) {
	vertices := CubeVertices()
	outward := []mgl32.Vec3{
		{+1, 0, 0}, {-1, 0, 0},
		{0, +1, 0}, {0, -1, 0},
		{0, 0, +1}, {0, 0, -1},
	}
	for tri := 0; tri < len(vertices)/3; tri++ {
		a := vertices[tri*3+0].Position
		b := vertices[tri*3+1].Position
		c := vertices[tri*3+2].Position
		normal := b.Sub(a).Cross(c.Sub(a))
		if normal.Dot(outward[tri/2]) <= 0 {
			t.Fatalf("triangle %d has normal %v, not outward %v", tri, normal, outward[tri/2])
		}
	}
}

func TestCubeVerticesInUnitBox(t *testing.T) {
	for i, v := range CubeVertices() {
		for axis := 0; axis < 3; axis++ {
			if c := v.Position[axis]; c != 0.5 && c != -0.5 {
				t.Fatalf("vertex %d coordinate %d = %v, want +-0.5", i, axis, c)
			}
		}
	}
}

// transform applies the MVP to a point and perspective-divides.
func transform(mvp mgl32.Mat4, p mgl32.Vec3) (mgl32.Vec3, float32) {
	clip := mvp.Mul4x1(p.Vec4(1))
	w := clip.W()
	return mgl32.Vec3{clip.X() / w, clip.Y() / w, clip.Z() / w}, w
}

func TestSceneMVPKeepsCubeVisible(t *testing.T) {
	// Over a couple minutes of animation at various aspects the cube must
	// stay inside the clip volume and in front of the camera.
	sizes := [][2]uint32{{1280, 720}, {640, 480}, {720, 720}}
	for _, size := range sizes {
		for tick := 0; tick < 120; tick++ {
			elapsed := float64(tick)
			mvp := SceneMVP(elapsed, size[0], size[1])
			for _, v := range CubeVertices() {
				ndc, w := transform(mvp, v.Position)
				if w <= 0 {
					t.Fatalf("t=%v size=%v vertex %v behind the camera (w=%v)", elapsed, size, v.Position, w)
				}
				if math.Abs(float64(ndc.X())) > 1 || math.Abs(float64(ndc.Y())) > 1 {
					t.Fatalf("t=%v size=%v vertex %v left the viewport: ndc=%v", elapsed, size, v.Position, ndc)
				}
				if ndc.Z() < 0 || ndc.Z() > 1 {
					t.Fatalf("t=%v size=%v vertex %v outside the depth range: %v", elapsed, size, v.Position, ndc.Z())
				}
			}
		}
	}
}

func TestSceneMVPAnimates(t *testing.T) {
	a := SceneMVP(0, 1280, 720)
	b := SceneMVP(1, 1280, 720)
	if a == b {
		t.Fatal("transform did not change over time")
	}
}

func TestSceneMVPZeroHeight(t *testing.T) {
	// A degenerate extent must not produce NaNs.
	mvp := SceneMVP(1, 1280, 0)
	for i := 0; i < 16; i++ {
		if math.IsNaN(float64(mvp[i])) || math.IsInf(float64(mvp[i]), 0) {
			t.Fatalf("element %d is %v", i, mvp[i])
		}
	}
}

func TestSceneMVPFlipsY(t *testing.T) {
	// A point above the cube's center in world space must land with a
	// smaller framebuffer Y than one below it, since Vulkan's clip Y
	// points down but the camera's up vector is +Z.
	mvp := SceneMVP(0, 1280, 720)
	top, _ := transform(mvp, mgl32.Vec3{0, 0, 0.4})
	bottom, _ := transform(mvp, mgl32.Vec3{0, 0, -0.4})
	if top.Y() >= bottom.Y() {
		t.Fatalf("top ndc.Y=%v not above bottom ndc.Y=%v", top.Y(), bottom.Y())
	}
}
