package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func supportSet(formats ...vk.Format) func(vk.Format) bool {
	set := map[vk.Format]bool{}
	for _, f := range formats {
		set[f] = true
	}
	return func(f vk.Format) bool { return set[f] }
}

func TestSelectDepthFormatPrefersPackedDepth(t *testing.T) {
	supported := supportSet(vk.FormatD32Sfloat, vk.FormatD24UnormS8Uint)
	format, ok := selectDepthFormat(depthFormatCandidates, supported)
	if !ok || format != vk.FormatD24UnormS8Uint {
		t.Fatalf("got %v ok=%v, want D24S8", format, ok)
	}
}

func TestSelectDepthFormatFallsThrough(t *testing.T) {
	format, ok := selectDepthFormat(depthFormatCandidates, supportSet(vk.FormatD32Sfloat))
	if !ok || format != vk.FormatD32Sfloat {
		t.Fatalf("got %v ok=%v, want D32", format, ok)
	}
}

func TestSelectDepthFormatDeterministic(t *testing.T) {
	supported := supportSet(vk.FormatD32SfloatS8Uint, vk.FormatD32Sfloat)
	first, _ := selectDepthFormat(depthFormatCandidates, supported)
	for i := 0; i < 8; i++ {
		again, _ := selectDepthFormat(depthFormatCandidates, supported)
		if again != first {
			t.Fatalf("selection changed from %v to %v", first, again)
		}
	}
}

func TestSelectDepthFormatNoneSupported(t *testing.T) {
	format, ok := selectDepthFormat(depthFormatCandidates, func(vk.Format) bool { return false })
	if ok || format != vk.FormatUndefined {
		t.Fatalf("got %v ok=%v, want undefined", format, ok)
	}
}

func TestHasStencil(t *testing.T) {
	if !HasStencil(vk.FormatD24UnormS8Uint) || !HasStencil(vk.FormatD32SfloatS8Uint) {
		t.Error("combined formats must report a stencil aspect")
	}
	if HasStencil(vk.FormatD32Sfloat) {
		t.Error("pure depth format must not report a stencil aspect")
	}
}
