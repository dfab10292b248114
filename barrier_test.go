package framegraph

import (
	"testing"

	"github.com/gogpu/gputypes"
)

func findBarrier(barriers []Barrier, slot int) (Barrier, bool) {
	for _, b := range barriers {
		if b.Slot == slot {
			return b, true
		}
	}
	return Barrier{}, false
}

func TestBarrierFirstUseFromUndefined(t *testing.T) {
	b := NewBuilder()
	img, _ := b.CreateImage(testImageSpec("color"))
	b.AddNode("draw", nil,
		[]ResourceUsage{Write(img, StateRenderTarget, StageFragment)}, nopPass)

	plan := compileGraph(t, b)
	slot, _ := plan.SlotOf(img)
	barriers := plan.StepBarriers(0)
	br, ok := findBarrier(barriers, slot)
	if !ok {
		t.Fatal("expected a first-use barrier")
	}
	if br.From != StateUndefined || br.To != StateRenderTarget {
		t.Errorf("expected Undefined->RenderTarget, got %s->%s", br.From, br.To)
	}
	if br.DstStage != StageFragment {
		t.Errorf("expected DstStage Fragment, got %v", br.DstStage)
	}
}

func TestBarrierChainContinuity(t *testing.T) {
	// Every barrier's From must equal the state the previous barrier on
	// the same slot left behind.
	b := NewBuilder()
	img, _ := b.CreateImage(testImageSpec("color"))
	b.AddNode("draw", nil,
		[]ResourceUsage{Write(img, StateRenderTarget, StageFragment)}, nopPass)
	b.AddNode("sample",
		[]ResourceUsage{Read(img, StateShaderResource, StageFragment)},
		nil, nopPass)
	b.AddNode("redraw", nil,
		[]ResourceUsage{Write(img, StateRenderTarget, StageFragment)}, nopPass)

	plan := compileGraph(t, b)
	slot, _ := plan.SlotOf(img)

	cur := StateUndefined
	for i := range plan.Order() {
		br, ok := findBarrier(plan.StepBarriers(i), slot)
		if !ok {
			continue
		}
		if br.From != cur {
			t.Errorf("step %d: barrier From %s does not chain from %s", i, br.From, cur)
		}
		cur = br.To
	}
	if cur != StateRenderTarget {
		t.Errorf("expected final state RenderTarget, got %s", cur)
	}
}

func TestBarrierReadAfterReadElided(t *testing.T) {
	b := NewBuilder()
	img, _ := b.CreateImage(testImageSpec("color"))
	b.AddNode("draw", nil,
		[]ResourceUsage{Write(img, StateRenderTarget, StageFragment)}, nopPass)
	b.AddNode("sample_a",
		[]ResourceUsage{Read(img, StateShaderResource, StageFragment)},
		nil, nopPass)
	b.AddNode("sample_b",
		[]ResourceUsage{Read(img, StateShaderResource, StageCompute)},
		nil, nopPass)

	plan := compileGraph(t, b)
	slot, _ := plan.SlotOf(img)

	if _, ok := findBarrier(plan.StepBarriers(1), slot); !ok {
		t.Error("first read after write needs a barrier")
	}
	if br, ok := findBarrier(plan.StepBarriers(2), slot); ok {
		t.Errorf("second compatible read must not emit a barrier, got %s->%s", br.From, br.To)
	}
}

func TestBarrierWriteWaitsForAllReaders(t *testing.T) {
	b := NewBuilder()
	img, _ := b.CreateImage(testImageSpec("color"))
	b.AddNode("draw", nil,
		[]ResourceUsage{Write(img, StateRenderTarget, StageFragment)}, nopPass)
	b.AddNode("sample_frag",
		[]ResourceUsage{Read(img, StateShaderResource, StageFragment)},
		nil, nopPass)
	b.AddNode("sample_comp",
		[]ResourceUsage{Read(img, StateShaderResource, StageCompute)},
		nil, nopPass)
	b.AddNode("redraw", nil,
		[]ResourceUsage{Write(img, StateRenderTarget, StageFragment)}, nopPass)

	plan := compileGraph(t, b)
	slot, _ := plan.SlotOf(img)

	br, ok := findBarrier(plan.StepBarriers(3), slot)
	if !ok {
		t.Fatal("write after reads needs a barrier")
	}
	want := StageFragment | StageCompute
	if br.SrcStage != want {
		t.Errorf("expected SrcStage %v covering all readers, got %v", want, br.SrcStage)
	}
}

func TestBarrierWriteAfterWriteSerialized(t *testing.T) {
	// A storage image written then read-modify-written in the same state:
	// the hazard needs a barrier even though From == To.
	spec := testImageSpec("accum")
	spec.Usage |= gputypes.TextureUsageStorageBinding

	b := NewBuilder()
	img, _ := b.CreateImage(spec)
	b.AddNode("init", nil,
		[]ResourceUsage{Write(img, StateUnorderedAccess, StageCompute)}, nopPass)
	b.AddNode("accumulate", nil,
		[]ResourceUsage{{Resource: img, Access: AccessReadWrite,
			State: StateUnorderedAccess, Stage: StageCompute}}, nopPass)

	plan := compileGraph(t, b)
	slot, _ := plan.SlotOf(img)

	br, ok := findBarrier(plan.StepBarriers(1), slot)
	if !ok {
		t.Fatal("write-after-write hazard needs a barrier")
	}
	if br.From != StateUnorderedAccess || br.To != StateUnorderedAccess {
		t.Errorf("expected execution-only UnorderedAccess->UnorderedAccess, got %s->%s",
			br.From, br.To)
	}
}

// TestSwapchainScenario is the canonical presentation frame: one pass
// draws into a transient, the result is blitted into the external
// swapchain image, and the swapchain is returned to its Present state.
func TestSwapchainScenario(t *testing.T) {
	b := NewBuilder()
	swapSpec := testImageSpec("swapchain")
	swapSpec.Usage |= gputypes.TextureUsageCopyDst
	swap, err := b.AddExternalImage(NewImageHandle(0, 7), swapSpec,
		StatePresent, StatePresent)
	if err != nil {
		t.Fatalf("AddExternalImage failed: %v", err)
	}
	color, _ := b.CreateImage(testImageSpec("color"))
	x, err := b.AddNode("x", nil,
		[]ResourceUsage{Write(color, StateRenderTarget, StageFragment)}, nopPass)
	if err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if err := b.WriteExternalImage(swap, color); err != nil {
		t.Fatalf("WriteExternalImage failed: %v", err)
	}

	plan := compileGraph(t, b)

	order := plan.Order()
	if len(order) != 1 || order[0] != x {
		t.Fatalf("expected schedule [x], got %v", order)
	}
	if plan.TransientSlotCount() != 1 {
		t.Errorf("expected exactly 1 transient slot, got %d", plan.TransientSlotCount())
	}

	swapSlot, _ := plan.SlotOf(swap)
	colorSlot, _ := plan.SlotOf(color)

	// Epilogue: producer becomes readable, swapchain leaves Present for
	// the copy.
	epi := plan.EpilogueBarriers()
	srcBr, ok := findBarrier(epi, colorSlot)
	if !ok {
		t.Fatal("expected producer transition before the blit")
	}
	if srcBr.From != StateRenderTarget || srcBr.To != StateCopySrc {
		t.Errorf("producer: expected RenderTarget->CopySrc, got %s->%s", srcBr.From, srcBr.To)
	}
	dstBr, ok := findBarrier(epi, swapSlot)
	if !ok {
		t.Fatal("expected swapchain transition before the blit")
	}
	if dstBr.From != StatePresent || dstBr.To != StateCopyDst {
		t.Errorf("swapchain: expected Present->CopyDst, got %s->%s", dstBr.From, dstBr.To)
	}

	// Finals: the swapchain is handed back in Present, exactly once.
	finals := plan.FinalBarriers()
	if len(finals) != 1 {
		t.Fatalf("expected exactly 1 final transition, got %d", len(finals))
	}
	if finals[0].Slot != swapSlot || finals[0].To != StatePresent {
		t.Errorf("expected swapchain final ->Present, got slot %d ->%s",
			finals[0].Slot, finals[0].To)
	}
	if finals[0].From != StateCopyDst {
		t.Errorf("expected final From CopyDst, got %s", finals[0].From)
	}
}

func TestEmptyGraphCompiles(t *testing.T) {
	b := NewBuilder()
	plan := compileGraph(t, b)
	if !plan.Empty() {
		t.Error("empty graph should compile to an empty plan")
	}
	if plan.SlotCount() != 0 {
		t.Errorf("expected 0 slots, got %d", plan.SlotCount())
	}
}

func TestExternalUntouchedKeepsExitState(t *testing.T) {
	// An external image declared but never used by any node still gets its
	// exit contract honored; entry == exit means no transition at all.
	b := NewBuilder()
	swapSpec := testImageSpec("swapchain")
	swap, err := b.AddExternalImage(NewImageHandle(0, 1), swapSpec,
		StatePresent, StatePresent)
	if err != nil {
		t.Fatalf("AddExternalImage failed: %v", err)
	}
	img, _ := b.CreateImage(testImageSpec("color"))
	b.AddNode("draw", nil,
		[]ResourceUsage{Write(img, StateRenderTarget, StageFragment)}, nopPass)

	plan := compileGraph(t, b)
	if got := len(plan.FinalBarriers()); got != 0 {
		t.Errorf("expected no final transitions, got %d", got)
	}
	if _, ok := plan.SlotOf(swap); !ok {
		t.Error("external resource should keep its pinned slot")
	}
}
