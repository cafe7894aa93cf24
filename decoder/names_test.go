package decoder

import "testing"

func TestSlotNameRoundTrip(t *testing.T) {
	for _, kind := range Kinds() {
		for _, layer := range []int{0, 3, 11} {
			slot := Slot{Layer: layer, Kind: kind}

			in := InputName(slot)
			parsed, ok := ParseInputName(in)
			if !ok || parsed != slot {
				t.Errorf("Input name %q did not round-trip: got %v, ok=%v", in, parsed, ok)
			}

			out := OutputName(slot)
			parsed, ok = ParseOutputName(out)
			if !ok || parsed != slot {
				t.Errorf("Output name %q did not round-trip: got %v, ok=%v", out, parsed, ok)
			}
		}
	}
}

func TestParseOutputNameRejectsNonSlots(t *testing.T) {
	for _, name := range []string{LogitsName, "out_", "out_bogus_0", "out_self_key_x", "in_self_key_0"} {
		if _, ok := ParseOutputName(name); ok {
			t.Errorf("Expected %q to be rejected", name)
		}
	}
}

func TestEngineNameSets(t *testing.T) {
	inputs := EngineInputNames(2)
	if len(inputs) != 2+2*4 {
		t.Fatalf("Expected 10 inputs for 2 layers, got %d", len(inputs))
	}
	if inputs[0] != TokensName || inputs[1] != FeaturesName {
		t.Errorf("Expected tokens and features first, got %v", inputs[:2])
	}

	outputs := EngineOutputNames(2)
	if len(outputs) != 1+2*4 {
		t.Fatalf("Expected 9 outputs for 2 layers, got %d", len(outputs))
	}
	if outputs[0] != LogitsName {
		t.Errorf("Expected logits first, got %q", outputs[0])
	}
}
