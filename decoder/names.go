package decoder

import (
	"fmt"
	"strconv"
	"strings"
)

// The precompiled engine exposes a flat named-tensor contract. Every cache
// slot is declared as an explicit input and output, tokens and encoder
// features are plain inputs, and the logits are a plain output. This file is
// the single owner of that naming scheme; nothing else formats slot names.
const (
	// TokensName is the engine input carrying the current token batch.
	TokensName = "in_tokens"

	// FeaturesName is the engine input carrying the encoder features.
	FeaturesName = "in_audio_features"

	// LogitsName is the engine output carrying next-token logits.
	LogitsName = "logits"

	inPrefix  = "in_"
	outPrefix = "out_"
)

// InputName returns the engine input name for a cache slot, e.g.
// "in_self_key_3"
func InputName(slot Slot) string {
	return inPrefix + slot.String()
}

// OutputName returns the engine output name for a cache slot, e.g.
// "out_self_key_3"
func OutputName(slot Slot) string {
	return outPrefix + slot.String()
}

// ParseOutputName maps an engine output name back into slot identifier
// space. Returns false for names that are not cache slots (such as logits).
func ParseOutputName(name string) (Slot, bool) {
	body, ok := strings.CutPrefix(name, outPrefix)
	if !ok {
		return Slot{}, false
	}
	return parseSlot(body)
}

// ParseInputName maps an engine input name back into slot identifier space
func ParseInputName(name string) (Slot, bool) {
	body, ok := strings.CutPrefix(name, inPrefix)
	if !ok {
		return Slot{}, false
	}
	return parseSlot(body)
}

func parseSlot(body string) (Slot, bool) {
	sep := strings.LastIndex(body, "_")
	if sep < 0 {
		return Slot{}, false
	}
	layer, err := strconv.Atoi(body[sep+1:])
	if err != nil || layer < 0 {
		return Slot{}, false
	}

	for _, kind := range Kinds() {
		if body[:sep] == kind.String() {
			return Slot{Layer: layer, Kind: kind}, true
		}
	}
	return Slot{}, false
}

// EngineInputNames lists every declared engine input, in the order the
// graph was exported with: tokens, features, then all cache slots by layer
// and kind.
func EngineInputNames(numLayers int) []string {
	names := []string{TokensName, FeaturesName}
	for _, slot := range allSlots(numLayers) {
		names = append(names, InputName(slot))
	}
	return names
}

// EngineOutputNames lists every declared engine output: logits, then all
// updated cache slots.
func EngineOutputNames(numLayers int) []string {
	names := []string{LogitsName}
	for _, slot := range allSlots(numLayers) {
		names = append(names, OutputName(slot))
	}
	return names
}

func allSlots(numLayers int) []Slot {
	if numLayers <= 0 {
		panic(fmt.Sprintf("invalid layer count %d", numLayers))
	}
	slots := make([]Slot, 0, numLayers*4)
	for layer := 0; layer < numLayers; layer++ {
		for _, kind := range Kinds() {
			slots = append(slots, Slot{Layer: layer, Kind: kind})
		}
	}
	return slots
}
