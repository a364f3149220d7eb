package nlg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Harshitk-cp/imadial/internal/domain"
)

var (
	ErrConfirmSlotCount      = errors.New("confirm act must carry exactly one slot")
	ErrRequestSlotMissing    = errors.New("request act carries no slot")
	ErrExecuteSlotMissing    = errors.New("execute act is missing a required slot")
	ErrAdjustValueNotNumeric = errors.New("adjust_value is not numeric")
)

// SlotReader exposes the best current value of a slot.
type SlotReader interface {
	BestValue(slot string) (any, bool)
}

// Renderer turns an ordered list of system acts into one utterance.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render emits at most one fragment per act, in act order, joined by a
// single space. Tags with no template, including inform, contribute nothing.
func (r *Renderer) Render(acts []domain.Act, slots SlotReader) (string, error) {
	var parts []string
	for _, act := range acts {
		frag, err := r.fragment(act, slots)
		if err != nil {
			return "", err
		}
		if frag != "" {
			parts = append(parts, frag)
		}
	}
	return strings.Join(parts, " "), nil
}

func (r *Renderer) fragment(act domain.Act, slots SlotReader) (string, error) {
	switch act.DialogueAct {
	case domain.SysGreeting:
		return "Hi! This is an image editing chatbot. How may I help you?", nil

	case domain.SysRequest:
		if len(act.Slots) == 0 {
			return "", ErrRequestSlotMissing
		}
		switch name := act.Slots[0].Slot; name {
		case domain.SlotIntent:
			return "What would you like to do?", nil
		case domain.SlotAdjustValue:
			return "What value (-100 to 100) would you like to adjust?", nil
		case domain.SlotAttribute:
			return "What attribute (brightness, contrast, hue, saturation, lightness) would you like to adjust?", nil
		case domain.SlotObject:
			return "What object would you like to adjust? Please describe the object as a whole (e.g., the man) instead of a detail (e.g., his eyebrows)", nil
		default:
			return fmt.Sprintf("What %s would you like to adjust?", name), nil
		}

	case domain.SysConfirm:
		if len(act.Slots) != 1 {
			return "", fmt.Errorf("%w: got %d", ErrConfirmSlotCount, len(act.Slots))
		}
		s := act.Slots[0]
		var utt string
		if s.Slot == domain.SlotObjectMask {
			utt = fmt.Sprintf("I detected %q in your sentences. Is the current region (green) in the image correct?", bestString(slots, domain.SlotObject))
		} else {
			utt = fmt.Sprintf("Is your %s %s?", s.Slot, domain.ValueString(s.Value))
		}
		return utt + " (yes/no)", nil

	case domain.SysQuery:
		var b strings.Builder
		for _, s := range act.Slots {
			if s.Slot == domain.SlotObject {
				fmt.Fprintf(&b, "Sending %q to vision engine.", domain.ValueString(s.Value))
			}
		}
		return b.String(), nil

	case domain.SysExecute:
		attr, ok := domain.FindSlot(act.Slots, domain.SlotAttribute)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrExecuteSlotMissing, domain.SlotAttribute)
		}
		adj, ok := domain.FindSlot(act.Slots, domain.SlotAdjustValue)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrExecuteSlotMissing, domain.SlotAdjustValue)
		}
		delta, err := signedValue(adj.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Execute image edit. (%s, %s %s)", bestString(slots, domain.SlotObject), domain.ValueString(attr.Value), delta), nil

	case domain.SysBye:
		return "Goodbye! See you next time!", nil
	}
	return "", nil
}

// signedValue formats a numeric adjustment with an explicit sign for
// non-negative values.
func signedValue(v any) (string, error) {
	var f float64
	switch n := domain.NormalizeValue(v).(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrAdjustValueNotNumeric, n)
		}
		f = parsed
	default:
		return "", fmt.Errorf("%w: %v", ErrAdjustValueNotNumeric, v)
	}
	if f == 0 {
		f = 0 // drop negative zero
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if f < 0 {
		return s, nil
	}
	return "+" + s, nil
}

func bestString(slots SlotReader, name string) string {
	if slots == nil {
		return ""
	}
	v, ok := slots.BestValue(name)
	if !ok {
		return ""
	}
	return domain.ValueString(v)
}
