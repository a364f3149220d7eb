package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidDialogueAct is returned for observed acts outside the user vocabulary.
var ErrInvalidDialogueAct = errors.New("invalid dialogue act")

// DialogueAct is the closed vocabulary of dialogue act tags exchanged between
// the user, the engines and the system.
type DialogueAct string

// User dialogue acts.
const (
	UserInform DialogueAct = "inform"
	UserAffirm DialogueAct = "affirm"
	UserNegate DialogueAct = "negate"
)

// System dialogue acts.
const (
	SysGreeting DialogueAct = "greeting"
	SysInform   DialogueAct = "inform"
	SysRequest  DialogueAct = "request"
	SysConfirm  DialogueAct = "confirm"
	SysQuery    DialogueAct = "query"
	SysExecute  DialogueAct = "execute"
	SysBye      DialogueAct = "bye"
)

// Well-known ontology slots the manager and renderer address directly.
const (
	SlotIntent      = "intent"
	SlotObject      = "object"
	SlotObjectMask  = "object_mask_str"
	SlotAttribute   = "attribute"
	SlotAdjustValue = "adjust_value"
)

// MaskConfidenceThreshold is the minimum confidence for the mask hypothesis to
// be reported by the companion inform act.
const MaskConfidenceThreshold = 0.5

func ValidUserAct(s string) bool {
	switch DialogueAct(s) {
	case UserInform, UserAffirm, UserNegate:
		return true
	}
	return false
}

func ValidSystemAct(s string) bool {
	switch DialogueAct(s) {
	case SysGreeting, SysInform, SysRequest, SysConfirm, SysQuery, SysExecute, SysBye:
		return true
	}
	return false
}

// ConfirmResponseActs are the user acts that answer a system confirm.
func ConfirmResponseActs() []DialogueAct {
	return []DialogueAct{UserAffirm, UserNegate}
}

// IntentActs are the user acts that carry image-editing content.
func IntentActs() []DialogueAct {
	return []DialogueAct{UserInform}
}

// Act is a single dialogue act record with its slot descriptors.
type Act struct {
	DialogueAct DialogueAct  `json:"dialogue_act"`
	Intent      string       `json:"intent,omitempty"`
	Slots       []SlotAction `json:"slots"`
}

// Copy returns an act whose slot sequence is independent of a.
func (a Act) Copy() Act {
	return Act{
		DialogueAct: a.DialogueAct,
		Intent:      a.Intent,
		Slots:       copySlots(a.Slots),
	}
}

// FindSlot returns the first descriptor for the named slot.
func FindSlot(slots []SlotAction, name string) (SlotAction, bool) {
	for _, s := range slots {
		if s.Slot == name {
			return s, true
		}
	}
	return SlotAction{}, false
}

// Observation is a partial per-turn observation. Nil fields are keys that
// were not supplied; Merge only overwrites supplied keys.
type Observation struct {
	UserActs            *[]Act `json:"user_acts,omitempty"`
	ImageEditEngineActs *[]Act `json:"imageeditengine_acts,omitempty"`
	VisionEngineActs    *[]Act `json:"visionengine_acts,omitempty"`
	EpisodeDone         *bool  `json:"episode_done,omitempty"`
}

// Merge overwrites the keys present in other. It is shallow: a supplied act
// list replaces the buffered one instead of being appended to it.
func (o *Observation) Merge(other Observation) {
	if other.UserActs != nil {
		o.UserActs = copyActs(*other.UserActs)
	}
	if other.ImageEditEngineActs != nil {
		o.ImageEditEngineActs = copyActs(*other.ImageEditEngineActs)
	}
	if other.VisionEngineActs != nil {
		o.VisionEngineActs = copyActs(*other.VisionEngineActs)
	}
	if other.EpisodeDone != nil {
		done := *other.EpisodeDone
		o.EpisodeDone = &done
	}
}

// OrderedActs concatenates image-edit engine, user and vision engine acts in
// that precedence order.
func (o Observation) OrderedActs() []Act {
	var acts []Act
	for _, src := range []*[]Act{o.ImageEditEngineActs, o.UserActs, o.VisionEngineActs} {
		if src != nil {
			acts = append(acts, *src...)
		}
	}
	return acts
}

func (o Observation) Done() bool {
	return o.EpisodeDone != nil && *o.EpisodeDone
}

// Validate checks that every observed act uses a user dialogue act. Engines
// report through inform acts as well.
func (o Observation) Validate() error {
	for _, src := range []*[]Act{o.ImageEditEngineActs, o.UserActs, o.VisionEngineActs} {
		if src == nil {
			continue
		}
		for _, a := range *src {
			if !ValidUserAct(string(a.DialogueAct)) {
				return fmt.Errorf("%w: %q", ErrInvalidDialogueAct, a.DialogueAct)
			}
		}
	}
	return nil
}

func (o Observation) Empty() bool {
	return o.UserActs == nil && o.ImageEditEngineActs == nil && o.VisionEngineActs == nil && o.EpisodeDone == nil
}

// Response is the bundle produced by one completed turn.
type Response struct {
	SystemActs      []Act  `json:"system_acts"`
	SystemUtterance string `json:"system_utterance"`
	EpisodeDone     bool   `json:"episode_done"`
}

func copyActs(acts []Act) *[]Act {
	out := make([]Act, len(acts))
	for i, a := range acts {
		out[i] = a.Copy()
	}
	return &out
}
