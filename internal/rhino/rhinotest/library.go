// Package rhinotest provides a scripted in-memory engine for testing code
// that drives rhino sessions without the native library.
package rhinotest

import (
	"sync"

	"github.com/nupi-ai/plugin-intent-local-rhino/internal/rhino"
)

// Operation names accepted by Library.Fail.
const (
	OpInit         = "init"
	OpContextInfo  = "context_info"
	OpProcess      = "process"
	OpIsUnderstood = "is_understood"
	OpGetIntent    = "get_intent"
	OpReset        = "reset"
	OpErrorStack   = "error_stack"
)

// DefaultContextInfo is a small coffee maker context.
const DefaultContextInfo = `context:
  expressions:
    orderBeverage:
      - "[i want, i'd like] (a) $size:size $beverage:beverage"
      - "(a) $numberOfShots:numberOfShots $beverage:beverage"
  slots:
    beverage:
      - americano
      - cappuccino
    numberOfShots:
      - single shot
      - double shot
    size:
      - small
      - medium
      - large
`

// Library is a rhino.Library whose behaviour is set through its fields.
// Fields must be set before the first session is opened.
type Library struct {
	FrameLen      int
	Rate          int
	VersionString string
	ContextYAML   string

	// FinalizeAfter is the number of frames after which Process reports a
	// finalized utterance. Zero never finalizes.
	FinalizeAfter int
	Understood    bool
	Intent        string
	Slots         map[string]string

	// Fail makes the named operation return the given status.
	Fail map[string]rhino.Status
	// Stack is reported by ErrorStack.
	Stack []string

	mu        sync.Mutex
	sdk       string
	calls     map[string]int
	instances []*Instance
}

var _ rhino.Library = (*Library)(nil)

// New returns a Library that finalizes after three frames of 512 samples and
// understands an orderBeverage request.
func New() *Library {
	return &Library{
		FrameLen:      512,
		Rate:          16000,
		VersionString: "3.0.0",
		ContextYAML:   DefaultContextInfo,
		FinalizeAfter: 3,
		Understood:    true,
		Intent:        "orderBeverage",
		Slots: map[string]string{
			"beverage":      "americano",
			"numberOfShots": "double shot",
			"size":          "medium",
		},
		Fail:  map[string]rhino.Status{},
		Stack: []string{"engine error A", "engine error B"},
	}
}

// SetFail makes op return status until ClearFail is called. Unlike writing
// Fail directly it is safe while sessions are in use.
func (l *Library) SetFail(op string, status rhino.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Fail == nil {
		l.Fail = make(map[string]rhino.Status)
	}
	l.Fail[op] = status
}

// ClearFail restores normal behaviour for op.
func (l *Library) ClearFail(op string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.Fail, op)
}

// Calls returns how many times op was invoked.
func (l *Library) Calls(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

// SDK returns the last value passed to SetSDK.
func (l *Library) SDK() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sdk
}

// Live returns the number of instances created and not yet deleted.
func (l *Library) Live() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	live := 0
	for _, inst := range l.instances {
		if !inst.deleted {
			live++
		}
	}
	return live
}

func (l *Library) record(op string) rhino.Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.calls == nil {
		l.calls = make(map[string]int)
	}
	l.calls[op]++
	if status, ok := l.Fail[op]; ok {
		return status
	}
	return rhino.StatusSuccess
}

func (l *Library) SetSDK(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sdk = name
}

func (l *Library) Init(params rhino.InitParams) (rhino.Instance, rhino.Status) {
	if status := l.record(OpInit); status != rhino.StatusSuccess {
		return nil, status
	}
	inst := &Instance{lib: l, Params: params}
	l.mu.Lock()
	l.instances = append(l.instances, inst)
	l.mu.Unlock()
	return inst, rhino.StatusSuccess
}

func (l *Library) Version() string  { return l.VersionString }
func (l *Library) FrameLength() int { return l.FrameLen }
func (l *Library) SampleRate() int  { return l.Rate }

func (l *Library) ErrorStack() ([]string, rhino.Status) {
	if status := l.record(OpErrorStack); status != rhino.StatusSuccess {
		return nil, status
	}
	return append([]string(nil), l.Stack...), rhino.StatusSuccess
}

// Instance is a fake engine handle.
type Instance struct {
	lib *Library

	// Params holds the arguments passed to Init.
	Params rhino.InitParams

	frames  int
	deleted bool
}

func (i *Instance) Process(pcm []int16) (bool, rhino.Status) {
	if status := i.lib.record(OpProcess); status != rhino.StatusSuccess {
		return false, status
	}
	if i.deleted {
		return false, rhino.StatusInvalidState
	}
	i.frames++
	return i.lib.FinalizeAfter > 0 && i.frames >= i.lib.FinalizeAfter, rhino.StatusSuccess
}

func (i *Instance) IsUnderstood() (bool, rhino.Status) {
	if status := i.lib.record(OpIsUnderstood); status != rhino.StatusSuccess {
		return false, status
	}
	return i.lib.Understood, rhino.StatusSuccess
}

func (i *Instance) GetIntent() (string, map[string]string, rhino.Status) {
	if status := i.lib.record(OpGetIntent); status != rhino.StatusSuccess {
		return "", nil, status
	}
	slots := make(map[string]string, len(i.lib.Slots))
	for k, v := range i.lib.Slots {
		slots[k] = v
	}
	return i.lib.Intent, slots, rhino.StatusSuccess
}

func (i *Instance) Reset() rhino.Status {
	if status := i.lib.record(OpReset); status != rhino.StatusSuccess {
		return status
	}
	i.frames = 0
	return rhino.StatusSuccess
}

func (i *Instance) ContextInfo() (string, rhino.Status) {
	if status := i.lib.record(OpContextInfo); status != rhino.StatusSuccess {
		return "", status
	}
	return i.lib.ContextYAML, rhino.StatusSuccess
}

func (i *Instance) Delete() {
	i.lib.mu.Lock()
	defer i.lib.mu.Unlock()
	i.deleted = true
}

// Frames returns the number of frames processed since the last reset.
func (i *Instance) Frames() int { return i.frames }
