// Package tts speaks text with the local espeak-ng synthesizer.
package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

static int
espeak_init(void)
{
	return espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0);
}

static int
espeak_say(const char *text, const char *voice, int rate)
{
	if (!text)
	{ return -1; }

	if (voice && espeak_SetVoiceByName(voice) != EE_OK)
	{ return -2; }

	espeak_SetParameter(espeakRATE, rate, 0);

	if (espeak_Synth(text, 0, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL) != EE_OK)
	{ return -3; }

	return espeak_Synchronize() == EE_OK ? 0 : -4;
}

static void
espeak_stop(void)
{
	espeak_Cancel();
}
*/
import "C"

import (
	"fmt"
	"math"
	"sync"
	"unsafe"
)

const baseRate = 175 // words per minute

var (
	initOnce sync.Once
	initErr  error
)

func initialize() error {
	initOnce.Do(func() {
		if rc := C.espeak_init(); rc < 0 {
			initErr = fmt.Errorf("espeak init failed: %d", int(rc))
		}
	})
	return initErr
}

type Espeak struct {
	Voice string
	Rate  float64 // 1.0 = normal

	mu sync.Mutex
}

func New(voice string, rate float64) *Espeak {
	return &Espeak{Voice: voice, Rate: rate}
}

func (e *Espeak) Name() string { return "espeak" }

// Speak blocks until the text has been spoken or Cancel is called.
func (e *Espeak) Speak(text string) error {
	if text == "" {
		return nil
	}
	if err := initialize(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	var cvoice *C.char
	if e.Voice != "" {
		cvoice = C.CString(e.Voice)
		defer C.free(unsafe.Pointer(cvoice))
	}

	rate := e.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := int(math.Round(baseRate * rate))

	switch rc := C.espeak_say(ctext, cvoice, C.int(wpm)); rc {
	case 0:
		return nil
	case -2:
		return fmt.Errorf("espeak: unknown voice %q", e.Voice)
	default:
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}
}

// Cancel interrupts speech in progress.
func (e *Espeak) Cancel() {
	if initialize() == nil {
		C.espeak_stop()
	}
}
