//go:build cgo

package hal

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

type hostKeyboard struct {
	ch chan KeyEvent
}

func newHostKeyboard() *hostKeyboard {
	return &hostKeyboard{ch: make(chan KeyEvent, 64)}
}

func (k *hostKeyboard) Events() <-chan KeyEvent { return k.ch }

func (k *hostKeyboard) send(ev KeyEvent) {
	select {
	case k.ch <- ev:
	default:
	}
}

func (k *hostKeyboard) poll() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	if ctrl {
		if inpututil.IsKeyJustPressed(ebiten.KeyP) {
			k.send(KeyEvent{Press: true, Rune: RuneCtrlP})
		}
		if inpututil.IsKeyJustPressed(ebiten.KeyK) {
			k.send(KeyEvent{Press: true, Rune: RuneCtrlK})
		}
		return
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		k.send(KeyEvent{Press: true, Rune: r})
	}

	keys := [...]struct {
		key  ebiten.Key
		code KeyCode
	}{
		{ebiten.KeyEnter, KeyEnter},
		{ebiten.KeyEscape, KeyEscape},
		{ebiten.KeyBackspace, KeyBackspace},
	}
	for _, kc := range keys {
		if inpututil.IsKeyJustPressed(kc.key) {
			k.send(KeyEvent{Code: kc.code, Press: true})
		}
		if inpututil.IsKeyJustReleased(kc.key) {
			k.send(KeyEvent{Code: kc.code, Press: false})
		}
	}
}
