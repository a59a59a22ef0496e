package hal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunHeadlessStopsAfterTicks(t *testing.T) {
	steps := 0
	err := RunHeadless(context.Background(), func(h HAL) func() error {
		if h.Display().Framebuffer() == nil || h.Time() == nil {
			t.Fatalf("host HAL missing devices")
		}
		return func() error {
			steps++
			return nil
		}
	}, HeadlessConfig{Hz: 1000, Ticks: 3})
	if err != nil {
		t.Fatalf("RunHeadless: %v", err)
	}
	if steps != 3 {
		t.Fatalf("steps=%d, want 3", steps)
	}
}

func TestRunHeadlessStepError(t *testing.T) {
	boom := errors.New("boom")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := RunHeadless(ctx, func(HAL) func() error {
		return func() error { return boom }
	}, HeadlessConfig{Hz: 1000})
	if err != boom {
		t.Fatalf("err=%v, want %v", err, boom)
	}
}

func TestRunHeadlessBadHz(t *testing.T) {
	err := RunHeadless(context.Background(), func(HAL) func() error { return nil }, HeadlessConfig{Hz: int(2 * time.Second)})
	if err == nil {
		t.Fatalf("expected error for hz above 1e9")
	}
}

func TestRGB565RoundTrip(t *testing.T) {
	r, g, b := rgb888From565(rgb565(0xFF, 0xFF, 0xFF))
	if r != 0xFF || g != 0xFF || b != 0xFF {
		t.Fatalf("white=%02x%02x%02x", r, g, b)
	}
	px := rgb565(0xF8, 0, 0)
	dst := make([]byte, 4)
	expandRGB565(dst, []byte{byte(px), byte(px >> 8)})
	if dst[0] != 0xFF || dst[1] != 0 || dst[2] != 0 || dst[3] != 0xFF {
		t.Fatalf("red=%v", dst)
	}
}
