package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestInspect(t *testing.T) {
	rep, err := inspect(2, "VK_LAYER_KHRONOS_validation")
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.devices) != 2 {
		t.Fatalf("devices = %d, want 2", len(rep.devices))
	}
	for i, d := range rep.devices {
		if d.queues != 3 {
			t.Errorf("device %d verified %d queues, want 3", i, d.queues)
		}
	}
	if len(rep.layerExts) != 1 {
		t.Errorf("layer extensions = %+v", rep.layerExts)
	}

	var buf bytes.Buffer
	printReport(&buf, rep)
	out := buf.String()
	for _, want := range []string{
		"Instance version: 1.3.275",
		"Soft Compute Device #1",
		"compute|transfer",
		"VK_EXT_validation_features",
		"Queues verified: 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInspectUnknownLayer(t *testing.T) {
	if _, err := inspect(1, "VK_LAYER_missing"); err == nil {
		t.Fatal("expected error")
	}
}

func TestRun(t *testing.T) {
	// Interactive mode needs a terminal; other writers get the plain report.
	var buf bytes.Buffer
	if err := run(false, true, 1, "", &buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Instance version: 1.3.275") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	if err := run(false, false, 1, "VK_LAYER_missing", &buf); err == nil {
		t.Fatal("expected error for unknown layer")
	}
	if buf.Len() != 0 {
		t.Errorf("report printed after failure:\n%s", buf.String())
	}
}

func TestQueueFlagsString(t *testing.T) {
	tests := []struct {
		flags uint32
		want  string
	}{
		{0, "-"},
		{0x1, "graphics"},
		{0x6, "compute|transfer"},
		{0xf, "graphics|compute|transfer|sparse"},
	}
	for _, tt := range tests {
		if got := queueFlagsString(tt.flags); got != tt.want {
			t.Errorf("queueFlagsString(%#x) = %q, want %q", tt.flags, got, tt.want)
		}
	}
}
