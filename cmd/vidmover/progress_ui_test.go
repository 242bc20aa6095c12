package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/John-Robertt/vidmover/internal/config"
)

func TestProgressUI_Lines(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)
	defer p.Close()

	p.OnStart(config.EffectiveConfig{Source: "/src", Destination: "/src/VIDEOS", Apply: true})
	p.OnPhaseDone("scan", map[string]any{"files": 2, "bytes": int64(2048)}, 1500*time.Millisecond)
	p.OnProgress(1, 2)
	p.OnError("/src/b.mp4", errors.New("boom"))
	p.OnPhaseDone("move", map[string]any{"moved": 1, "failed": 1}, time.Second)

	out := buf.String()
	assert.Contains(t, out, "vidmover run (apply)")
	assert.Contains(t, out, "source: /src")
	assert.Contains(t, out, `exclude_dirs: [] + 固定排除 dest`)
	assert.Contains(t, out, "扫描: files=2 size=2.00 KB (1.5s)")
	assert.Contains(t, out, "[1/2] OK")
	assert.Contains(t, out, "[2/2] FAIL /src/b.mp4: boom")
	assert.Contains(t, out, "移动: moved=1 failed=1 (1.0s)")
}

func TestProgressUI_DryRunDoesNotStartTicker(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressUI(&buf)

	p.OnStart(config.EffectiveConfig{Source: "/src"})
	p.OnPhaseDone("scan", map[string]any{"files": 3}, 0)
	p.OnPhaseDone("plan", map[string]any{"planned": 3, "failed": 0}, 0)

	assert.False(t, p.tickerStarted)
	assert.Contains(t, buf.String(), "(dry-run)")
	assert.Contains(t, buf.String(), "规划: planned=3 failed=0")
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "01:01:01", formatElapsed(time.Hour+time.Minute+time.Second))
	assert.Equal(t, "0.0s", formatShortDuration(-time.Second))
	assert.Equal(t, "ab...", truncate("abcdefgh", 5))
	assert.Equal(t, "[]", formatStringListJSON(nil))
	assert.Equal(t, int64(7), int64Field(map[string]any{"n": uint32(7)}, "n"))
	assert.Equal(t, 0, intField(nil, "n"))
}
