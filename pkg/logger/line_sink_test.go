package logger

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	lines []string
}

func (m *memorySink) WriteLine(msg string) {
	m.lines = append(m.lines, msg)
}

func TestConsoleSink_WriteLine(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf)

	sink.WriteLine("Downloading... 12.5%")
	sink.WriteLine("")
	sink.WriteLine("Saved MP3: /tmp/a.mp3\n")

	assert.Equal(t, "Downloading... 12.5%\nSaved MP3: /tmp/a.mp3\n", buf.String())
}

func TestFileSink_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "VanillaPyDown.log")

	first, err := OpenFileSink(path)
	require.NoError(t, err)
	first.WriteLine("first run")
	require.NoError(t, first.Close())

	second, err := OpenFileSink(path)
	require.NoError(t, err)
	second.WriteLine("second run")
	second.WriteLine("")
	require.NoError(t, second.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first run\nsecond run\n", string(data))
	assert.Equal(t, path, second.Path())
}

func TestFileSink_ConcurrentWritersKeepLinesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.log")
	sink, err := OpenFileSink(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				sink.WriteLine(fmt.Sprintf("writer-%d line-%d %s", w, i, strings.Repeat("x", 64)))
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Err())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 400)
	for _, line := range lines {
		assert.Regexp(t, `^writer-\d line-\d+ x{64}$`, line)
	}
}

func TestFileSink_WriteAfterClose(t *testing.T) {
	sink, err := OpenFileSink(filepath.Join(t.TempDir(), "closed.log"))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	sink.WriteLine("ignored")
	assert.NoError(t, sink.Close())
}

func TestTee(t *testing.T) {
	a, b := &memorySink{}, &memorySink{}
	tee := NewTee(a, nil, b)

	tee.WriteLine("hello")

	assert.Len(t, tee, 2)
	assert.Equal(t, []string{"hello"}, a.lines)
	assert.Equal(t, []string{"hello"}, b.lines)
}
