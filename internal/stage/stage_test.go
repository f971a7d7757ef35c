package stage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStage(t *testing.T) *DocumentStage {
	t.Helper()

	s, err := NewDocumentStage(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestDocumentStage_SaveAndGet(t *testing.T) {
	s := newTestStage(t)
	ctx := context.Background()

	t.Run("round trips document bytes", func(t *testing.T) {
		content := []byte("%PDF-1.4 fake invoice")
		require.NoError(t, s.Save(ctx, "inv001.pdf", content))

		got, err := s.Get(ctx, "inv001.pdf")
		require.NoError(t, err)
		assert.Equal(t, content, got)
		assert.True(t, s.Exists(ctx, "inv001.pdf"))
	})

	t.Run("saving the same name overwrites", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, "inv001.pdf", []byte("second upload")))

		got, err := s.Get(ctx, "inv001.pdf")
		require.NoError(t, err)
		assert.Equal(t, []byte("second upload"), got)
	})

	t.Run("empty content is rejected", func(t *testing.T) {
		err := s.Save(ctx, "empty.pdf", nil)
		assert.Error(t, err)
	})

	t.Run("unknown document", func(t *testing.T) {
		_, err := s.Get(ctx, "missing.pdf")
		assert.ErrorContains(t, err, "not staged")
	})
}

func TestDocumentStage_List(t *testing.T) {
	s := newTestStage(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "b.pdf", []byte("b")))
	require.NoError(t, s.Save(ctx, "a.pdf", []byte("a")))

	names, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf", "b.pdf"}, names)
}

func TestDocumentStage_RejectsEscapingNames(t *testing.T) {
	s := newTestStage(t)
	ctx := context.Background()

	tests := []string{
		"",
		"../outside.pdf",
		"sub/dir.pdf",
		"/etc/passwd",
		".hidden",
	}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			err := s.Save(ctx, name, []byte("x"))
			assert.Error(t, err)
		})
	}
}

func TestDocumentStage_FiresExtractionTrigger(t *testing.T) {
	s := newTestStage(t)
	ctx := context.Background()

	var mu sync.Mutex
	var fired []string
	done := make(chan struct{})
	s.OnUpload(func(_ context.Context, fileName string) {
		mu.Lock()
		fired = append(fired, fileName)
		mu.Unlock()
		close(done)
	})

	require.NoError(t, s.Save(ctx, "inv001.pdf", []byte("x")))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("extraction trigger never fired")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"inv001.pdf"}, fired)
}

func TestPager_RejectsInvalidDocument(t *testing.T) {
	p := NewPager(zap.NewNop())

	_, err := p.PageCount([]byte("not a pdf"))
	assert.Error(t, err)

	_, err = p.RenderPage([]byte("not a pdf"), 0)
	assert.Error(t, err)
}
