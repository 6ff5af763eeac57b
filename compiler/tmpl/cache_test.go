package tmpl

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheParse(t *testing.T) {
	c := NewCache()
	first, err := c.Parse("greet", "hi {{ name }}")
	require.NoError(t, err)
	second, err := c.Parse("greet", "hi {{ name }}")
	require.NoError(t, err)
	assert.Same(t, first, second)

	t.Run("name wins over text", func(t *testing.T) {
		third, err := c.Parse("greet", "bye {{ name }}")
		require.NoError(t, err)
		assert.Same(t, first, third)
		out, err := c.Render("greet", Context{"name": "ann"})
		require.NoError(t, err)
		assert.Equal(t, "hi ann", out)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		_, err := c.Parse("broken", "{{ each xs as x }}")
		require.Error(t, err)
		assert.True(t, IsSyntaxError(err))
		_, ok := c.Lookup("broken")
		assert.False(t, ok)

		fixed, err := c.Parse("broken", "{{ each xs as x }}{{ x }}{{ done }}")
		require.NoError(t, err)
		got, ok := c.Lookup("broken")
		require.True(t, ok)
		assert.Same(t, fixed, got)
	})
}

func TestCacheConcurrentParse(t *testing.T) {
	c := NewCache()
	const workers = 16
	var (
		wg  sync.WaitGroup
		got [workers]*Template
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = c.MustParse("shared", fmt.Sprintf("{{ v }} from %d", i))
		}()
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		assert.Same(t, got[0], got[i])
	}
	assert.Equal(t, []string{"shared"}, c.Names())
}

func TestCacheRender(t *testing.T) {
	c := NewCache()
	c.MustParse("b", "{{ join xs \"-\" }}")
	c.MustParse("a", "{{ x }}")
	assert.Equal(t, []string{"a", "b"}, c.Names())

	out, err := c.Render("b", Context{"xs": []int{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, "1-2", out)

	_, err = c.Render("missing", Context{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `template "missing" is not parsed`)

	_, err = c.Render("a", Context{})
	assert.True(t, IsSubstitutionError(err))
}

func TestCacheMustParsePanics(t *testing.T) {
	c := NewCache()
	assert.Panics(t, func() { c.MustParse("bad", "{{ fi }}") })
	assert.Empty(t, c.Names())
}
