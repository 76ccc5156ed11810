package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternerDeduplicates(t *testing.T) {
	in := NewInterner()

	a := in.Intern("react/hooks")
	b := in.Intern("react/hooks")
	assert.Equal(t, a, b)
	assert.Equal(t, 1, in.Len())

	in.Intern("react/components")
	assert.Equal(t, 2, in.Len())
}

func TestInternerConcurrentIntern(t *testing.T) {
	in := NewInterner()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in.Intern("vue/guide")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, in.Len())
}

func TestInternerEmptyString(t *testing.T) {
	in := NewInterner()
	assert.Equal(t, "", in.Intern(""))
	assert.Equal(t, 1, in.Len())
}
