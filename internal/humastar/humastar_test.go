package humastar

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"dataset":"yeeap","markerSize":"7","weight":0.5,"showGrid":true,"log":"on","bad":"x"}`))
	require.NoError(t, err)

	assert.Equal(t, "yeeap", s.String("dataset"))
	assert.Equal(t, 7, s.Int("markerSize"))
	assert.Equal(t, 0.5, s.Float("weight"))
	assert.Equal(t, "0.5", s.String("weight"))
	assert.True(t, s.Bool("showGrid"))
	assert.True(t, s.Bool("log"))
	assert.True(t, s.Has("bad"))

	_, ok := s.IntOK("bad")
	assert.False(t, ok)
	_, ok = s.FloatOK("missing")
	assert.False(t, ok)
	assert.False(t, s.Bool("missing"))

	empty, err := ParseSignals(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = ParseSignals([]byte("{"))
	assert.Error(t, err)
}

func TestMustParse(t *testing.T) {
	in := &SignalsInput{RawBody: []byte("not json")}
	_, err := in.MustParse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid request data")
}

type fakeRenderer struct{ fail bool }

func (f fakeRenderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	if f.fail {
		return errors.New("no template")
	}
	fmt.Fprintf(buf, "[%s %v]", name, data)
	return nil
}

func TestRenderList(t *testing.T) {
	out, err := RenderList(fakeRenderer{}, "site-card", []int{1, 2}, "t", "m")
	require.NoError(t, err)
	assert.Equal(t, "[site-card 1][site-card 2]", out)

	out, err = RenderList(fakeRenderer{}, "site-card", []int{}, "Nothing", "Try again")
	require.NoError(t, err)
	assert.Contains(t, out, "empty-state")
	assert.Contains(t, out, "Nothing")

	_, err = RenderList(fakeRenderer{fail: true}, "site-card", []int{1}, "", "")
	assert.Error(t, err)
}

func TestRenderSelect(t *testing.T) {
	out, err := RenderSelect(fakeRenderer{}, "", []SelectOptionData{{Value: "a", Label: "A", Selected: true}})
	require.NoError(t, err)
	assert.Equal(t, "[select-option {a A true}]", out)
}

func TestPaginate(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	p := Paginate(items, 2, 3)
	assert.Equal(t, []int{2, 3, 4}, p.Data)
	assert.Equal(t, 7, p.Total)

	p = Paginate(items, 6, 3)
	assert.Equal(t, []int{6}, p.Data)

	p = Paginate(items, 50, 0)
	assert.Empty(t, p.Data)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Equal(t, 7, p.Offset)

	p = Paginate(items, -1, MaxLimit+5)
	assert.Equal(t, 0, p.Offset)
	assert.Equal(t, MaxLimit, p.Limit)
}

func TestPaginationLinks(t *testing.T) {
	p := PageBody[int]{Total: 7, Offset: 3, Limit: 3}
	assert.Equal(t, []string{
		`</x?offset=0&limit=3>; rel="first"`,
		`</x?offset=0&limit=3>; rel="prev"`,
		`</x?offset=6&limit=3>; rel="next"`,
		`</x?offset=6&limit=3>; rel="last"`,
	}, p.PaginationLinks("/x"))

	empty := PageBody[int]{Limit: 10}
	assert.Equal(t, []string{
		`</x?offset=0&limit=10>; rel="first"`,
		`</x?offset=0&limit=10>; rel="last"`,
	}, empty.PaginationLinks("/x"))
}
