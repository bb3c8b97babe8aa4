package output

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJSON_SeedScenario(t *testing.T) {
	o := NewObject()
	o.PushObject("o", NewObject())
	o.PushArray("a", NewArray())
	o.PushString("s", `hello, "sir"`)
	o.PushUint("u", 123)
	o.PushInt("i", -12)
	o.PushFloat("f", 12.5)

	a := NewArray()
	a.PushObject(o)
	a.PushEmpty()
	a.PushString(`stri\ng`)

	got := EncodeJSON(Arr(a))
	want := `[{"o":{},"a":[],"s":"hello, \"sir\"","u":123,"i":-12,"f":12.5},,"stri\\ng"]` + "\n"
	require.Equal(t, want, got)
}

func TestEncodeCSV_SeedScenario(t *testing.T) {
	o := NewObject()
	o.PushObject("o", NewObject())

	aa := NewArray()
	aa.PushInt(1)
	aa.PushEmpty()
	aa.PushInt(2)
	aa.SetCSVSeparator("|")
	o.PushArray("a", aa)

	o.PushString("s", `hello, "sir"`)
	o.PushUint("u", 123)
	o.PushInt("i", -12)
	o.PushFloat("f", 12.5)

	ab := NewArray()
	ab.SetEncodeNonemptyBase45()
	for _, x := range []uint64{1, 30, 89, 12} {
		ab.PushUint(x)
	}
	o.PushArray("x", ab)

	got := EncodeCSV(Obj(o))
	want := `o=,a=1||2,"s=hello, ""sir""",u=123,i=-12,f=12.5,x=)(t*1b` + "\n"
	require.Equal(t, want, got)
}

func TestEncodeCPUSecsBase45(t *testing.T) {
	got := encodeCPUSecsBase45([]uint64{1, 30, 89, 12})
	require.Equal(t, ")(t*1b", got)
}

func TestBase45Alphabets(t *testing.T) {
	assert.Len(t, base45Initial, base45Base)
	assert.Len(t, base45Subsequent, base45Base)
	assert.NotContains(t, base45Initial, "=")
	assert.NotContains(t, base45Subsequent, "=")
}

func TestCSVQuote(t *testing.T) {
	assert.Equal(t, "plain", csvQuote("plain"))
	assert.Equal(t, `"a,b"`, csvQuote("a,b"))
	assert.Equal(t, `"a""b"`, csvQuote(`a"b`))
}

func TestEmptyRendersAsNothingBetweenCommasInJSON(t *testing.T) {
	a := NewArray()
	a.PushInt(1)
	a.PushEmpty()
	a.PushInt(2)
	got := EncodeJSON(Arr(a))
	require.Equal(t, "[1,,2]\n", got)
	assert.Equal(t, "", formatCSVValue(Empty()))
}

func TestFormatFloat(t *testing.T) {
	assert.Equal(t, "12.5", formatFloat(12.5))
	assert.Equal(t, "0.0", formatFloat(0))
}
