package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortsKeys(t *testing.T) {
	got, err := MarshalCanonical(map[string]any{
		"zeta":  "z",
		"alpha": int64(1),
		"mid":   true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":1,"mid":true,"zeta":"z"}`, string(got))
}

func TestMarshalCanonical_Event(t *testing.T) {
	e := Event{Seq: 3, Kind: KindStyle, Target: "box", Name: "width", Value: "100px"}

	got, err := MarshalCanonical(e)
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"style","name":"width","seq":3,"target":"box","value":"100px"}`, string(got))
}

func TestMarshalCanonical_OmitsEmptyFields(t *testing.T) {
	e := Event{Seq: 1, Kind: KindTransition, Target: "box"}

	got, err := MarshalCanonical(e)
	require.NoError(t, err)
	assert.Equal(t, `{"kind":"transition","seq":1,"target":"box"}`, string(got))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	got, err := MarshalCanonical("a<b>&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(got))
}

func TestMarshalCanonical_EscapesControlCharacters(t *testing.T) {
	got, err := MarshalCanonical("a\"b\\c\nd\x01")
	require.NoError(t, err)
	assert.Equal(t, `"a\"b\\c\nd\u0001"`, string(got))
}

func TestMarshalCanonical_NFCNormalization(t *testing.T) {
	decomposed := "e\u0301"
	composed := "\u00e9"

	a, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	b, err := MarshalCanonical(composed)
	require.NoError(t, err)
	assert.Equal(t, b, a)
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as the surrogate pair 0xD83D 0xDE00, which sorts
	// before U+E000 in UTF-16 even though its UTF-8 bytes sort after.
	got, err := MarshalCanonical(map[string]any{
		"\uE000":     int64(1),
		"\U0001F600": int64(2),
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":2,\"\uE000\":1}", string(got))
}

func TestMarshalCanonical_RejectsFloatsAndNull(t *testing.T) {
	_, err := MarshalCanonical(1.5)
	assert.Error(t, err)

	_, err = MarshalCanonical(nil)
	assert.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"x": []any{nil}})
	assert.Error(t, err)
}

func TestEncodeLines(t *testing.T) {
	events := []Event{
		{Seq: 1, Kind: KindTransition, Target: "box", Value: "1000ms all 0ms"},
		{Seq: 2, Kind: KindTimerSet, Name: "1", Value: "1500"},
	}

	got, err := EncodeLines(events)
	require.NoError(t, err)
	want := `{"kind":"transition","seq":1,"target":"box","value":"1000ms all 0ms"}` + "\n" +
		`{"kind":"timer_set","name":"1","seq":2,"value":"1500"}` + "\n"
	assert.Equal(t, want, string(got))
}

func TestFilterAndCount(t *testing.T) {
	events := []Event{
		{Seq: 1, Kind: KindTransition},
		{Seq: 2, Kind: KindStyle},
		{Seq: 3, Kind: KindTransition},
	}

	filtered := Filter(events, KindTransition)
	require.Len(t, filtered, 2)
	assert.Equal(t, int64(3), filtered[1].Seq)
	assert.Equal(t, 1, Count(events, KindStyle))
	assert.Equal(t, 0, Count(events, KindReflow))
}
