package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIRValueSealed(t *testing.T) {
	var _ IRValue = IRNull{}
	var _ IRValue = IRString("")
	var _ IRValue = IRInt(0)
	var _ IRValue = IRFloat(0)
	var _ IRValue = IRBool(false)
	var _ IRValue = IRArray{}
	var _ IRValue = IRObject{}
}

func TestIRObjectSortedKeys(t *testing.T) {
	obj := IRObject{
		"zebra": IRInt(1),
		"alpha": IRInt(2),
		"beta":  IRInt(3),
	}
	assert.Equal(t, []string{"alpha", "beta", "zebra"}, obj.SortedKeys())
}

func TestSortedKeysUTF16Order(t *testing.T) {
	// U+E000 vs U+10000: UTF-8 puts U+E000 first, UTF-16 puts the surrogate pair first.
	obj := IRObject{
		"\uE000":     IRInt(1),
		"\U00010000": IRInt(2),
	}
	assert.Equal(t, []string{"\U00010000", "\uE000"}, obj.SortedKeys())
}

func TestCompareKeysRFC8785(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"a", "b", -1},
		{"b", "a", 1},
		{"a", "a", 0},
		{"a", "ab", -1},
		{"", "a", -1},
		{"\U00010000", "\uE000", -1},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, compareKeysRFC8785(tt.a, tt.b))
		})
	}
}

func TestParseJSONNumbers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  IRValue
	}{
		{"int", "42", IRInt(42)},
		{"negative int", "-7", IRInt(-7)},
		{"float", "1.5", IRFloat(1.5)},
		{"exponent is float", "1e3", IRFloat(1000)},
		{"beyond int64 is float", "9223372036854775808", IRFloat(9223372036854775808)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSON([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSONNullAllowed(t *testing.T) {
	got, err := ParseJSON([]byte(`{"a":null,"b":[null]}`))
	require.NoError(t, err)
	assert.Equal(t, IRObject{"a": IRNull{}, "b": IRArray{IRNull{}}}, got)
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	_, err := ParseJSON([]byte(`{} {}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing data")
}

func TestParseJSONRejectsMalformed(t *testing.T) {
	_, err := ParseJSON([]byte(`{"a":`))
	require.Error(t, err)
}

func TestValueOfStruct(t *testing.T) {
	type counter struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
		Skip  string `json:"skip,omitempty"`
	}

	got, err := ValueOf(counter{Name: "clicks", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, IRObject{"name": IRString("clicks"), "count": IRInt(3)}, got)
}

func TestValueOfRejectsUnencodable(t *testing.T) {
	_, err := ValueOf(make(chan int))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode value")
}

func TestInterfaceRoundTrip(t *testing.T) {
	v := IRObject{
		"s": IRString("x"),
		"i": IRInt(1),
		"f": IRFloat(0.5),
		"b": IRBool(true),
		"n": IRNull{},
		"a": IRArray{IRInt(2)},
	}

	got := Interface(v)
	assert.Equal(t, map[string]any{
		"s": "x",
		"i": int64(1),
		"f": 0.5,
		"b": true,
		"n": nil,
		"a": []any{int64(2)},
	}, got)
}
