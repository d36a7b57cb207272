package actions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/LocalAutomator/internal/engine"
)

func TestSetVariable(t *testing.T) {
	vars := engine.NewContext()

	res, err := runAction(t, TypeVarSet, map[string]any{"name": "target", "value": "C:/out"}, vars)
	require.NoError(t, err)
	assert.Equal(t, "target", res.Data["var_name"])

	v, err := vars.Get("target")
	require.NoError(t, err)
	assert.Equal(t, "C:/out", v)

	_, err = runAction(t, TypeVarSet, map[string]any{"value": "x"}, vars)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestStringConcat(t *testing.T) {
	vars := engine.NewContext()

	_, err := runAction(t, TypeVarStringConcat, map[string]any{
		"parts":     "alpha\n\nbeta\ngamma",
		"separator": "-",
		"var_name":  "joined",
	}, vars)
	require.NoError(t, err)

	v, _ := vars.Get("joined")
	assert.Equal(t, "alpha-beta-gamma", v)

	// Список частей
	_, err = runAction(t, TypeVarStringConcat, map[string]any{
		"parts": []any{"a", "", 1},
	}, vars)
	require.NoError(t, err)
	v, _ = vars.Get("result")
	assert.Equal(t, "a1", v)
}

func TestStringReplace(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]any
		expected string
	}{
		{
			name:     "plain",
			params:   map[string]any{"source": "a.b.c", "find": ".", "replace": "_"},
			expected: "a_b_c",
		},
		{
			name:     "regex",
			params:   map[string]any{"source": "file-001.txt", "find": `\d+`, "replace": "N", "use_regex": true},
			expected: "file-N.txt",
		},
		{
			name:     "regex groups",
			params:   map[string]any{"source": "2024-03-07", "find": `(\d+)-(\d+)-(\d+)`, "replace": "$3.$2.$1", "use_regex": "true"},
			expected: "07.03.2024",
		},
		{
			name:     "empty find",
			params:   map[string]any{"source": "abc", "find": ""},
			expected: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := engine.NewContext()
			_, err := runAction(t, TypeVarStringReplace, tt.params, vars)
			require.NoError(t, err)
			v, _ := vars.Get("result")
			assert.Equal(t, tt.expected, v)
		})
	}

	_, err := runAction(t, TypeVarStringReplace, map[string]any{"source": "x", "find": "(", "use_regex": true}, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestGetDate(t *testing.T) {
	fixed := time.Date(2024, 12, 31, 23, 59, 58, 0, time.Local)
	clock = func() time.Time { return fixed }
	t.Cleanup(func() { clock = time.Now })

	vars := engine.NewContext()
	_, err := runAction(t, TypeVarGetDate, map[string]any{"format": "%Y%m%d_%H%M%S", "var_name": "stamp"}, vars)
	require.NoError(t, err)
	v, _ := vars.Get("stamp")
	assert.Equal(t, "20241231_235958", v)

	_, err = runAction(t, TypeVarGetDate, map[string]any{}, vars)
	require.NoError(t, err)
	v, _ = vars.Get("current_date")
	assert.Equal(t, "2024-12-31 23:59:58", v)
}

func TestStrftime(t *testing.T) {
	ts := time.Date(2024, 2, 5, 14, 7, 9, 123456000, time.UTC)

	tests := []struct {
		format   string
		expected string
	}{
		{"%Y-%m-%d", "2024-02-05"},
		{"%y/%m/%d %I:%M %p", "24/02/05 02:07 PM"},
		{"%A %a %B %b", "Monday Mon February Feb"},
		{"%j", "036"},
		{"%f", "123456"},
		{"100%%", "100%"},
		{"backup_%Y%m%d.zip", "backup_20240205.zip"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got, err := Strftime(ts, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestGetDate_BadFormat(t *testing.T) {
	_, err := runAction(t, TypeVarGetDate, map[string]any{"format": "%Q"}, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestMathCalc(t *testing.T) {
	tests := []struct {
		name     string
		params   map[string]any
		expected string
	}{
		{"integer", map[string]any{"expression": "1 + 2 * 3"}, "7"},
		{"division", map[string]any{"expression": "7 / 2"}, "3.5"},
		{"places", map[string]any{"expression": "10 / 3", "decimal_places": 2}, "3.33"},
		{"zero places", map[string]any{"expression": "2.6", "decimal_places": "0"}, "3"},
		{"functions", map[string]any{"expression": "sqrt(16) + pow(2, 3) + abs(-1)"}, "13"},
		{"max", map[string]any{"expression": "max(3, 9, 4)"}, "9"},
		{"constant", map[string]any{"expression": "pi", "decimal_places": 4}, "3.1416"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vars := engine.NewContext()
			_, err := runAction(t, TypeVarMathCalc, tt.params, vars)
			require.NoError(t, err)
			v, _ := vars.Get("calc_result")
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestMathCalc_Errors(t *testing.T) {
	_, err := runAction(t, TypeVarMathCalc, map[string]any{}, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = runAction(t, TypeVarMathCalc, map[string]any{"expression": "1 +"}, nil)
	assert.Error(t, err)

	_, err = runAction(t, TypeVarMathCalc, map[string]any{"expression": `"text"`}, nil)
	assert.Error(t, err)
}
