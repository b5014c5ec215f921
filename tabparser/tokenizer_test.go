package tabparser

import (
	"reflect"
	"strings"
	"testing"
)

func TestParseCSVBasic(t *testing.T) {
	rows := ParseCSV("a,b,c\n1,2,3\n")

	expected := [][]string{
		{"a", "b", "c"},
		{"1", "2", "3"},
	}
	if !reflect.DeepEqual(rows, expected) {
		t.Errorf("Expected %v, got %v", expected, rows)
	}
}

func TestParseCSVQuotedFields(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected [][]string
	}{
		{
			name:     "embedded comma",
			input:    "\"1,000\",2\n",
			expected: [][]string{{"1,000", "2"}},
		},
		{
			name:     "embedded newline",
			input:    "\"line1\nline2\",x\n",
			expected: [][]string{{"line1\nline2", "x"}},
		},
		{
			name:     "doubled quote unescapes",
			input:    "\"say \"\"hi\"\"\",y\n",
			expected: [][]string{{"say \"hi\"", "y"}},
		},
		{
			name:     "quote not at field start stays literal",
			input:    "ab\"c,d\n",
			expected: [][]string{{"ab\"c", "d"}},
		},
		{
			name:     "text after closing quote is appended",
			input:    "\"a\"b,c\n",
			expected: [][]string{{"ab", "c"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows := ParseCSV(tc.input)
			if !reflect.DeepEqual(rows, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, rows)
			}
		})
	}
}

// TestParseCSVQuotingRoundTrip checks that any value survives being quoted
// with internal quotes doubled and parsed back.
func TestParseCSVQuotingRoundTrip(t *testing.T) {
	values := []string{
		"plain",
		"with,comma",
		"with\nnewline",
		"with \"quotes\"",
		"mix,of\n\"every\",thing",
		"",
	}

	for _, value := range values {
		quoted := "\"" + strings.ReplaceAll(value, "\"", "\"\"") + "\""
		rows := ParseCSV(quoted)
		if len(rows) != 1 || len(rows[0]) != 1 {
			t.Fatalf("Expected a single cell for %q, got %v", value, rows)
		}
		if rows[0][0] != value {
			t.Errorf("Round trip failed: expected %q, got %q", value, rows[0][0])
		}
	}
}

func TestParseCSVLineEndings(t *testing.T) {
	lf := ParseCSV("a,b\n1,2\n")
	crlf := ParseCSV("a,b\r\n1,2\r\n")

	if !reflect.DeepEqual(lf, crlf) {
		t.Errorf("CRLF rows %v differ from LF rows %v", crlf, lf)
	}
}

// TestParseCSVNoSpuriousTrailingRow checks that one trailing newline does
// not change the row count.
func TestParseCSVNoSpuriousTrailingRow(t *testing.T) {
	withNewline := ParseCSV("a,b\n1,2\n")
	withoutNewline := ParseCSV("a,b\n1,2")

	if len(withNewline) != len(withoutNewline) {
		t.Errorf("Expected equal row counts, got %d with trailing newline and %d without",
			len(withNewline), len(withoutNewline))
	}
}

func TestParseCSVEmptyInput(t *testing.T) {
	rows := ParseCSV("")

	if len(rows) != 1 {
		t.Fatalf("Expected one row for empty input, got %d", len(rows))
	}
	if !reflect.DeepEqual(rows[0], []string{""}) {
		t.Errorf("Expected a single empty cell, got %v", rows[0])
	}
}

func TestParseCSVInteriorBlankRowKept(t *testing.T) {
	rows := ParseCSV("a\n\nb\n")

	expected := [][]string{{"a"}, {""}, {"b"}}
	if !reflect.DeepEqual(rows, expected) {
		t.Errorf("Expected %v, got %v", expected, rows)
	}
}

// TestParseCSVRaggedRows checks that varying cell counts parse without
// error and keep their own widths.
func TestParseCSVRaggedRows(t *testing.T) {
	rows := ParseCSV("a,b,c\n1\n2,3\n4,5,6,7\n")

	widths := []int{3, 1, 2, 4}
	if len(rows) != len(widths) {
		t.Fatalf("Expected %d rows, got %d", len(widths), len(rows))
	}
	for i, want := range widths {
		if len(rows[i]) != want {
			t.Errorf("Row %d: expected %d cells, got %d", i, want, len(rows[i]))
		}
	}
}

func TestParseCSVStripsByteOrderMark(t *testing.T) {
	rows := ParseCSV("\ufeffname,age\nalice,30\n")

	if rows[0][0] != "name" {
		t.Errorf("Expected BOM to be stripped, got %q", rows[0][0])
	}
}

func BenchmarkParseCSV(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("col1,col2,col3,col4\n")
	for i := 0; i < 1000; i++ {
		sb.WriteString("value,\"quoted, value\",another,\"multi\nline\"\n")
	}
	text := sb.String()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParseCSV(text)
	}
}
